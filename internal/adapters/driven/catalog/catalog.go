// Package catalog provides the source registry backed by a TOML file.
//
// The built-in sources ship embedded in the binary. Operators can extend
// the catalog with their own file; sources there replace built-ins with
// the same id.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"os"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
	"github.com/custodia-labs/lexsync/internal/errors"
	"github.com/custodia-labs/lexsync/internal/logger"
)

//go:embed sources.toml
var builtin []byte

// Ensure Catalog implements the interface.
var _ driven.SourceCatalog = (*Catalog)(nil)

type sourceFile struct {
	Sources []sourceEntry `toml:"source"`
}

type sourceEntry struct {
	ID                string   `toml:"id"`
	Name              string   `toml:"name"`
	ShortName         string   `toml:"short_name"`
	Connector         string   `toml:"connector"`
	DataType          string   `toml:"data_type"`
	Vertical          string   `toml:"vertical"`
	Lifecycle         string   `toml:"lifecycle"`
	EstimatedItems    int      `toml:"estimated_items"`
	URN               string   `toml:"urn"`
	CelexID           string   `toml:"celex_id"`
	BaseURL           string   `toml:"base_url"`
	HierarchyLevels   []string `toml:"hierarchy_levels"`
	SearchTerms       []string `toml:"search_terms"`
	DirectAKN         bool     `toml:"direct_akn"`
	CodiceRedazionale string   `toml:"codice_redazionale"`
	Collection        string   `toml:"collection"`
}

// Parse decodes a sources file. Sources keep file order.
func Parse(data []byte) ([]domain.DataSource, error) {
	var f sourceFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decode sources")
	}

	seen := make(map[string]bool, len(f.Sources))
	out := make([]domain.DataSource, 0, len(f.Sources))
	for i, e := range f.Sources {
		src, err := e.toDomain()
		if err != nil {
			return nil, errors.Wrapf(err, "source #%d", i+1)
		}
		if seen[src.ID] {
			return nil, errors.Mark(errors.Newf("duplicate source id %q", src.ID), domain.ErrInvalidInput)
		}
		seen[src.ID] = true
		out = append(out, src)
	}
	return out, nil
}

// Builtin returns the sources embedded in the binary.
func Builtin() ([]domain.DataSource, error) {
	return Parse(builtin)
}

func (e sourceEntry) toDomain() (domain.DataSource, error) {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		return domain.DataSource{}, errors.Mark(errors.New("missing id"), domain.ErrInvalidInput)
	}
	invalid := func(format string, args ...any) error {
		return errors.Mark(errors.Newf("%s: "+format, append([]any{id}, args...)...), domain.ErrInvalidInput)
	}

	kind := domain.ConnectorKind(e.Connector)
	switch kind {
	case domain.ConnectorNormattiva:
		if e.URN == "" && e.CodiceRedazionale == "" && e.Collection == "" {
			return domain.DataSource{}, invalid("normattiva source needs urn, codice_redazionale or collection")
		}
	case domain.ConnectorEurLex:
		if e.CelexID == "" {
			return domain.DataSource{}, invalid("eurlex source needs celex_id")
		}
	default:
		return domain.DataSource{}, invalid("unknown connector %q", e.Connector)
	}

	stage := domain.LifecyclePlanned
	if e.Lifecycle != "" {
		parsed, err := domain.ParseLifecycle(e.Lifecycle)
		if err != nil {
			return domain.DataSource{}, errors.Wrap(err, id)
		}
		stage = parsed
	}

	dataType := domain.DataType(e.DataType)
	if dataType == "" {
		dataType = domain.DataTypeLegalArticles
		if e.Vertical == "hr" {
			dataType = domain.DataTypeHRArticles
		}
	}

	name := e.Name
	if name == "" {
		name = id
	}
	short := e.ShortName
	if short == "" {
		short = name
	}

	return domain.DataSource{
		ID:             id,
		Name:           name,
		ShortName:      short,
		DataType:       dataType,
		Vertical:       e.Vertical,
		Connector:      kind,
		Lifecycle:      stage,
		EstimatedItems: e.EstimatedItems,
		Config: domain.SourceConfig{
			URN:               e.URN,
			CelexID:           e.CelexID,
			BaseURL:           e.BaseURL,
			HierarchyLevels:   append([]string(nil), e.HierarchyLevels...),
			SearchTerms:       append([]string(nil), e.SearchTerms...),
			DirectAKN:         e.DirectAKN,
			CodiceRedazionale: e.CodiceRedazionale,
			Collection:        e.Collection,
		},
	}, nil
}

// Catalog is a SourceCatalog over a fixed list of sources whose lifecycle
// progress is persisted in a LifecycleStore.
type Catalog struct {
	mu      sync.RWMutex
	sources []domain.DataSource
	index   map[string]int
	store   driven.LifecycleStore
}

// New creates a catalog over sources and overlays the lifecycles recorded
// in store. A nil store keeps progress in memory only.
func New(ctx context.Context, sources []domain.DataSource, store driven.LifecycleStore) (*Catalog, error) {
	c := &Catalog{
		sources: make([]domain.DataSource, 0, len(sources)),
		index:   make(map[string]int, len(sources)),
		store:   store,
	}
	for _, s := range sources {
		if i, ok := c.index[s.ID]; ok {
			c.sources[i] = s
			continue
		}
		c.index[s.ID] = len(c.sources)
		c.sources = append(c.sources, s)
	}

	if store == nil {
		return c, nil
	}
	stages, err := store.Lifecycles(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load lifecycles")
	}
	for id, stage := range stages {
		i, ok := c.index[id]
		if !ok {
			logger.Debug("catalog: ignoring lifecycle for unknown source %s", id)
			continue
		}
		if stage.Rank() > c.sources[i].Lifecycle.Rank() {
			c.sources[i].Lifecycle = stage
		}
	}
	return c, nil
}

// Open builds the catalog from the built-in sources plus an optional
// operator file.
func Open(ctx context.Context, extraFile string, store driven.LifecycleStore) (*Catalog, error) {
	sources, err := Builtin()
	if err != nil {
		return nil, errors.Wrap(err, "built-in catalog")
	}
	if extraFile != "" {
		data, err := os.ReadFile(extraFile)
		if err != nil {
			return nil, errors.Wrapf(err, "read catalog %s", extraFile)
		}
		extra, err := Parse(data)
		if err != nil {
			return nil, errors.Wrapf(err, "catalog %s", extraFile)
		}
		sources = append(sources, extra...)
	}
	return New(ctx, sources, store)
}

// Get returns a source by id.
func (c *Catalog) Get(_ context.Context, id string) (domain.DataSource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return domain.DataSource{}, errors.Mark(errors.Newf("source %q", id), domain.ErrSourceNotFound)
	}
	return c.sources[i], nil
}

// List returns every source in catalog order.
func (c *Catalog) List(_ context.Context) ([]domain.DataSource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.DataSource(nil), c.sources...), nil
}

// Advance moves a source forward. Stages at or behind the current one
// are ignored.
func (c *Catalog) Advance(ctx context.Context, id string, stage domain.Lifecycle) error {
	if !stage.IsValid() {
		return errors.Mark(errors.Newf("unknown lifecycle %q", stage), domain.ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		return errors.Mark(errors.Newf("source %q", id), domain.ErrSourceNotFound)
	}
	if stage.Rank() <= c.sources[i].Lifecycle.Rank() {
		return nil
	}
	if c.store != nil {
		if err := c.store.SetLifecycle(ctx, id, stage); err != nil {
			return errors.Wrapf(err, "persist lifecycle of %s", id)
		}
	}
	logger.Debug("catalog: %s %s -> %s", id, c.sources[i].Lifecycle, stage)
	c.sources[i].Lifecycle = stage
	return nil
}
