package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
)

// Ensure the corpus implements the interfaces.
var (
	_ driven.ArticleWriter   = (*Corpus)(nil)
	_ driven.LifecycleStore  = (*Lifecycles)(nil)
	_ driven.SchemaInspector = (*Corpus)(nil)
)

// Corpus is an in-memory article table keyed on (law source, reference).
type Corpus struct {
	mu       sync.RWMutex
	articles map[string]domain.LegalArticle
	hashes   map[string]string
}

// NewCorpus creates an empty in-memory corpus.
func NewCorpus() *Corpus {
	return &Corpus{
		articles: make(map[string]domain.LegalArticle),
		hashes:   make(map[string]string),
	}
}

// UpsertBatch inserts new articles, updates changed ones and leaves
// unchanged ones alone unless they gain their first vector.
func (c *Corpus) UpsertBatch(_ context.Context, articles []domain.LegalArticle) (domain.UpsertOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out domain.UpsertOutcome
	for _, a := range articles {
		key := a.Key()
		hash := a.ContentHash()
		prev, exists := c.hashes[key]
		switch {
		case !exists:
			out.Inserted++
		case prev == hash:
			stored := c.articles[key]
			if len(stored.Embedding) > 0 || len(a.Embedding) == 0 {
				out.Unchanged++
				continue
			}
			stored.Embedding = a.Embedding
			c.articles[key] = stored
			out.Updated++
			continue
		default:
			out.Updated++
		}
		c.articles[key] = a
		c.hashes[key] = hash
	}
	return out, nil
}

// NeedsEmbedding reports which articles are new, changed or stored
// without a vector.
func (c *Corpus) NeedsEmbedding(_ context.Context, articles []domain.LegalArticle) ([]bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]bool, len(articles))
	for i, a := range articles {
		key := a.Key()
		prev, exists := c.hashes[key]
		out[i] = !exists || prev != a.ContentHash() || len(c.articles[key].Embedding) == 0
	}
	return out, nil
}

// Articles returns the stored articles sorted by key.
func (c *Corpus) Articles() []domain.LegalArticle {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.LegalArticle, 0, len(c.articles))
	for _, a := range c.articles {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Describe reports the in-memory table as always present with every column
// of the legal-articles layout.
func (c *Corpus) Describe(_ context.Context, _ string) (domain.TableSchema, error) {
	return domain.TableSchema{
		Exists: true,
		Columns: []string{
			"law_source", "article_reference", "article_title", "article_text", "hierarchy",
			"keywords", "related_institutes", "embedding", "source_url", "is_in_force", "last_synced_at",
		},
		Indexes: []string{"legal_articles_source_ref_key"},
	}, nil
}

// Apply is a no-op; the in-memory table has no DDL.
func (c *Corpus) Apply(_ context.Context, _ string) error {
	return nil
}

// Lifecycles is an in-memory lifecycle store.
type Lifecycles struct {
	mu     sync.RWMutex
	stages map[string]domain.Lifecycle
}

// NewLifecycles creates an empty lifecycle store.
func NewLifecycles() *Lifecycles {
	return &Lifecycles{stages: make(map[string]domain.Lifecycle)}
}

// Lifecycles returns the recorded stages.
func (l *Lifecycles) Lifecycles(_ context.Context) (map[string]domain.Lifecycle, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]domain.Lifecycle, len(l.stages))
	for k, v := range l.stages {
		out[k] = v
	}
	return out, nil
}

// SetLifecycle records the stage of a source.
func (l *Lifecycles) SetLifecycle(_ context.Context, sourceID string, stage domain.Lifecycle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stages[sourceID] = stage
	return nil
}
