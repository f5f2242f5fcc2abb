package services

import (
	"sort"
	"sync"

	"github.com/custodia-labs/lexsync/internal/connectors/eurlex"
	"github.com/custodia-labs/lexsync/internal/connectors/normattiva"
	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
)

// Plugin families, as reported in resolution errors.
const (
	PluginConnector = "connector"
	PluginModel     = "model"
	PluginStore     = "store"
)

// PluginRegistry maps connector kinds and data types to their builders.
// It is populated at startup and passed to the pipeline.
type PluginRegistry struct {
	mu         sync.RWMutex
	connectors map[domain.ConnectorKind]driven.ConnectorBuilder
	models     map[domain.DataType]driven.DataModelBuilder
	stores     map[domain.DataType]driven.ArticleStoreBuilder
}

// RegisteredPlugins lists the keys known to a registry, sorted.
type RegisteredPlugins struct {
	Connectors []string
	Models     []string
	Stores     []string
}

// NewPluginRegistry creates an empty registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{
		connectors: make(map[domain.ConnectorKind]driven.ConnectorBuilder),
		models:     make(map[domain.DataType]driven.DataModelBuilder),
		stores:     make(map[domain.DataType]driven.ArticleStoreBuilder),
	}
}

// RegisterConnector adds or replaces the builder for a connector kind.
func (r *PluginRegistry) RegisterConnector(kind domain.ConnectorKind, builder driven.ConnectorBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[kind] = builder
}

// RegisterModel adds or replaces the model builder for a data type.
func (r *PluginRegistry) RegisterModel(dataType domain.DataType, builder driven.DataModelBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[dataType] = builder
}

// RegisterStore adds or replaces the store builder for a data type.
func (r *PluginRegistry) RegisterStore(dataType domain.DataType, builder driven.ArticleStoreBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[dataType] = builder
}

// ResolveConnector builds the connector for a source.
func (r *PluginRegistry) ResolveConnector(source domain.DataSource) (driven.Connector, error) {
	r.mu.RLock()
	builder, ok := r.connectors[source.Connector]
	r.mu.RUnlock()
	if !ok {
		return nil, &domain.ResolutionError{Kind: PluginConnector, Key: string(source.Connector), Known: r.Registered().Connectors}
	}
	return builder(source)
}

// ResolveModel builds the model for a data type.
func (r *PluginRegistry) ResolveModel(dataType domain.DataType) (driven.DataModel, error) {
	r.mu.RLock()
	builder, ok := r.models[dataType]
	r.mu.RUnlock()
	if !ok {
		return nil, &domain.ResolutionError{Kind: PluginModel, Key: string(dataType), Known: r.Registered().Models}
	}
	return builder()
}

// ResolveStore builds the store for a data type.
func (r *PluginRegistry) ResolveStore(dataType domain.DataType) (driven.ArticleStore, error) {
	r.mu.RLock()
	builder, ok := r.stores[dataType]
	r.mu.RUnlock()
	if !ok {
		return nil, &domain.ResolutionError{Kind: PluginStore, Key: string(dataType), Known: r.Registered().Stores}
	}
	return builder()
}

// Registered returns the registered keys of every family.
func (r *PluginRegistry) Registered() RegisteredPlugins {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out RegisteredPlugins
	for k := range r.connectors {
		out.Connectors = append(out.Connectors, string(k))
	}
	for k := range r.models {
		out.Models = append(out.Models, string(k))
	}
	for k := range r.stores {
		out.Stores = append(out.Stores, string(k))
	}
	sort.Strings(out.Connectors)
	sort.Strings(out.Models)
	sort.Strings(out.Stores)
	return out
}

// DefaultPlugins carries the collaborators of the built-in plugins.
type DefaultPlugins struct {
	Normattiva normattiva.Config
	EurLex     eurlex.Config

	// Cache is shared by connectors so later phases reuse resolved ids.
	Cache driven.IdentifierCache

	Inspector driven.SchemaInspector
	Writer    driven.ArticleWriter
	Embedder  driven.EmbeddingService
	Store     CorpusStoreConfig
}

// RegisterDefaults wires the built-in connectors and the legal-articles
// model and store. The hr-articles vertical shares the legal stack.
func RegisterDefaults(r *PluginRegistry, deps DefaultPlugins) {
	r.RegisterConnector(domain.ConnectorNormattiva, func(source domain.DataSource) (driven.Connector, error) {
		return normattiva.New(source, deps.Normattiva, deps.Cache), nil
	})
	r.RegisterConnector(domain.ConnectorEurLex, func(source domain.DataSource) (driven.Connector, error) {
		return eurlex.New(source, deps.EurLex, deps.Cache), nil
	})

	model := func() (driven.DataModel, error) {
		return NewLegalArticleModel(deps.Inspector), nil
	}
	store := func() (driven.ArticleStore, error) {
		return NewCorpusStore(deps.Writer, deps.Embedder, deps.Store), nil
	}
	for _, dt := range []domain.DataType{domain.DataTypeLegalArticles, domain.DataTypeHRArticles} {
		r.RegisterModel(dt, model)
		r.RegisterStore(dt, store)
	}
}
