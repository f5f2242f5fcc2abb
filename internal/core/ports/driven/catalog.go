package driven

import (
	"context"

	"github.com/custodia-labs/lexsync/internal/core/domain"
)

// SourceCatalog is the registry of data sources.
type SourceCatalog interface {
	// Get returns a source by id, or domain.ErrSourceNotFound.
	Get(ctx context.Context, id string) (domain.DataSource, error)

	// List returns every source in catalog order.
	List(ctx context.Context) ([]domain.DataSource, error)

	// Advance moves a source forward to the given stage.
	// Requests that would move it backwards are ignored.
	Advance(ctx context.Context, id string, stage domain.Lifecycle) error
}

// LifecycleStore persists lifecycle progress made at runtime.
type LifecycleStore interface {
	// Lifecycles returns the persisted stage of every advanced source.
	Lifecycles(ctx context.Context) (map[string]domain.Lifecycle, error)

	// SetLifecycle records the stage for a source.
	SetLifecycle(ctx context.Context, sourceID string, stage domain.Lifecycle) error
}

// PipelineMetrics records pipeline activity. Optional.
type PipelineMetrics interface {
	// PhaseFinished counts a closed ledger entry.
	PhaseFinished(sourceID string, phase domain.Phase, status domain.SyncStatus)

	// ArticlesStored adds the outcome of a store call.
	ArticlesStored(sourceID string, result domain.StoreResult)
}
