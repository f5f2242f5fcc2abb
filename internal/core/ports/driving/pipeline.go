package driving

import (
	"context"

	"github.com/custodia-labs/lexsync/internal/core/domain"
)

// PipelineService runs the CONNECT → MODEL → LOAD ingestion pipeline.
type PipelineService interface {
	// Run executes the phases for one source up to opts.StopAfter.
	Run(ctx context.Context, sourceID string, opts domain.PipelineOptions) (*domain.PipelineResult, error)

	// Connect runs the CONNECT phase only.
	Connect(ctx context.Context, sourceID string) (*domain.PipelineResult, error)

	// Model runs CONNECT and MODEL.
	Model(ctx context.Context, sourceID string) (*domain.PipelineResult, error)

	// Load runs all three phases.
	Load(ctx context.Context, sourceID string, opts domain.PipelineOptions) (*domain.PipelineResult, error)

	// Update runs all three phases in delta mode.
	Update(ctx context.Context, sourceID string) (*domain.PipelineResult, error)

	// UpdateAll runs Update for every loaded source, one at a time.
	UpdateAll(ctx context.Context) ([]*domain.PipelineResult, error)

	// History returns the newest ledger entries for a source.
	History(ctx context.Context, sourceID string, limit int) ([]domain.SyncLogEntry, error)
}

// SourceService exposes the catalog to the CLI.
type SourceService interface {
	// List returns every source with its current lifecycle.
	List(ctx context.Context) ([]domain.DataSource, error)

	// Get returns one source.
	Get(ctx context.Context, id string) (domain.DataSource, error)

	// Status returns the newest ledger entry of every source.
	Status(ctx context.Context) ([]domain.ConnectorStatus, error)
}

// ModelService exposes schema negotiation to operators.
type ModelService interface {
	// ApplyMigration runs the proposed DDL for a source's data type.
	ApplyMigration(ctx context.Context, sourceID string) (*domain.ModelResult, error)
}
