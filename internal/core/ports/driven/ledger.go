package driven

import (
	"context"

	"github.com/custodia-labs/lexsync/internal/core/domain"
)

// SyncLedger is the append-only record of pipeline-phase runs.
type SyncLedger interface {
	// Start opens a running entry and returns its id.
	Start(ctx context.Context, sourceID string, syncType domain.SyncType, phase domain.Phase) (string, error)

	// Complete closes an entry. Closing an entry twice is an error.
	Complete(ctx context.Context, id string, completion domain.SyncCompletion) error

	// LastSuccessful returns the most recent completed entry for the phase,
	// or domain.ErrNotFound. Dry runs are not successful loads.
	LastSuccessful(ctx context.Context, sourceID string, phase domain.Phase) (*domain.SyncLogEntry, error)

	// History returns the newest entries for a source, newest first.
	History(ctx context.Context, sourceID string, limit int) ([]domain.SyncLogEntry, error)

	// Status returns the newest entry of every source that has one.
	Status(ctx context.Context) ([]domain.ConnectorStatus, error)
}
