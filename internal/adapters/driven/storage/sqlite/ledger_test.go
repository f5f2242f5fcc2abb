package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexsync/internal/core/domain"
)

func TestSyncLedger_StartComplete(t *testing.T) {
	store := setupTestStore(t)
	ledger := store.Ledger()
	ctx := context.Background()

	id, err := ledger.Start(ctx, "codice-civile", domain.SyncTypeFull, domain.PhaseLoad)
	require.NoError(t, err)

	hist, err := ledger.History(ctx, "codice-civile", 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, domain.SyncRunning, hist[0].Status)
	assert.Nil(t, hist[0].CompletedAt)

	err = ledger.Complete(ctx, id, domain.SyncCompletion{
		Status:       domain.SyncFailed,
		Counts:       domain.SyncCounts{Fetched: 10, Inserted: 7, Errors: 3},
		ErrorDetails: []domain.ItemError{{Item: "c.c. Art. 2", Error: "constraint failed"}},
		Metadata:     map[string]string{"format": "akn"},
	})
	require.NoError(t, err)

	hist, err = ledger.History(ctx, "codice-civile", 0)
	require.NoError(t, err)
	e := hist[0]
	assert.Equal(t, id, e.ID)
	assert.Equal(t, domain.SyncFailed, e.Status)
	assert.Equal(t, domain.SyncTypeFull, e.SyncType)
	assert.Equal(t, domain.PhaseLoad, e.Phase)
	require.NotNil(t, e.CompletedAt)
	assert.False(t, e.CompletedAt.Before(e.StartedAt))
	assert.Equal(t, domain.SyncCounts{Fetched: 10, Inserted: 7, Errors: 3}, e.Counts)
	assert.Equal(t, []domain.ItemError{{Item: "c.c. Art. 2", Error: "constraint failed"}}, e.ErrorDetails)
	assert.Equal(t, map[string]string{"format": "akn"}, e.Metadata)
}

func TestSyncLedger_CompleteOnce(t *testing.T) {
	store := setupTestStore(t)
	ledger := store.Ledger()
	ctx := context.Background()

	id, err := ledger.Start(ctx, "gdpr", domain.SyncTypeFull, domain.PhaseConnect)
	require.NoError(t, err)
	require.NoError(t, ledger.Complete(ctx, id, domain.SyncCompletion{Status: domain.SyncCompleted}))

	err = ledger.Complete(ctx, id, domain.SyncCompletion{Status: domain.SyncFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already closed as completed")

	err = ledger.Complete(ctx, "missing", domain.SyncCompletion{Status: domain.SyncCompleted})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = ledger.Complete(ctx, id, domain.SyncCompletion{Status: domain.SyncRunning})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSyncLedger_LastSuccessful(t *testing.T) {
	store := setupTestStore(t)
	store.now = steppingClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	ledger := store.Ledger()
	ctx := context.Background()

	_, err := ledger.LastSuccessful(ctx, "codice-civile", domain.PhaseLoad)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	first, _ := ledger.Start(ctx, "codice-civile", domain.SyncTypeFull, domain.PhaseLoad)
	require.NoError(t, ledger.Complete(ctx, first, domain.SyncCompletion{Status: domain.SyncCompleted}))
	second, _ := ledger.Start(ctx, "codice-civile", domain.SyncTypeDelta, domain.PhaseLoad)
	require.NoError(t, ledger.Complete(ctx, second, domain.SyncCompletion{Status: domain.SyncCompleted}))
	failed, _ := ledger.Start(ctx, "codice-civile", domain.SyncTypeDelta, domain.PhaseLoad)
	require.NoError(t, ledger.Complete(ctx, failed, domain.SyncCompletion{Status: domain.SyncFailed}))
	model, _ := ledger.Start(ctx, "codice-civile", domain.SyncTypeModel, domain.PhaseModel)
	require.NoError(t, ledger.Complete(ctx, model, domain.SyncCompletion{Status: domain.SyncCompleted}))
	dry, _ := ledger.Start(ctx, "codice-civile", domain.SyncTypeDelta, domain.PhaseLoad)
	require.NoError(t, ledger.Complete(ctx, dry, domain.SyncCompletion{
		Status:   domain.SyncCompleted,
		Metadata: map[string]string{domain.MetadataDryRun: "true", "format": "akn"},
	}))

	last, err := ledger.LastSuccessful(ctx, "codice-civile", domain.PhaseLoad)
	require.NoError(t, err)
	assert.Equal(t, second, last.ID)
	require.NotNil(t, last.CompletedAt)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 4, 0, time.UTC), *last.CompletedAt)
}

func TestSyncLedger_HistoryAndStatus(t *testing.T) {
	store := setupTestStore(t)
	store.now = steppingClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	ledger := store.Ledger()
	ctx := context.Background()

	for _, p := range []domain.Phase{domain.PhaseConnect, domain.PhaseModel, domain.PhaseLoad} {
		_, err := ledger.Start(ctx, "codice-civile", domain.SyncTypeFull, p)
		require.NoError(t, err)
	}
	gdpr, _ := ledger.Start(ctx, "gdpr", domain.SyncTypeFull, domain.PhaseConnect)
	require.NoError(t, ledger.Complete(ctx, gdpr, domain.SyncCompletion{Status: domain.SyncCompleted}))

	hist, err := ledger.History(ctx, "codice-civile", 2)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, domain.PhaseLoad, hist[0].Phase)
	assert.Equal(t, domain.PhaseModel, hist[1].Phase)

	hist, err = ledger.History(ctx, "dsa", 5)
	require.NoError(t, err)
	assert.Empty(t, hist)

	status, err := ledger.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.Equal(t, "codice-civile", status[0].SourceID)
	assert.Equal(t, domain.PhaseLoad, status[0].Phase)
	assert.Equal(t, domain.SyncRunning, status[0].Status)
	assert.Nil(t, status[0].CompletedAt)
	assert.Equal(t, "gdpr", status[1].SourceID)
	assert.Equal(t, domain.SyncCompleted, status[1].Status)
	assert.NotNil(t, status[1].CompletedAt)
}

func TestLifecycleStore(t *testing.T) {
	store := setupTestStore(t)
	lifecycles := store.Lifecycles()
	ctx := context.Background()

	got, err := lifecycles.Lifecycles(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, lifecycles.SetLifecycle(ctx, "gdpr", domain.LifecycleAPITested))
	require.NoError(t, lifecycles.SetLifecycle(ctx, "gdpr", domain.LifecycleLoaded))
	require.NoError(t, lifecycles.SetLifecycle(ctx, "dsa", domain.LifecycleSchemaReady))

	got, err = lifecycles.Lifecycles(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.Lifecycle{
		"gdpr": domain.LifecycleLoaded,
		"dsa":  domain.LifecycleSchemaReady,
	}, got)
}
