package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexsync/internal/core/domain"
)

func TestHistoryCmd_Use(t *testing.T) {
	assert.Equal(t, "history [source-id]", historyCmd.Use)
}

func TestHistoryCmd_ListsEntries(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &mockPipeline{history: []domain.SyncLogEntry{
		{
			Phase: domain.PhaseLoad, SyncType: domain.SyncTypeFull, Status: domain.SyncFailed,
			StartedAt: started, CompletedAt: completedAt("2026-03-01T10:00:02Z"),
			Counts:       domain.SyncCounts{Fetched: 3, Errors: 3},
			ErrorDetails: []domain.ItemError{{Item: "Art. 1470", Error: "disk full"}},
		},
		{
			Phase: domain.PhaseConnect, SyncType: domain.SyncTypeFull, Status: domain.SyncCompleted,
			StartedAt: started.Add(-time.Minute), CompletedAt: completedAt("2026-03-01T09:59:01Z"),
			Counts: domain.SyncCounts{Fetched: 3150},
		},
	}}
	defer withServices(p, nil, nil)()

	out, err := execute("history", "codice-civile", "--limit", "5")
	require.NoError(t, err)

	assert.Equal(t, "codice-civile", p.lastID)
	assert.Equal(t, 5, p.lastOpts.Limit)
	assert.Contains(t, out, "STARTED")
	assert.Contains(t, out, "3150")
	assert.Contains(t, out, "2s")
	assert.Contains(t, out, "Art. 1470: disk full")
}

func TestHistoryCmd_DefaultLimit(t *testing.T) {
	p := &mockPipeline{}
	defer withServices(p, nil, nil)()

	out, err := execute("history", "gdpr")
	require.NoError(t, err)
	assert.Equal(t, 20, p.lastOpts.Limit)
	assert.Contains(t, out, "No syncs recorded for gdpr.")
}

func TestHistoryCmd_Error(t *testing.T) {
	defer withServices(&mockPipeline{err: errUpstream}, nil, nil)()

	_, err := execute("history", "gdpr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading history")
}
