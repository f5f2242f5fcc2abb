package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexsync/internal/core/domain"
)

func TestSourcesCmd_Use(t *testing.T) {
	assert.Equal(t, "sources", sourcesCmd.Use)
}

func TestSourcesCmd_GroupsByLifecycle(t *testing.T) {
	defer withServices(nil, &mockSources{sources: sampleSources()}, nil)()

	out, err := execute("sources")
	require.NoError(t, err)

	planned := strings.Index(out, "planned (2)")
	loaded := strings.Index(out, "loaded (1)")
	require.NotEqual(t, -1, planned, out)
	require.NotEqual(t, -1, loaded, out)
	assert.Less(t, planned, loaded, "groups follow lifecycle order")
	assert.NotContains(t, out, "api-tested", "empty groups are omitted")
	assert.Contains(t, out, "codice-civile")
	assert.Contains(t, out, "~3150")
	assert.Contains(t, out, "3 sources")
}

func TestSourcesCmd_Empty(t *testing.T) {
	defer withServices(nil, &mockSources{}, nil)()

	out, err := execute("sources")
	require.NoError(t, err)
	assert.Contains(t, out, "No sources in the catalog.")
}

func TestSourcesCmd_ServiceError(t *testing.T) {
	defer withServices(nil, &mockSources{err: errUpstream}, nil)()

	_, err := execute("sources")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing sources")
}

func TestSourcesCmd_ServiceNotConfigured(t *testing.T) {
	defer withServices(nil, nil, nil)()

	_, err := execute("sources")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source service not configured")
}

func TestStatusCmd_ListsLatestEntries(t *testing.T) {
	defer withServices(nil, &mockSources{statuses: []domain.ConnectorStatus{
		{SourceID: "codice-civile", Status: domain.SyncCompleted, Phase: domain.PhaseLoad, SyncType: domain.SyncTypeFull, CompletedAt: completedAt("2026-03-01T10:00:00Z")},
		{SourceID: "gdpr", Status: domain.SyncRunning, Phase: domain.PhaseConnect, SyncType: domain.SyncTypeFull},
	}}, nil)()

	out, err := execute("status")
	require.NoError(t, err)
	assert.Contains(t, out, "SOURCE")
	assert.Contains(t, out, "codice-civile")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "running")
}

func TestStatusCmd_Empty(t *testing.T) {
	defer withServices(nil, &mockSources{}, nil)()

	out, err := execute("status")
	require.NoError(t, err)
	assert.Contains(t, out, "No syncs recorded yet.")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Codice", truncate("Codice", 10))
	assert.Equal(t, "Codi…", truncate("Codice", 5))
	assert.Equal(t, "…", truncate("Codice", 1))
	assert.Equal(t, "Codice", truncate("Codice", 0))
}
