package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexsync/internal/adapters/driven/catalog"
	"github.com/custodia-labs/lexsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexsync/internal/core/domain"
)

func TestSourceService(t *testing.T) {
	ctx := context.Background()
	gdpr := domain.DataSource{ID: "gdpr", Name: "GDPR", Connector: domain.ConnectorEurLex, Lifecycle: domain.LifecycleLoaded}
	cat, err := catalog.New(ctx, []domain.DataSource{codiceCivile(), gdpr}, nil)
	require.NoError(t, err)

	ledger := memory.NewLedger()
	_, err = ledger.Start(ctx, "gdpr", domain.SyncTypeFull, domain.PhaseConnect)
	require.NoError(t, err)

	svc := NewSourceService(cat, ledger)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := svc.Get(ctx, "gdpr")
	require.NoError(t, err)
	assert.Equal(t, "GDPR", got.Name)

	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Get(ctx, "dsa")
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, domain.SyncRunning, status[0].Status)

	status, err = NewSourceService(cat, nil).Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestByLifecycle(t *testing.T) {
	groups := ByLifecycle([]domain.DataSource{
		{ID: "a", Lifecycle: domain.LifecyclePlanned},
		{ID: "b", Lifecycle: domain.LifecycleLoaded},
		{ID: "c", Lifecycle: domain.LifecycleLoaded},
	})
	assert.Len(t, groups[domain.LifecyclePlanned], 1)
	assert.Len(t, groups[domain.LifecycleLoaded], 2)
	assert.Empty(t, groups[domain.LifecycleDeltaActive])
}
