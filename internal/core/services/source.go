package services

import (
	"context"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
	"github.com/custodia-labs/lexsync/internal/core/ports/driving"
)

// Ensure SourceService implements the interface.
var _ driving.SourceService = (*SourceService)(nil)

// SourceService exposes the catalog and the latest ledger activity.
type SourceService struct {
	catalog driven.SourceCatalog
	ledger  driven.SyncLedger
}

// NewSourceService creates a new source service.
func NewSourceService(catalog driven.SourceCatalog, ledger driven.SyncLedger) *SourceService {
	return &SourceService{catalog: catalog, ledger: ledger}
}

// List returns every source with its current lifecycle.
func (s *SourceService) List(ctx context.Context) ([]domain.DataSource, error) {
	return s.catalog.List(ctx)
}

// Get returns one source.
func (s *SourceService) Get(ctx context.Context, id string) (domain.DataSource, error) {
	if id == "" {
		return domain.DataSource{}, domain.ErrInvalidInput
	}
	return s.catalog.Get(ctx, id)
}

// Status returns the newest ledger entry of every source that has one.
func (s *SourceService) Status(ctx context.Context) ([]domain.ConnectorStatus, error) {
	if s.ledger == nil {
		return nil, nil
	}
	return s.ledger.Status(ctx)
}

// ByLifecycle groups sources by stage, most advanced last.
func ByLifecycle(sources []domain.DataSource) map[domain.Lifecycle][]domain.DataSource {
	out := make(map[domain.Lifecycle][]domain.DataSource, len(domain.Lifecycles()))
	for _, s := range sources {
		out[s.Lifecycle] = append(out[s.Lifecycle], s)
	}
	return out
}
