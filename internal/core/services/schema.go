package services

import (
	"context"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
	"github.com/custodia-labs/lexsync/internal/core/ports/driving"
	"github.com/custodia-labs/lexsync/internal/errors"
	"github.com/custodia-labs/lexsync/internal/logger"
)

// Ensure SchemaService implements the interface.
var _ driving.ModelService = (*SchemaService)(nil)

// SchemaService applies proposed migrations on operator request. The
// pipeline itself only ever proposes them.
type SchemaService struct {
	catalog   driven.SourceCatalog
	plugins   *PluginRegistry
	inspector driven.SchemaInspector
}

// NewSchemaService creates a schema service.
func NewSchemaService(catalog driven.SourceCatalog, plugins *PluginRegistry, inspector driven.SchemaInspector) *SchemaService {
	return &SchemaService{catalog: catalog, plugins: plugins, inspector: inspector}
}

// ApplyMigration checks the schema for the source's data type and, when it
// is not ready, runs the proposed DDL and checks again.
func (s *SchemaService) ApplyMigration(ctx context.Context, sourceID string) (*domain.ModelResult, error) {
	source, err := s.catalog.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	model, err := s.plugins.ResolveModel(source.DataType)
	if err != nil {
		return nil, err
	}

	spec := model.Analyze(nil)
	res, err := model.CheckSchema(ctx, spec)
	if err != nil {
		return nil, err
	}
	if res.Ready {
		logger.Info("schema for %s already ready", sourceID)
		return &res, nil
	}
	if res.Spec.MigrationSQL == "" {
		return &res, errors.Mark(errors.Newf("schema for %s not ready and no migration proposed: %s", sourceID, res.Message), domain.ErrSchemaNotReady)
	}

	logger.Info("applying migration for %s:\n%s", sourceID, res.Spec.MigrationSQL)
	if err := s.inspector.Apply(ctx, res.Spec.MigrationSQL); err != nil {
		return &res, errors.Wrapf(err, "apply migration for %s", sourceID)
	}

	after, err := model.CheckSchema(ctx, spec)
	if err != nil {
		return nil, err
	}
	after.Spec.MigrationSQL = res.Spec.MigrationSQL
	if !after.Ready {
		return &after, errors.Mark(errors.Newf("schema for %s still not ready: %s", sourceID, after.Message), domain.ErrSchemaNotReady)
	}
	return &after, nil
}
