package driven

import (
	"context"

	"github.com/custodia-labs/lexsync/internal/core/domain"
)

// DataModel negotiates the target schema for one data type.
type DataModel interface {
	// Analyze derives the target spec from a handful of sample articles.
	Analyze(sample []domain.ParsedArticle) domain.DataModelSpec

	// CheckSchema compares the spec with the live schema.
	// It proposes DDL in the result but never executes it.
	CheckSchema(ctx context.Context, spec domain.DataModelSpec) (domain.ModelResult, error)

	// DescribeTransform renders the transform rules for operators.
	DescribeTransform(spec domain.DataModelSpec) string
}

// DataModelBuilder creates the model for a data type.
type DataModelBuilder func() (DataModel, error)

// SchemaInspector reports the live structure of the destination store.
type SchemaInspector interface {
	// Describe returns the table's columns and indexes.
	// A missing table is reported with Exists=false, not an error.
	Describe(ctx context.Context, table string) (domain.TableSchema, error)

	// Apply runs operator-approved DDL. The pipeline never calls it.
	Apply(ctx context.Context, ddl string) error
}
