package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
	"github.com/custodia-labs/lexsync/internal/errors"
)

// Ensure LegalArticleModel implements the interface.
var _ driven.DataModel = (*LegalArticleModel)(nil)

// Target table and embedding defaults of the legal corpus.
const (
	LegalArticlesTable  = "legal_articles"
	LegalEmbeddingModel = "voyage-law-2"
	LegalEmbeddingDims  = 1024
)

// LegalArticleModel decides how legal articles are laid out for semantic
// search, tree navigation and idempotent upsert.
type LegalArticleModel struct {
	inspector driven.SchemaInspector
}

// NewLegalArticleModel creates the model. The inspector is required for
// CheckSchema.
func NewLegalArticleModel(inspector driven.SchemaInspector) *LegalArticleModel {
	return &LegalArticleModel{inspector: inspector}
}

// Analyze derives the target data model from sample articles.
func (m *LegalArticleModel) Analyze(sample []domain.ParsedArticle) domain.DataModelSpec {
	var hasHierarchy, hasURLs bool
	var totalText int
	for _, a := range sample {
		if !a.Hierarchy.IsEmpty() {
			hasHierarchy = true
		}
		if a.SourceURL != "" {
			hasURLs = true
		}
		totalText += utf8.RuneCountInString(a.Text)
	}
	avgText := 0
	if len(sample) > 0 {
		avgText = (totalText + len(sample)/2) / len(sample)
	}

	hierarchyPurpose := "Structural hierarchy (absent from samples)"
	if hasHierarchy {
		hierarchyPurpose = "Tree navigation (book > title > chapter > section)"
	}
	urlPurpose := "Source URL (absent from samples)"
	if hasURLs {
		urlPurpose = "Link to the original source"
	}

	return domain.DataModelSpec{
		TableName: LegalArticlesTable,
		Columns: []domain.ColumnSpec{
			{Name: "law_source", Type: "TEXT NOT NULL", Purpose: "Source identification for filtering and direct lookup"},
			{Name: "article_reference", Type: "TEXT NOT NULL", Purpose: "Article number for direct lookup (Art. 1537)"},
			{Name: "article_title", Type: "TEXT", Purpose: "Article heading for display"},
			{Name: "article_text", Type: "TEXT NOT NULL", Purpose: fmt.Sprintf("Full text for retrieval and display (avg %d chars)", avgText)},
			{Name: "hierarchy", Type: "TEXT NOT NULL DEFAULT '{}'", Purpose: hierarchyPurpose},
			{Name: "keywords", Type: "TEXT NOT NULL DEFAULT '[]'", Purpose: "Fast filter by legal term"},
			{Name: "related_institutes", Type: "TEXT NOT NULL DEFAULT '[]'", Purpose: "Links to legal institutes (vendita_a_corpo, fideiussione)"},
			{Name: "embedding", Type: "BLOB", Purpose: fmt.Sprintf("Semantic search via %s (%d dims)", LegalEmbeddingModel, LegalEmbeddingDims)},
			{Name: "source_url", Type: "TEXT", Purpose: urlPurpose},
			{Name: "is_in_force", Type: "INTEGER NOT NULL DEFAULT 1", Purpose: "Whether the article is in force"},
			{Name: "last_synced_at", Type: "TIMESTAMP", Purpose: "Delta update tracking"},
		},
		Indexes: []domain.IndexSpec{
			{Name: "legal_articles_embedding_idx", Type: "vector", Purpose: "Nearest-neighbour search (cosine distance)"},
			{Name: "legal_articles_source_ref_key", Type: "btree unique", Purpose: "Idempotent upsert on (law_source, article_reference)"},
			{Name: "legal_articles_institutes_idx", Type: "btree", Purpose: "Filter by legal institute"},
		},
		Embedding: domain.EmbeddingStrategy{
			Model:      LegalEmbeddingModel,
			Dimensions: LegalEmbeddingDims,
			Fields:     []string{"law_source", "article_reference", "article_title", "article_text"},
			InputType:  "document",
		},
		Transforms: []domain.TransformRule{
			{SourceField: "articleNumber", TargetColumn: "article_reference", Transform: "format_as_Art_N"},
			{SourceField: "articleTitle", TargetColumn: "article_title", Transform: "direct"},
			{SourceField: "articleText", TargetColumn: "article_text", Transform: "clean_html_entities"},
			{SourceField: "hierarchy", TargetColumn: "hierarchy", Transform: "direct"},
			{SourceField: "(computed)", TargetColumn: "keywords", Transform: "extract_legal_terms_from_text"},
			{SourceField: "(computed)", TargetColumn: "related_institutes", Transform: "map_article_to_institutes"},
			{SourceField: "(concatenated)", TargetColumn: "embedding", Transform: "voyage_law_2_embedding"},
		},
	}
}

// CheckSchema compares the data model with the live table and proposes DDL for
// whatever is missing. It never executes the DDL.
func (m *LegalArticleModel) CheckSchema(ctx context.Context, spec domain.DataModelSpec) (domain.ModelResult, error) {
	if m.inspector == nil {
		return domain.ModelResult{}, errors.New("legal model: no schema inspector configured")
	}

	live, err := m.inspector.Describe(ctx, spec.TableName)
	if err != nil {
		return domain.ModelResult{}, errors.Wrapf(err, "describe %s", spec.TableName)
	}

	if !live.Exists {
		spec.MigrationSQL = createTableSQL(spec)
		return domain.ModelResult{
			Spec:    spec,
			Message: fmt.Sprintf("table %s does not exist", spec.TableName),
		}, nil
	}

	spec.Columns = append([]domain.ColumnSpec(nil), spec.Columns...)
	var missing []domain.ColumnSpec
	for i := range spec.Columns {
		spec.Columns[i].Exists = live.HasColumn(spec.Columns[i].Name)
		if !spec.Columns[i].Exists {
			missing = append(missing, spec.Columns[i])
		}
	}
	spec.Indexes = append([]domain.IndexSpec(nil), spec.Indexes...)
	for i := range spec.Indexes {
		spec.Indexes[i].Exists = live.HasIndex(spec.Indexes[i].Name)
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		stmts := make([]string, 0, len(missing))
		for _, c := range missing {
			names = append(names, c.Name)
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s;", spec.TableName, c.Name, addColumnType(c.Type)))
		}
		spec.MigrationSQL = strings.Join(stmts, "\n")
		return domain.ModelResult{
			Spec:           spec,
			Message:        fmt.Sprintf("%d missing columns: %s", len(missing), strings.Join(names, ", ")),
			MissingColumns: names,
		}, nil
	}

	return domain.ModelResult{
		Ready:   true,
		Spec:    spec,
		Message: fmt.Sprintf("table %s ready | %d columns verified", spec.TableName, len(spec.Columns)),
	}, nil
}

// DescribeTransform renders the transform rules on one line.
func (m *LegalArticleModel) DescribeTransform(spec domain.DataModelSpec) string {
	parts := make([]string, 0, len(spec.Transforms))
	for _, r := range spec.Transforms {
		parts = append(parts, fmt.Sprintf("%s → %s (%s)", r.SourceField, r.TargetColumn, r.Transform))
	}
	return strings.Join(parts, " | ")
}

// createTableSQL renders the table with its relational indexes. The vector
// index has no SQLite equivalent and is served by the search layer.
func createTableSQL(spec domain.DataModelSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", spec.TableName)
	b.WriteString("  id INTEGER PRIMARY KEY AUTOINCREMENT,\n")
	for _, c := range spec.Columns {
		fmt.Fprintf(&b, "  %s %s,\n", c.Name, c.Type)
	}
	b.WriteString("  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,\n")
	b.WriteString("  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP\n")
	b.WriteString(");\n")

	for _, idx := range spec.Indexes {
		switch idx.Name {
		case "legal_articles_source_ref_key":
			fmt.Fprintf(&b, "CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s(law_source, article_reference);\n", idx.Name, spec.TableName)
		case "legal_articles_institutes_idx":
			fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS %s ON %s(related_institutes);\n", idx.Name, spec.TableName)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// addColumnType makes a column type acceptable to ALTER TABLE ADD COLUMN,
// which rejects NOT NULL without a default.
func addColumnType(t string) string {
	upper := strings.ToUpper(t)
	if strings.Contains(upper, "NOT NULL") && !strings.Contains(upper, "DEFAULT") {
		return t + " DEFAULT ''"
	}
	return t
}
