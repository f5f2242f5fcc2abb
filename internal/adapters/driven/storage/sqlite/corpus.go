package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
)

// ==================== Article Writer ====================

// articleWriter implements driven.ArticleWriter over legal_articles.
// The table is created by the migration the MODEL phase proposes.
type articleWriter struct {
	store *Store
}

var _ driven.ArticleWriter = (*articleWriter)(nil)

// UpsertBatch writes a batch in one transaction. Rows keyed on
// (law_source, article_reference) are updated when their content hash
// differs, or when an unchanged row gains its first vector.
func (w *articleWriter) UpsertBatch(ctx context.Context, articles []domain.LegalArticle) (domain.UpsertOutcome, error) {
	var out domain.UpsertOutcome

	tx, err := w.store.db.BeginTx(ctx, nil)
	if err != nil {
		return out, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := w.store.now().UTC()
	for _, a := range articles {
		existing, err := loadArticle(ctx, tx, a.LawSource, a.ArticleReference)
		if err != nil {
			return domain.UpsertOutcome{}, err
		}

		cols, err := articleValues(a)
		if err != nil {
			return domain.UpsertOutcome{}, err
		}

		switch {
		case existing == nil:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO legal_articles (
					law_source, article_reference, article_title, article_text, hierarchy,
					keywords, related_institutes, embedding, source_url, is_in_force,
					last_synced_at, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, a.LawSource, a.ArticleReference, cols.title, a.Text, cols.hierarchy,
				cols.keywords, cols.institutes, cols.embedding, cols.sourceURL, boolToInt(a.InForce),
				now, now, now)
			if err != nil {
				return domain.UpsertOutcome{}, fmt.Errorf("inserting %s: %w", a.Key(), err)
			}
			out.Inserted++

		case existing.ContentHash() == a.ContentHash():
			if len(existing.Embedding) > 0 || cols.embedding == nil {
				out.Unchanged++
				continue
			}
			_, err = tx.ExecContext(ctx, `
				UPDATE legal_articles SET embedding = ?, last_synced_at = ?, updated_at = ?
				WHERE law_source = ? AND article_reference = ? AND embedding IS NULL
			`, cols.embedding, now, now, a.LawSource, a.ArticleReference)
			if err != nil {
				return domain.UpsertOutcome{}, fmt.Errorf("storing vector of %s: %w", a.Key(), err)
			}
			out.Updated++

		default:
			_, err = tx.ExecContext(ctx, `
				UPDATE legal_articles SET
					article_title = ?, article_text = ?, hierarchy = ?, keywords = ?,
					related_institutes = ?, embedding = COALESCE(?, embedding), source_url = ?,
					is_in_force = ?, last_synced_at = ?, updated_at = ?
				WHERE law_source = ? AND article_reference = ?
			`, cols.title, a.Text, cols.hierarchy, cols.keywords,
				cols.institutes, cols.embedding, cols.sourceURL,
				boolToInt(a.InForce), now, now,
				a.LawSource, a.ArticleReference)
			if err != nil {
				return domain.UpsertOutcome{}, fmt.Errorf("updating %s: %w", a.Key(), err)
			}
			out.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.UpsertOutcome{}, fmt.Errorf("committing transaction: %w", err)
	}
	return out, nil
}

// NeedsEmbedding reports which articles are missing from the table, differ
// from the stored row or are stored without a vector.
func (w *articleWriter) NeedsEmbedding(ctx context.Context, articles []domain.LegalArticle) ([]bool, error) {
	out := make([]bool, len(articles))
	for i, a := range articles {
		existing, err := loadArticle(ctx, w.store.db, a.LawSource, a.ArticleReference)
		if err != nil {
			return nil, err
		}
		out[i] = existing == nil || len(existing.Embedding) == 0 || existing.ContentHash() != a.ContentHash()
	}
	return out, nil
}

type articleColumns struct {
	title      sql.NullString
	sourceURL  sql.NullString
	hierarchy  string
	keywords   string
	institutes string
	embedding  any
}

func articleValues(a domain.LegalArticle) (articleColumns, error) {
	hierarchy, err := json.Marshal(a.Hierarchy)
	if err != nil {
		return articleColumns{}, fmt.Errorf("marshalling hierarchy: %w", err)
	}
	keywords, err := marshalList(a.Keywords)
	if err != nil {
		return articleColumns{}, err
	}
	institutes, err := marshalList(a.RelatedInstitutes)
	if err != nil {
		return articleColumns{}, err
	}
	cols := articleColumns{
		title:      sql.NullString{String: a.Title, Valid: a.Title != ""},
		sourceURL:  sql.NullString{String: a.SourceURL, Valid: a.SourceURL != ""},
		hierarchy:  string(hierarchy),
		keywords:   keywords,
		institutes: institutes,
	}
	// A nil interface binds NULL; an empty blob would not.
	if blob := float32SliceToBytes(a.Embedding); blob != nil {
		cols.embedding = blob
	}
	return cols, nil
}

func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshalling list: %w", err)
	}
	return string(data), nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// loadArticle returns the stored article, or nil when there is none.
func loadArticle(ctx context.Context, q rowQuerier, lawSource, reference string) (*domain.LegalArticle, error) {
	var (
		title, sourceURL                sql.NullString
		hierarchy, keywords, institutes string
		inForce                         int
		embedding                       []byte
	)
	a := domain.LegalArticle{LawSource: lawSource, ArticleReference: reference}
	err := q.QueryRowContext(ctx, `
		SELECT article_title, article_text, hierarchy, keywords, related_institutes,
			embedding, source_url, is_in_force
		FROM legal_articles
		WHERE law_source = ? AND article_reference = ?
	`, lawSource, reference).Scan(&title, &a.Text, &hierarchy, &keywords, &institutes,
		&embedding, &sourceURL, &inForce)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s %s: %w", lawSource, reference, err)
	}

	a.Title = title.String
	a.SourceURL = sourceURL.String
	a.InForce = inForce != 0
	a.Embedding = bytesToFloat32Slice(embedding)
	if err := json.Unmarshal([]byte(hierarchy), &a.Hierarchy); err != nil {
		return nil, fmt.Errorf("unmarshalling hierarchy: %w", err)
	}
	if err := json.Unmarshal([]byte(keywords), &a.Keywords); err != nil {
		return nil, fmt.Errorf("unmarshalling keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(institutes), &a.RelatedInstitutes); err != nil {
		return nil, fmt.Errorf("unmarshalling related institutes: %w", err)
	}
	return &a, nil
}

// ==================== Schema Inspector ====================

// schemaInspector implements driven.SchemaInspector with SQLite pragmas.
type schemaInspector struct {
	store *Store
}

var _ driven.SchemaInspector = (*schemaInspector)(nil)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Describe reports the columns and indexes of a table. A missing table is
// reported as not existing, not as an error.
func (i *schemaInspector) Describe(ctx context.Context, table string) (domain.TableSchema, error) {
	if !identifier.MatchString(table) {
		return domain.TableSchema{}, fmt.Errorf("%w: table name %q", domain.ErrInvalidInput, table)
	}

	columns, err := i.pragmaNames(ctx, "table_info", table)
	if err != nil {
		return domain.TableSchema{}, err
	}
	if len(columns) == 0 {
		return domain.TableSchema{}, nil
	}
	indexes, err := i.pragmaNames(ctx, "index_list", table)
	if err != nil {
		return domain.TableSchema{}, err
	}
	return domain.TableSchema{Exists: true, Columns: columns, Indexes: indexes}, nil
}

// Apply runs DDL in a single transaction.
func (i *schemaInspector) Apply(ctx context.Context, ddl string) error {
	tx, err := i.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("applying DDL: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing DDL: %w", err)
	}
	return nil
}

// pragmaNames returns the "name" column of a table pragma.
func (i *schemaInspector) pragmaNames(ctx context.Context, pragma, table string) ([]string, error) {
	rows, err := i.store.db.QueryContext(ctx, fmt.Sprintf("PRAGMA %s(%s)", pragma, table))
	if err != nil {
		return nil, fmt.Errorf("reading %s of %s: %w", pragma, table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading %s columns: %w", pragma, err)
	}
	nameIdx := -1
	for idx, c := range cols {
		if c == "name" {
			nameIdx = idx
		}
	}
	if nameIdx < 0 {
		return nil, fmt.Errorf("pragma %s has no name column", pragma)
	}

	var names []string
	values := make([]sql.RawBytes, len(cols))
	dest := make([]any, len(cols))
	for idx := range values {
		dest[idx] = &values[idx]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", pragma, err)
		}
		names = append(names, string(values[nameIdx]))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", pragma, err)
	}
	return names, nil
}
