package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
)

// syncLedger implements driven.SyncLedger over the sync_log table.
type syncLedger struct {
	store *Store
}

var _ driven.SyncLedger = (*syncLedger)(nil)

const syncLogColumns = `id, source_id, sync_type, phase, status, started_at, completed_at,
	items_fetched, items_inserted, items_updated, items_skipped, items_errors,
	error_details, metadata`

// Start opens a running entry.
func (l *syncLedger) Start(ctx context.Context, sourceID string, syncType domain.SyncType, phase domain.Phase) (string, error) {
	id := uuid.NewString()
	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO sync_log (id, source_id, sync_type, phase, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, sourceID, string(syncType), string(phase), string(domain.SyncRunning), formatTime(l.store.now()))
	if err != nil {
		return "", fmt.Errorf("opening sync entry: %w", err)
	}
	return id, nil
}

// Complete closes a running entry. Closing an entry twice is an error.
func (l *syncLedger) Complete(ctx context.Context, id string, c domain.SyncCompletion) error {
	if c.Status != domain.SyncCompleted && c.Status != domain.SyncFailed {
		return fmt.Errorf("%w: cannot close entry as %q", domain.ErrInvalidInput, c.Status)
	}

	details := c.ErrorDetails
	if details == nil {
		details = []domain.ItemError{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshalling error details: %w", err)
	}
	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	res, err := l.store.db.ExecContext(ctx, `
		UPDATE sync_log SET
			status = ?, completed_at = ?,
			items_fetched = ?, items_inserted = ?, items_updated = ?, items_skipped = ?, items_errors = ?,
			error_details = ?, metadata = ?
		WHERE id = ? AND status = ?
	`, string(c.Status), formatTime(l.store.now()),
		c.Counts.Fetched, c.Counts.Inserted, c.Counts.Updated, c.Counts.Skipped, c.Counts.Errors,
		string(detailsJSON), string(metadataJSON),
		id, string(domain.SyncRunning))
	if err != nil {
		return fmt.Errorf("closing sync entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("closing sync entry: %w", err)
	}
	if n == 1 {
		return nil
	}

	var status string
	err = l.store.db.QueryRowContext(ctx, "SELECT status FROM sync_log WHERE id = ?", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sync entry %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading sync entry: %w", err)
	}
	return fmt.Errorf("sync entry %s already closed as %s", id, status)
}

// LastSuccessful returns the most recently completed entry for the phase.
// Entries whose metadata marks a dry run are skipped.
func (l *syncLedger) LastSuccessful(ctx context.Context, sourceID string, phase domain.Phase) (*domain.SyncLogEntry, error) {
	row := l.store.db.QueryRowContext(ctx, `
		SELECT `+syncLogColumns+`
		FROM sync_log
		WHERE source_id = ? AND phase = ? AND status = ?
			AND COALESCE(json_extract(metadata, '$.'||?), '') <> 'true'
		ORDER BY completed_at DESC, rowid DESC
		LIMIT 1
	`, sourceID, string(phase), string(domain.SyncCompleted), domain.MetadataDryRun)

	entry, err := scanSyncEntry(row)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// History returns the newest entries of a source, newest first.
// A non-positive limit returns every entry.
func (l *syncLedger) History(ctx context.Context, sourceID string, limit int) ([]domain.SyncLogEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT `+syncLogColumns+`
		FROM sync_log
		WHERE source_id = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync history: %w", err)
	}
	defer rows.Close()

	var entries []domain.SyncLogEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		entry, err := scanSyncEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync history: %w", err)
	}
	return entries, nil
}

// Status returns the newest entry of every source, ordered by source id.
func (l *syncLedger) Status(ctx context.Context) ([]domain.ConnectorStatus, error) {
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT s.source_id, s.status, s.phase, s.sync_type, s.completed_at
		FROM sync_log s
		WHERE s.rowid = (
			SELECT rowid FROM sync_log
			WHERE source_id = s.source_id
			ORDER BY started_at DESC, rowid DESC
			LIMIT 1
		)
		ORDER BY s.source_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sync status: %w", err)
	}
	defer rows.Close()

	var out []domain.ConnectorStatus //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			st                      domain.ConnectorStatus
			status, phase, syncType string
			completedAt             sql.NullString
		)
		if err := rows.Scan(&st.SourceID, &status, &phase, &syncType, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning sync status: %w", err)
		}
		st.Status = domain.SyncStatus(status)
		st.Phase = domain.Phase(phase)
		st.SyncType = domain.SyncType(syncType)
		if completedAt.Valid {
			t, err := parseTime(completedAt.String)
			if err != nil {
				return nil, err
			}
			st.CompletedAt = &t
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync status: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncEntry(row rowScanner) (*domain.SyncLogEntry, error) {
	var (
		e                         domain.SyncLogEntry
		syncType, phase, status   string
		startedAt                 string
		completedAt               sql.NullString
		detailsJSON, metadataJSON string
	)
	err := row.Scan(&e.ID, &e.SourceID, &syncType, &phase, &status, &startedAt, &completedAt,
		&e.Counts.Fetched, &e.Counts.Inserted, &e.Counts.Updated, &e.Counts.Skipped, &e.Counts.Errors,
		&detailsJSON, &metadataJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning sync entry: %w", err)
	}

	e.SyncType = domain.SyncType(syncType)
	e.Phase = domain.Phase(phase)
	e.Status = domain.SyncStatus(status)
	if e.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		e.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(detailsJSON), &e.ErrorDetails); err != nil {
		return nil, fmt.Errorf("unmarshalling error details: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &e.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	return &e, nil
}

// lifecycleStore implements driven.LifecycleStore over source_lifecycle.
type lifecycleStore struct {
	store *Store
}

var _ driven.LifecycleStore = (*lifecycleStore)(nil)

// Lifecycles returns the persisted stage of every advanced source.
func (s *lifecycleStore) Lifecycles(ctx context.Context) (map[string]domain.Lifecycle, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT source_id, lifecycle FROM source_lifecycle")
	if err != nil {
		return nil, fmt.Errorf("querying lifecycles: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Lifecycle)
	for rows.Next() {
		var id, stage string
		if err := rows.Scan(&id, &stage); err != nil {
			return nil, fmt.Errorf("scanning lifecycle: %w", err)
		}
		out[id] = domain.Lifecycle(stage)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lifecycles: %w", err)
	}
	return out, nil
}

// SetLifecycle records the stage of a source.
func (s *lifecycleStore) SetLifecycle(ctx context.Context, sourceID string, stage domain.Lifecycle) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO source_lifecycle (source_id, lifecycle, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			lifecycle = excluded.lifecycle,
			updated_at = excluded.updated_at
	`, sourceID, string(stage), formatTime(s.store.now()))
	if err != nil {
		return fmt.Errorf("saving lifecycle: %w", err)
	}
	return nil
}
