// Package memory provides in-memory implementations of the storage ports,
// used for dry runs without a data directory and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
	"github.com/custodia-labs/lexsync/internal/errors"
)

// Ensure Ledger implements the interface.
var _ driven.SyncLedger = (*Ledger)(nil)

// Ledger is an in-memory implementation of driven.SyncLedger.
type Ledger struct {
	mu      sync.RWMutex
	entries []domain.SyncLogEntry
	now     func() time.Time
}

// NewLedger creates a new in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// Start opens a running entry.
func (l *Ledger) Start(_ context.Context, sourceID string, syncType domain.SyncType, phase domain.Phase) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := uuid.NewString()
	l.entries = append(l.entries, domain.SyncLogEntry{
		ID:        id,
		SourceID:  sourceID,
		SyncType:  syncType,
		Phase:     phase,
		Status:    domain.SyncRunning,
		StartedAt: l.now().UTC(),
	})
	return id, nil
}

// Complete closes an entry exactly once.
func (l *Ledger) Complete(_ context.Context, id string, c domain.SyncCompletion) error {
	if c.Status != domain.SyncCompleted && c.Status != domain.SyncFailed {
		return errors.Mark(errors.Newf("ledger: cannot close entry as %q", c.Status), domain.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		e := &l.entries[i]
		if e.ID != id {
			continue
		}
		if e.Status != domain.SyncRunning {
			return errors.Newf("ledger: entry %s already closed as %s", id, e.Status)
		}
		done := l.now().UTC()
		e.Status = c.Status
		e.CompletedAt = &done
		e.Counts = c.Counts
		e.ErrorDetails = append([]domain.ItemError(nil), c.ErrorDetails...)
		e.Metadata = copyMetadata(c.Metadata)
		return nil
	}
	return errors.Mark(errors.Newf("ledger: entry %s", id), domain.ErrNotFound)
}

// LastSuccessful returns the latest completed entry for the phase,
// ignoring dry runs.
func (l *Ledger) LastSuccessful(_ context.Context, sourceID string, phase domain.Phase) (*domain.SyncLogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var best *domain.SyncLogEntry
	for i := range l.entries {
		e := l.entries[i]
		if e.SourceID != sourceID || e.Phase != phase || e.Status != domain.SyncCompleted || e.IsDryRun() {
			continue
		}
		if best == nil || !e.CompletedAt.Before(*best.CompletedAt) {
			best = &e
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return best, nil
}

// History returns the newest entries of a source, newest first.
func (l *Ledger) History(_ context.Context, sourceID string, limit int) ([]domain.SyncLogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.SyncLogEntry
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].SourceID == sourceID {
			out = append(out, l.entries[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Status returns the newest entry of every source, sorted by source id.
func (l *Ledger) Status(_ context.Context) ([]domain.ConnectorStatus, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	latest := map[string]domain.SyncLogEntry{}
	for _, e := range l.entries {
		latest[e.SourceID] = e
	}
	out := make([]domain.ConnectorStatus, 0, len(latest))
	for _, e := range latest {
		out = append(out, domain.ConnectorStatus{
			SourceID:    e.SourceID,
			Status:      e.Status,
			Phase:       e.Phase,
			SyncType:    e.SyncType,
			CompletedAt: e.CompletedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out, nil
}

// Entries returns a copy of every entry in insertion order.
func (l *Ledger) Entries() []domain.SyncLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.SyncLogEntry(nil), l.entries...)
}

func copyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
