package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSourceNotFound indicates the source id is not in the catalog.
	ErrSourceNotFound = errors.New("source not found")

	// ErrNotRegistered indicates no plugin is registered for a key.
	ErrNotRegistered = errors.New("not registered")

	// ErrSchemaNotReady indicates the destination lacks required structure.
	ErrSchemaNotReady = errors.New("schema not ready")

	// ErrNoValidArticles indicates every fetched article failed validation.
	ErrNoValidArticles = errors.New("no valid articles")

	// ErrDocumentNotFound indicates the upstream act could not be located.
	ErrDocumentNotFound = errors.New("document not found upstream")

	// ErrDownloadFailed indicates every download path failed.
	ErrDownloadFailed = errors.New("download failed")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// ResolutionError is returned when the plugin registry has no builder for a key.
type ResolutionError struct {
	// Kind is the plugin family: connector, model or store.
	Kind  string
	Key   string
	Known []string
}

func (e *ResolutionError) Error() string {
	known := "(none)"
	if len(e.Known) > 0 {
		sorted := append([]string(nil), e.Known...)
		sort.Strings(sorted)
		known = strings.Join(sorted, ", ")
	}
	return fmt.Sprintf("no %s registered for %q (available: %s)", e.Kind, e.Key, known)
}

// Unwrap lets callers match with errors.Is(err, ErrNotRegistered).
func (e *ResolutionError) Unwrap() error {
	return ErrNotRegistered
}
