package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/lexsync/internal/core/domain"
)

// Connector adapts one upstream authority.
// Each connector kind (normattiva, eurlex) implements this interface.
type Connector interface {
	// Connect probes the source and estimates its volume.
	// Ordinary upstream failures are reported through ConnectResult.OK,
	// never as a panic or error, so the caller can record them.
	Connect(ctx context.Context) domain.ConnectResult

	// FetchAll downloads and parses the whole document.
	FetchAll(ctx context.Context, opts domain.FetchOptions) (*domain.FetchResult, error)

	// FetchDelta returns articles only if the document changed since the
	// watermark. An unchanged document yields an empty result without
	// downloading it; a changed one is re-fetched whole.
	FetchDelta(ctx context.Context, since time.Time, opts domain.FetchOptions) (*domain.FetchResult, error)
}

// ConnectorBuilder creates a connector bound to one source.
type ConnectorBuilder func(source domain.DataSource) (Connector, error)

// IdentifierCache remembers upstream ids resolved for a source so that
// later phases of the same process skip the lookup.
type IdentifierCache interface {
	Get(key string) (string, bool)
	Add(key, value string)
}
