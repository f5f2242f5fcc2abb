package domain

import (
	"fmt"
	"strings"
)

// DataType identifies the kind of record a source produces.
// Models and stores are registered per data type.
type DataType string

const (
	// DataTypeLegalArticles is the article corpus of statutes and codes.
	DataTypeLegalArticles DataType = "legal-articles"

	// DataTypeHRArticles is the labour-law vertical. It shares the legal stack.
	DataTypeHRArticles DataType = "hr-articles"
)

// ConnectorKind identifies the upstream adapter used for a source.
type ConnectorKind string

const (
	// ConnectorNormattiva is the national open-data API serving Akoma Ntoso.
	ConnectorNormattiva ConnectorKind = "normattiva"

	// ConnectorEurLex is the EU Cellar repository serving (X)HTML.
	ConnectorEurLex ConnectorKind = "eurlex"
)

// Lifecycle is the onboarding stage of a source.
type Lifecycle string

// Lifecycle stages in the order a source moves through them.
const (
	LifecyclePlanned     Lifecycle = "planned"
	LifecycleAPITested   Lifecycle = "api-tested"
	LifecycleSchemaReady Lifecycle = "schema-ready"
	LifecycleLoaded      Lifecycle = "loaded"
	LifecycleDeltaActive Lifecycle = "delta-active"
)

var lifecycleOrder = []Lifecycle{
	LifecyclePlanned,
	LifecycleAPITested,
	LifecycleSchemaReady,
	LifecycleLoaded,
	LifecycleDeltaActive,
}

// Lifecycles returns every stage, most advanced last.
func Lifecycles() []Lifecycle {
	out := make([]Lifecycle, len(lifecycleOrder))
	copy(out, lifecycleOrder)
	return out
}

// Rank returns the position of the stage, or -1 for an unknown stage.
func (l Lifecycle) Rank() int {
	for i, stage := range lifecycleOrder {
		if stage == l {
			return i
		}
	}
	return -1
}

// IsValid reports whether l is a known stage.
func (l Lifecycle) IsValid() bool {
	return l.Rank() >= 0
}

// ParseLifecycle converts a string into a Lifecycle.
func ParseLifecycle(s string) (Lifecycle, error) {
	l := Lifecycle(strings.TrimSpace(strings.ToLower(s)))
	if !l.IsValid() {
		return "", fmt.Errorf("%w: unknown lifecycle %q", ErrInvalidInput, s)
	}
	return l, nil
}

// IsLoaded reports whether the source has completed at least one load.
func (l Lifecycle) IsLoaded() bool {
	return l == LifecycleLoaded || l == LifecycleDeltaActive
}

// SourceConfig holds the connector-specific settings of a source.
type SourceConfig struct {
	// URN is the NIR identifier of a national act,
	// e.g. "urn:nir:stato:regio.decreto:1942-03-16;262".
	URN string

	// CelexID is the EU document identifier, e.g. "32016R0679".
	CelexID string

	// BaseURL is the public page used as a fallback source locator.
	BaseURL string

	// HierarchyLevels lists the container kinds expected in the document.
	HierarchyLevels []string

	// SearchTerms are keyword queries used to locate the act upstream.
	SearchTerms []string

	// DirectAKN forces the single-request download path.
	DirectAKN bool

	// CodiceRedazionale pins the upstream act id, skipping search.
	CodiceRedazionale string

	// Collection names a pre-packaged upstream archive containing the act.
	Collection string
}

// DataSource is a registered upstream document.
// Sources are immutable after registration; only Lifecycle advances.
type DataSource struct {
	ID             string
	Name           string
	ShortName      string
	DataType       DataType
	Vertical       string
	Connector      ConnectorKind
	Config         SourceConfig
	Lifecycle      Lifecycle
	EstimatedItems int
}

// WithLifecycle returns a copy of the source at the given stage.
func (s DataSource) WithLifecycle(l Lifecycle) DataSource {
	s.Lifecycle = l
	return s
}
