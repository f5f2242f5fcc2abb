// Package domain defines the core business entities for lexsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DataSource: A catalogued upstream legal document
//   - ParsedArticle: An article recovered by a parser
//   - LegalArticle: The storage record of an article
//   - DataModelSpec: The target schema negotiated in the MODEL phase
//   - SyncLogEntry: One pipeline-phase run in the ledger
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
