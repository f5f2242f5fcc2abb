// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - Connector: Censuses and fetches articles from an upstream authority
//   - SourceCatalog: The registry of data sources and their lifecycle
//   - DataModel: Derives and checks the target schema for a data type
//   - SchemaInspector: Reports the live structure of the destination
//   - ArticleStore: Batched persistence of articles
//   - ArticleWriter: Idempotent upsert of one batch
//   - SyncLedger: Append-only record of pipeline-phase runs
//   - LifecycleStore: Persisted lifecycle stage of each source
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, articles are stored without vectors.
//   - PipelineMetrics: Counters for phases and stored articles.
//   - IdentifierCache: Remembers resolved upstream ids across phases.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
