// Package sqlite provides the SQLite implementation of the storage ports.
//
// It uses modernc.org/sqlite, a pure Go driver that needs no CGO. A single
// database file holds:
//
//   - the sync ledger (sync_log)
//   - persisted source lifecycles (source_lifecycle)
//   - the article corpus (legal_articles)
//
// # Schema
//
// The ledger tables are managed by the versioned migrations in migrations/,
// applied on open and recorded in schema_migrations. The article table is
// not migrated here: its DDL is proposed by the MODEL phase and applied
// on operator request through the schema inspector.
//
// # Data Location
//
// By default, the database is stored at ~/.lexsync/data/lexsync.db
package sqlite
