package domain

import "time"

// SyncStatus is the state of a ledger entry.
type SyncStatus string

const (
	SyncRunning   SyncStatus = "running"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
)

// SyncType names the kind of run that opened a ledger entry.
// CONNECT and LOAD use the pipeline mode; MODEL uses "model".
type SyncType string

const (
	SyncTypeFull  SyncType = "full"
	SyncTypeDelta SyncType = "delta"
	SyncTypeModel SyncType = "model"
)

// ItemError records a failure for a single item.
type ItemError struct {
	Item  string `json:"item"`
	Error string `json:"error"`
}

// SyncCounts are the item counters recorded when an entry closes.
type SyncCounts struct {
	Fetched  int
	Inserted int
	Updated  int
	Skipped  int
	Errors   int
}

// SyncCompletion closes a ledger entry.
type SyncCompletion struct {
	Status       SyncStatus
	Counts       SyncCounts
	ErrorDetails []ItemError
	Metadata     map[string]string
}

// SyncLogEntry is one pipeline-phase run in the ledger.
// An entry is opened as running and closed exactly once.
type SyncLogEntry struct {
	ID           string
	SourceID     string
	SyncType     SyncType
	Phase        Phase
	Status       SyncStatus
	StartedAt    time.Time
	CompletedAt  *time.Time
	Counts       SyncCounts
	ErrorDetails []ItemError
	Metadata     map[string]string
}

// MetadataDryRun marks the metadata of a LOAD entry that wrote nothing.
const MetadataDryRun = "dryRun"

// IsDryRun reports whether the entry recorded a dry run.
func (e SyncLogEntry) IsDryRun() bool {
	return e.Metadata[MetadataDryRun] == "true"
}

// ConnectorStatus is the most recent ledger activity for a source.
type ConnectorStatus struct {
	SourceID    string
	Status      SyncStatus
	Phase       Phase
	SyncType    SyncType
	CompletedAt *time.Time
}
