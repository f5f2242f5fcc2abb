package domain

// ValidationResult is the verdict for one article.
// Warnings are advisory; any error excludes the article from storage.
type ValidationResult struct {
	Number   string
	Valid    bool
	Warnings []string
	Errors   []string
}

// BatchValidation aggregates the verdicts for a batch.
type BatchValidation struct {
	ValidCount   int
	WarningCount int
	ErrorCount   int
	Details      []ValidationResult

	// Valid holds the error-free articles in input order.
	Valid []ParsedArticle
}

// StoreResult is the outcome of persisting a batch of articles.
type StoreResult struct {
	Inserted     int
	Updated      int
	Skipped      int
	Errors       int
	ErrorDetails []ItemError
}

// Add accumulates another result into r.
func (r *StoreResult) Add(other StoreResult) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Errors += other.Errors
	r.ErrorDetails = append(r.ErrorDetails, other.ErrorDetails...)
}

// SaveOptions controls a store call.
type SaveOptions struct {
	DryRun         bool
	SkipEmbeddings bool
}

// UpsertOutcome is what the persistence collaborator reports for a batch.
type UpsertOutcome struct {
	Inserted  int
	Updated   int
	Unchanged int
}
