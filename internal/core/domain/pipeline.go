package domain

import (
	"fmt"
	"time"
)

// Phase is a step of the ingestion pipeline.
type Phase string

// Pipeline phases in execution order.
const (
	PhaseConnect Phase = "connect"
	PhaseModel   Phase = "model"
	PhaseLoad    Phase = "load"
)

// ParsePhase converts a string into a Phase.
func ParsePhase(s string) (Phase, error) {
	switch p := Phase(s); p {
	case PhaseConnect, PhaseModel, PhaseLoad:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown phase %q (want connect, model or load)", ErrInvalidInput, s)
}

// Mode selects between a full fetch and a delta fetch.
type Mode string

const (
	ModeFull  Mode = "full"
	ModeDelta Mode = "delta"
)

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeFull, ModeDelta:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q (want full or delta)", ErrInvalidInput, s)
}

// DefaultDeltaSince is the watermark used when a source has never loaded.
var DefaultDeltaSince = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Census is a connector's lightweight estimate of a source.
type Census struct {
	EstimatedItems   int
	AvailableFormats []string
	SampleFields     []string
	SampleData       []ParsedArticle
}

// ConnectResult is the outcome of a CONNECT probe.
type ConnectResult struct {
	SourceID string
	OK       bool
	Message  string
	Census   Census
}

// FetchOptions bounds a fetch.
type FetchOptions struct {
	// Limit caps the number of returned articles. Zero means no cap.
	Limit int
}

// Apply truncates items to the limit.
func (o FetchOptions) Apply(items []ParsedArticle) []ParsedArticle {
	if o.Limit > 0 && len(items) > o.Limit {
		return items[:o.Limit]
	}
	return items
}

// FetchResult carries the articles returned by a connector.
type FetchResult struct {
	SourceID  string
	Items     []ParsedArticle
	FetchedAt time.Time
	Metadata  map[string]string
}

// PipelineOptions controls a pipeline run.
type PipelineOptions struct {
	// StopAfter ends the run after the named phase. Empty runs all phases.
	StopAfter      Phase
	Mode           Mode
	DryRun         bool
	SkipEmbeddings bool
	Limit          int

	// DeltaSince overrides the watermark taken from the ledger.
	DeltaSince *time.Time
}

// LoadResult summarises the LOAD phase.
type LoadResult struct {
	Fetched    int
	Validation BatchValidation
	Store      StoreResult
}

// PipelineResult is the outcome of a pipeline run.
type PipelineResult struct {
	SourceID      string
	Connect       *ConnectResult
	Model         *ModelResult
	Load          *LoadResult
	StoppedAt     Phase
	StoppedReason string
	Duration      time.Duration
}

// Failed reports whether the run stopped before its requested last phase.
func (r *PipelineResult) Failed() bool {
	return r.StoppedReason != ""
}
