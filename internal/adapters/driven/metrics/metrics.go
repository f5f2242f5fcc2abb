// Package metrics records pipeline activity as Prometheus metrics.
//
// lexsync runs as a batch command, so nothing is served over HTTP. The
// registry is written to a node_exporter textfile when the command ends.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
	"github.com/custodia-labs/lexsync/internal/errors"
)

// Ensure Recorder implements the interface.
var _ driven.PipelineMetrics = (*Recorder)(nil)

const namespace = "lexsync"

// Recorder holds the pipeline metrics in its own registry.
type Recorder struct {
	registry *prometheus.Registry
	phases   *prometheus.CounterVec
	articles *prometheus.CounterVec
	lastRun  *prometheus.GaugeVec
	now      func() float64
}

// NewRecorder creates a recorder with a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		phases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_runs_total",
			Help:      "Closed ledger entries by source, phase and status.",
		}, []string{"source", "phase", "status"}),
		articles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Articles handled by the store, by source and outcome.",
		}, []string{"source", "outcome"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_last_completed_timestamp_seconds",
			Help:      "Unix time of the last successful phase run.",
		}, []string{"source", "phase"}),
	}
	r.now = defaultNow
	r.registry.MustRegister(r.phases, r.articles, r.lastRun)
	return r
}

// PhaseFinished counts a closed ledger entry.
func (r *Recorder) PhaseFinished(sourceID string, phase domain.Phase, status domain.SyncStatus) {
	r.phases.WithLabelValues(sourceID, string(phase), string(status)).Inc()
	if status == domain.SyncCompleted {
		r.lastRun.WithLabelValues(sourceID, string(phase)).Set(r.now())
	}
}

// ArticlesStored adds the outcome of a store call.
func (r *Recorder) ArticlesStored(sourceID string, result domain.StoreResult) {
	for outcome, n := range map[string]int{
		"inserted": result.Inserted,
		"updated":  result.Updated,
		"skipped":  result.Skipped,
		"errors":   result.Errors,
	} {
		r.articles.WithLabelValues(sourceID, outcome).Add(float64(n))
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the metrics in the text exposition format. The file
// is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errors.Wrapf(err, "write metrics to %s", path)
	}
	return nil
}

func defaultNow() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
