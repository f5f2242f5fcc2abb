package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
	"github.com/custodia-labs/lexsync/internal/core/ports/driving"
	"github.com/custodia-labs/lexsync/internal/errors"
	"github.com/custodia-labs/lexsync/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.PipelineService = (*Pipeline)(nil)

// Pipeline runs CONNECT → MODEL → LOAD for one source at a time.
// It is the only writer of ledger entries: each phase opens an entry before
// doing any work and closes it exactly once. A cancelled context leaves the
// open entry running.
type Pipeline struct {
	catalog driven.SourceCatalog
	ledger  driven.SyncLedger
	plugins *PluginRegistry
	metrics driven.PipelineMetrics
	now     func() time.Time
}

// NewPipeline creates a pipeline. metrics may be nil.
func NewPipeline(
	catalog driven.SourceCatalog,
	ledger driven.SyncLedger,
	plugins *PluginRegistry,
	metrics driven.PipelineMetrics,
) *Pipeline {
	return &Pipeline{
		catalog: catalog,
		ledger:  ledger,
		plugins: plugins,
		metrics: metrics,
		now:     time.Now,
	}
}

// Run executes the phases for one source up to opts.StopAfter.
//
// Phase failures are reported through the result and the ledger. The error
// return is reserved for an unknown source, ledger failures and
// cancellation.
func (p *Pipeline) Run(ctx context.Context, sourceID string, opts domain.PipelineOptions) (*domain.PipelineResult, error) {
	start := p.now()

	source, err := p.catalog.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if opts.Mode == "" {
		opts.Mode = domain.ModeFull
	}
	stopAfter := opts.StopAfter
	if stopAfter == "" {
		stopAfter = domain.PhaseLoad
	}

	result := &domain.PipelineResult{SourceID: source.ID}
	defer func() { result.Duration = p.now().Sub(start) }()

	r := &run{p: p, source: source, opts: opts, result: result}

	if err := r.connect(ctx); err != nil || result.Failed() || stopAfter == domain.PhaseConnect {
		return result, err
	}
	if err := r.model(ctx); err != nil || result.Failed() || stopAfter == domain.PhaseModel {
		return result, err
	}
	return result, r.load(ctx)
}

// Connect runs the CONNECT phase only.
func (p *Pipeline) Connect(ctx context.Context, sourceID string) (*domain.PipelineResult, error) {
	return p.Run(ctx, sourceID, domain.PipelineOptions{StopAfter: domain.PhaseConnect})
}

// Model runs CONNECT and MODEL.
func (p *Pipeline) Model(ctx context.Context, sourceID string) (*domain.PipelineResult, error) {
	return p.Run(ctx, sourceID, domain.PipelineOptions{StopAfter: domain.PhaseModel})
}

// Load runs all three phases.
func (p *Pipeline) Load(ctx context.Context, sourceID string, opts domain.PipelineOptions) (*domain.PipelineResult, error) {
	opts.StopAfter = domain.PhaseLoad
	return p.Run(ctx, sourceID, opts)
}

// Update runs all three phases in delta mode.
func (p *Pipeline) Update(ctx context.Context, sourceID string) (*domain.PipelineResult, error) {
	return p.Run(ctx, sourceID, domain.PipelineOptions{StopAfter: domain.PhaseLoad, Mode: domain.ModeDelta})
}

// UpdateAll updates every loaded source in catalog order. A failing source
// does not stop the others; failures are joined into the returned error.
func (p *Pipeline) UpdateAll(ctx context.Context) ([]*domain.PipelineResult, error) {
	sources, err := p.catalog.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list sources")
	}

	var results []*domain.PipelineResult
	var errs []error
	for _, s := range sources {
		if !s.Lifecycle.IsLoaded() {
			continue
		}
		res, err := p.Update(ctx, s.ID)
		if res != nil {
			results = append(results, res)
		}
		switch {
		case err != nil:
			errs = append(errs, errors.Wrapf(err, "update %s", s.ID))
			if ctx.Err() != nil {
				return results, errors.Join(errs...)
			}
		case res.Failed():
			errs = append(errs, errors.Newf("update %s: %s", s.ID, res.StoppedReason))
		}
	}
	if len(errs) > 0 {
		return results, errors.Join(errs...)
	}
	return results, nil
}

// History returns the newest ledger entries for a source.
func (p *Pipeline) History(ctx context.Context, sourceID string, limit int) ([]domain.SyncLogEntry, error) {
	if _, err := p.catalog.Get(ctx, sourceID); err != nil {
		return nil, err
	}
	return p.ledger.History(ctx, sourceID, limit)
}

// Status returns the newest ledger entry of every source.
func (p *Pipeline) Status(ctx context.Context) ([]domain.ConnectorStatus, error) {
	return p.ledger.Status(ctx)
}

// run carries the state of one pipeline execution between phases.
type run struct {
	p      *Pipeline
	source domain.DataSource
	opts   domain.PipelineOptions
	result *domain.PipelineResult
}

func (r *run) connect(ctx context.Context) error {
	r.result.StoppedAt = domain.PhaseConnect
	logger.Section("CONNECT | " + r.source.Name)

	id, err := r.p.ledger.Start(ctx, r.source.ID, domain.SyncType(r.opts.Mode), domain.PhaseConnect)
	if err != nil {
		return errors.Wrap(err, "open connect entry")
	}

	connector, err := r.p.plugins.ResolveConnector(r.source)
	if err != nil {
		return r.fail(ctx, id, "CONNECT error: "+err.Error(), domain.SyncCounts{}, nil)
	}

	res := connector.Connect(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	r.result.Connect = &res
	if !res.OK {
		return r.fail(ctx, id, "CONNECT failed: "+res.Message, domain.SyncCounts{}, nil)
	}

	census := res.Census
	logger.Info("[CONNECT] OK | %d items estimated | formats: %s",
		census.EstimatedItems, strings.Join(census.AvailableFormats, ", "))

	err = r.complete(ctx, id, domain.SyncCompletion{
		Status: domain.SyncCompleted,
		Counts: domain.SyncCounts{Fetched: census.EstimatedItems},
		Metadata: map[string]string{
			"message":          res.Message,
			"estimatedItems":   strconv.Itoa(census.EstimatedItems),
			"availableFormats": strings.Join(census.AvailableFormats, ","),
			"sampleFields":     strings.Join(census.SampleFields, ","),
			"sampleSize":       strconv.Itoa(len(census.SampleData)),
		},
	})
	if err != nil {
		return err
	}
	r.advance(ctx, domain.LifecycleAPITested)
	return nil
}

func (r *run) model(ctx context.Context) error {
	r.result.StoppedAt = domain.PhaseModel
	logger.Section("MODEL | " + r.source.Name)

	id, err := r.p.ledger.Start(ctx, r.source.ID, domain.SyncTypeModel, domain.PhaseModel)
	if err != nil {
		return errors.Wrap(err, "open model entry")
	}

	model, err := r.p.plugins.ResolveModel(r.source.DataType)
	if err != nil {
		return r.fail(ctx, id, "MODEL error: "+err.Error(), domain.SyncCounts{}, nil)
	}

	var sample []domain.ParsedArticle
	if r.result.Connect != nil {
		sample = r.result.Connect.Census.SampleData
	}
	spec := model.Analyze(sample)
	logger.Info("[MODEL] layout: %s", model.DescribeTransform(spec))

	res, err := model.CheckSchema(ctx, spec)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return r.fail(ctx, id, "MODEL error: "+err.Error(), domain.SyncCounts{}, nil)
	}
	r.result.Model = &res

	if !res.Ready {
		logger.Warn("[MODEL] schema not ready: %s", res.Message)
		if res.Spec.MigrationSQL != "" {
			logger.Info("[MODEL] suggested migration:\n%s", res.Spec.MigrationSQL)
		}
		return r.fail(ctx, id, "schema not ready: "+res.Message, domain.SyncCounts{}, map[string]string{
			"message":      res.Message,
			"migrationSQL": res.Spec.MigrationSQL,
		})
	}

	logger.Info("[MODEL] OK | %s", res.Message)
	err = r.complete(ctx, id, domain.SyncCompletion{
		Status: domain.SyncCompleted,
		Metadata: map[string]string{
			"message": res.Message,
			"table":   res.Spec.TableName,
			"columns": strconv.Itoa(len(res.Spec.Columns)),
		},
	})
	if err != nil {
		return err
	}
	r.advance(ctx, domain.LifecycleSchemaReady)
	return nil
}

func (r *run) load(ctx context.Context) error {
	r.result.StoppedAt = domain.PhaseLoad
	logger.Section("LOAD | " + r.source.Name)

	id, err := r.p.ledger.Start(ctx, r.source.ID, domain.SyncType(r.opts.Mode), domain.PhaseLoad)
	if err != nil {
		return errors.Wrap(err, "open load entry")
	}

	connector, err := r.p.plugins.ResolveConnector(r.source)
	if err != nil {
		return r.fail(ctx, id, "LOAD error: "+err.Error(), domain.SyncCounts{}, nil)
	}
	store, err := r.p.plugins.ResolveStore(r.source.DataType)
	if err != nil {
		return r.fail(ctx, id, "LOAD error: "+err.Error(), domain.SyncCounts{}, nil)
	}

	fetchOpts := domain.FetchOptions{Limit: r.opts.Limit}
	var fetch *domain.FetchResult
	if r.opts.Mode == domain.ModeDelta {
		var since time.Time
		since, err = r.watermark(ctx)
		if err != nil {
			return r.fail(ctx, id, "LOAD error: "+err.Error(), domain.SyncCounts{}, nil)
		}
		logger.Info("[LOAD] delta since %s", since.Format(time.RFC3339))
		fetch, err = connector.FetchDelta(ctx, since, fetchOpts)
	} else {
		if r.opts.Limit > 0 {
			logger.Info("[LOAD] full fetch (limit %d)", r.opts.Limit)
		} else {
			logger.Info("[LOAD] full fetch")
		}
		fetch, err = connector.FetchAll(ctx, fetchOpts)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return r.fail(ctx, id, "LOAD error: "+err.Error(), domain.SyncCounts{}, nil)
	}

	load := &domain.LoadResult{Fetched: len(fetch.Items)}
	r.result.Load = load
	logger.Info("[LOAD] %d articles fetched", load.Fetched)

	metadata := map[string]string{}
	for k, v := range fetch.Metadata {
		metadata[k] = v
	}
	if r.opts.DryRun {
		metadata[domain.MetadataDryRun] = "true"
	}

	if load.Fetched == 0 && r.opts.Mode == domain.ModeDelta {
		logger.Info("[LOAD] no changes upstream")
		if err := r.complete(ctx, id, domain.SyncCompletion{Status: domain.SyncCompleted, Metadata: metadata}); err != nil {
			return err
		}
		r.advanceAfterLoad(ctx)
		return nil
	}

	validation := ValidateBatch(fetch.Items)
	load.Validation = validation
	logger.Info("[LOAD] validation: %d valid | %d with warnings | %d with errors",
		validation.ValidCount, validation.WarningCount, validation.ErrorCount)

	if len(validation.Valid) == 0 {
		return r.fail(ctx, id, domain.ErrNoValidArticles.Error()+" after validation",
			domain.SyncCounts{Fetched: load.Fetched, Errors: validation.ErrorCount}, metadata)
	}

	stored, err := store.Save(ctx, toLegalArticles(r.source, validation.Valid), domain.SaveOptions{
		DryRun:         r.opts.DryRun,
		SkipEmbeddings: r.opts.SkipEmbeddings,
	})
	load.Store = stored
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return r.fail(ctx, id, "LOAD error: "+err.Error(), domain.SyncCounts{Fetched: load.Fetched}, metadata)
	}
	if r.p.metrics != nil {
		r.p.metrics.ArticlesStored(r.source.ID, stored)
	}

	prefix := ""
	if r.opts.DryRun {
		prefix = "DRY RUN | "
	}
	logger.Info("[LOAD] %sinserted %d | updated %d | skipped %d | errors %d",
		prefix, stored.Inserted, stored.Updated, stored.Skipped, stored.Errors)

	metadata["validationErrors"] = strconv.Itoa(validation.ErrorCount)
	completion := domain.SyncCompletion{
		Status: domain.SyncCompleted,
		Counts: domain.SyncCounts{
			Fetched:  load.Fetched,
			Inserted: stored.Inserted,
			Updated:  stored.Updated,
			Skipped:  stored.Skipped,
			Errors:   stored.Errors,
		},
		ErrorDetails: stored.ErrorDetails,
		Metadata:     metadata,
	}
	if stored.Errors > 0 {
		completion.Status = domain.SyncFailed
		r.result.StoppedReason = fmt.Sprintf("LOAD finished with %d store errors", stored.Errors)
	}
	if err := r.complete(ctx, id, completion); err != nil {
		return err
	}
	if completion.Status == domain.SyncCompleted {
		r.advanceAfterLoad(ctx)
	}
	return nil
}

// watermark returns the delta starting point: the explicit override, the
// start of the last successful load, or the default. Changes published
// while that load ran are fetched again.
func (r *run) watermark(ctx context.Context) (time.Time, error) {
	if r.opts.DeltaSince != nil {
		return *r.opts.DeltaSince, nil
	}
	last, err := r.p.ledger.LastSuccessful(ctx, r.source.ID, domain.PhaseLoad)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.DefaultDeltaSince, nil
	case err != nil:
		return time.Time{}, errors.Wrap(err, "read last load")
	case last.StartedAt.IsZero():
		return domain.DefaultDeltaSince, nil
	}
	return last.StartedAt, nil
}

// fail closes the entry as failed and records why the run stopped.
func (r *run) fail(ctx context.Context, id, reason string, counts domain.SyncCounts, metadata map[string]string) error {
	logger.Warn("[%s] %s", strings.ToUpper(string(r.result.StoppedAt)), reason)
	r.result.StoppedReason = reason

	md := map[string]string{"error": reason}
	for k, v := range metadata {
		md[k] = v
	}
	return r.complete(ctx, id, domain.SyncCompletion{
		Status:   domain.SyncFailed,
		Counts:   counts,
		Metadata: md,
	})
}

func (r *run) complete(ctx context.Context, id string, c domain.SyncCompletion) error {
	if err := r.p.ledger.Complete(ctx, id, c); err != nil {
		return errors.Wrapf(err, "close %s entry", r.result.StoppedAt)
	}
	if r.p.metrics != nil {
		r.p.metrics.PhaseFinished(r.source.ID, r.result.StoppedAt, c.Status)
	}
	return nil
}

func (r *run) advanceAfterLoad(ctx context.Context) {
	if r.opts.DryRun {
		return
	}
	if r.opts.Mode == domain.ModeDelta {
		r.advance(ctx, domain.LifecycleDeltaActive)
		return
	}
	r.advance(ctx, domain.LifecycleLoaded)
}

// advance moves the source forward. Failing to record progress does not
// fail the run.
func (r *run) advance(ctx context.Context, stage domain.Lifecycle) {
	if err := r.p.catalog.Advance(ctx, r.source.ID, stage); err != nil {
		logger.Warn("lifecycle of %s not advanced to %s: %v", r.source.ID, stage, err)
	}
}

// toLegalArticles maps parsed articles to the storage record of the source.
func toLegalArticles(source domain.DataSource, parsed []domain.ParsedArticle) []domain.LegalArticle {
	out := make([]domain.LegalArticle, 0, len(parsed))
	for _, a := range parsed {
		url := a.SourceURL
		if url == "" {
			url = source.Config.BaseURL
		}
		out = append(out, domain.LegalArticle{
			LawSource:         source.ShortName,
			ArticleReference:  "Art. " + a.Number,
			Title:             a.Title,
			Text:              a.Text,
			Hierarchy:         a.Hierarchy.Clone(),
			Keywords:          []string{},
			RelatedInstitutes: []string{},
			SourceURL:         url,
			InForce:           a.InForce,
		})
	}
	return out
}
