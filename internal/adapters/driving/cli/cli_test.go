package cli

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/lexsync/internal/core/domain"
)

// mockPipeline implements driving.PipelineService for testing.
type mockPipeline struct {
	result   *domain.PipelineResult
	results  []*domain.PipelineResult
	history  []domain.SyncLogEntry
	err      error
	lastID   string
	lastOpts domain.PipelineOptions
	calls    []string
}

func (m *mockPipeline) record(call, id string, opts domain.PipelineOptions) (*domain.PipelineResult, error) {
	m.calls = append(m.calls, call)
	m.lastID = id
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	res := m.result
	if res == nil {
		res = &domain.PipelineResult{SourceID: id}
	}
	return res, nil
}

func (m *mockPipeline) Run(_ context.Context, id string, opts domain.PipelineOptions) (*domain.PipelineResult, error) {
	return m.record("run", id, opts)
}

func (m *mockPipeline) Connect(_ context.Context, id string) (*domain.PipelineResult, error) {
	return m.record("connect", id, domain.PipelineOptions{})
}

func (m *mockPipeline) Model(_ context.Context, id string) (*domain.PipelineResult, error) {
	return m.record("model", id, domain.PipelineOptions{})
}

func (m *mockPipeline) Load(_ context.Context, id string, opts domain.PipelineOptions) (*domain.PipelineResult, error) {
	return m.record("load", id, opts)
}

func (m *mockPipeline) Update(_ context.Context, id string) (*domain.PipelineResult, error) {
	return m.record("update", id, domain.PipelineOptions{Mode: domain.ModeDelta})
}

func (m *mockPipeline) UpdateAll(_ context.Context) ([]*domain.PipelineResult, error) {
	m.calls = append(m.calls, "update-all")
	return m.results, m.err
}

func (m *mockPipeline) History(_ context.Context, id string, limit int) ([]domain.SyncLogEntry, error) {
	m.calls = append(m.calls, "history")
	m.lastID = id
	m.lastOpts.Limit = limit
	return m.history, m.err
}

// mockSources implements driving.SourceService for testing.
type mockSources struct {
	sources  []domain.DataSource
	statuses []domain.ConnectorStatus
	err      error
}

func (m *mockSources) List(_ context.Context) ([]domain.DataSource, error) {
	return m.sources, m.err
}

func (m *mockSources) Get(_ context.Context, id string) (domain.DataSource, error) {
	for _, s := range m.sources {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.DataSource{}, domain.ErrSourceNotFound
}

func (m *mockSources) Status(_ context.Context) ([]domain.ConnectorStatus, error) {
	return m.statuses, m.err
}

// mockModels implements driving.ModelService for testing.
type mockModels struct {
	result *domain.ModelResult
	err    error
	lastID string
}

func (m *mockModels) ApplyMigration(_ context.Context, id string) (*domain.ModelResult, error) {
	m.lastID = id
	return m.result, m.err
}

var errUpstream = errors.New("upstream unavailable")

// withServices installs mocks and returns a restore func.
func withServices(p *mockPipeline, s *mockSources, m *mockModels) func() {
	oldPipeline, oldSources, oldModels := pipelineService, sourceService, modelService
	pipelineService, sourceService, modelService = nil, nil, nil
	if p != nil {
		pipelineService = p
	}
	if s != nil {
		sourceService = s
	}
	if m != nil {
		modelService = m
	}
	return func() {
		pipelineService, sourceService, modelService = oldPipeline, oldSources, oldModels
	}
}

// execute runs the root command with fresh flag values.
func execute(args ...string) (string, error) {
	loadOpts = loadFlags{mode: string(domain.ModeFull)}
	pipelineOpts = loadFlags{mode: string(domain.ModeFull)}
	modelApply = false
	modelOutput = "text"
	historyLimit = 20
	updateEvery = 0
	globals = GlobalOptions{}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func sampleSources() []domain.DataSource {
	return []domain.DataSource{
		{ID: "codice-civile", Name: "Codice Civile", Connector: domain.ConnectorNormattiva, Lifecycle: domain.LifecycleLoaded, EstimatedItems: 3150},
		{ID: "gdpr", Name: "Regolamento generale sulla protezione dei dati", Connector: domain.ConnectorEurLex, Lifecycle: domain.LifecyclePlanned, EstimatedItems: 99},
		{ID: "dsa", Name: "Digital Services Act", Connector: domain.ConnectorEurLex, Lifecycle: domain.LifecyclePlanned},
	}
}

func completedAt(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}
