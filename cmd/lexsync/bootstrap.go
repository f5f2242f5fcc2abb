package main

import (
	"context"

	"github.com/custodia-labs/lexsync/internal/adapters/driven/cache"
	"github.com/custodia-labs/lexsync/internal/adapters/driven/catalog"
	"github.com/custodia-labs/lexsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lexsync/internal/adapters/driven/embedding/voyage"
	"github.com/custodia-labs/lexsync/internal/adapters/driven/metrics"
	"github.com/custodia-labs/lexsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/lexsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/lexsync/internal/connectors/eurlex"
	"github.com/custodia-labs/lexsync/internal/connectors/httpclient"
	"github.com/custodia-labs/lexsync/internal/connectors/normattiva"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
	"github.com/custodia-labs/lexsync/internal/core/services"
	"github.com/custodia-labs/lexsync/internal/errors"
	"github.com/custodia-labs/lexsync/internal/logger"
)

// bootstrap wires the adapters into the core services.
func bootstrap(ctx context.Context, opts cli.GlobalOptions) (*cli.Services, func() error, error) {
	cfg, err := file.Load(opts.ConfigFile)
	if err != nil {
		return nil, nil, err
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.MetricsFile != "" {
		cfg.Metrics.Textfile = opts.MetricsFile
	}
	if cfg.File != "" {
		logger.Debug("config: %s", cfg.File)
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, nil, errors.WithHint(errors.Wrap(err, "open database"),
			"check --data-dir, or that no other lexsync process holds the database")
	}
	logger.Debug("database: %s", store.Path())

	cat, err := catalog.Open(ctx, cfg.Catalog.File, store.Lifecycles())
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	embedder, err := newEmbedder(cfg.Embedding)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	recorder := metrics.NewRecorder()
	plugins := services.NewPluginRegistry()
	services.RegisterDefaults(plugins, services.DefaultPlugins{
		Normattiva: normattiva.Config{
			BaseURL:      cfg.Normattiva.BaseURL,
			PollAttempts: cfg.Normattiva.PollAttempts,
			PollInterval: cfg.Normattiva.PollInterval,
			HTTP:         httpConfig(cfg.HTTP),
		},
		EurLex: eurlex.Config{
			SPARQLEndpoint: cfg.EurLex.SPARQLEndpoint,
			Language:       cfg.EurLex.Language,
			MinBodySize:    cfg.EurLex.MinBodySize,
			HTTP:           httpConfig(cfg.HTTP),
		},
		Cache:     cache.NewIdentifiers(cfg.Cache.Size, cfg.Cache.TTL),
		Inspector: store.SchemaInspector(),
		Writer:    store.ArticleWriter(),
		Embedder:  embedder,
		Store: services.CorpusStoreConfig{
			BatchSize:  cfg.Store.BatchSize,
			BatchDelay: cfg.Store.BatchDelay,
		},
	})

	svc := &cli.Services{
		Pipeline: services.NewPipeline(cat, store.Ledger(), plugins, recorder),
		Sources:  services.NewSourceService(cat, store.Ledger()),
		Models:   services.NewSchemaService(cat, plugins, store.SchemaInspector()),
	}

	done := func() error {
		var errs []error
		if cfg.Metrics.Textfile != "" {
			if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
				errs = append(errs, err)
			}
		}
		if err := store.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close database"))
		}
		return errors.Join(errs...)
	}
	return svc, done, nil
}

// newEmbedder returns nil when no key is configured, so articles are
// stored without vectors.
func newEmbedder(cfg file.EmbeddingConfig) (driven.EmbeddingService, error) {
	if cfg.APIKey == "" {
		logger.Debug("embedding: no API key, storing articles without vectors")
		return nil, nil
	}
	svc, err := voyage.NewEmbeddingService(voyage.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("embedding: %s (%d dimensions)", svc.ModelName(), svc.Dimensions())
	return svc, nil
}

func httpConfig(cfg file.HTTPConfig) httpclient.Config {
	return httpclient.Config{
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
		Pause:          cfg.RequestInterval,
		Timeout:        cfg.Timeout,
		UserAgent:      cfg.UserAgent,
	}
}
