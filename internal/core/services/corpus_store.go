package services

import (
	"context"
	"time"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
	"github.com/custodia-labs/lexsync/internal/errors"
	"github.com/custodia-labs/lexsync/internal/logger"
)

// Ensure CorpusStore implements the interface.
var _ driven.ArticleStore = (*CorpusStore)(nil)

// Store defaults.
const (
	DefaultBatchSize  = 50
	DefaultBatchDelay = 2 * time.Second
)

// CorpusStoreConfig configures batching.
type CorpusStoreConfig struct {
	BatchSize int
	// BatchDelay is the pause between batches. Negative disables it.
	BatchDelay time.Duration
	// Sleep replaces the context-aware sleep (tests).
	Sleep func(ctx context.Context, d time.Duration) error
}

// CorpusStore writes articles to the corpus in sequential batches, embedding
// the articles of each batch that lack a current vector before handing it
// to the writer.
type CorpusStore struct {
	writer     driven.ArticleWriter
	embedder   driven.EmbeddingService
	batchSize  int
	batchDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewCorpusStore creates a store. embedder may be nil, in which case articles
// are stored without vectors.
func NewCorpusStore(writer driven.ArticleWriter, embedder driven.EmbeddingService, cfg CorpusStoreConfig) *CorpusStore {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = DefaultBatchDelay
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	return &CorpusStore{
		writer:     writer,
		embedder:   embedder,
		batchSize:  cfg.BatchSize,
		batchDelay: cfg.BatchDelay,
		sleep:      cfg.Sleep,
	}
}

// Save upserts articles batch by batch. A failing batch marks each of its
// items as an error and the run continues with the next batch.
func (s *CorpusStore) Save(ctx context.Context, articles []domain.LegalArticle, opts domain.SaveOptions) (domain.StoreResult, error) {
	total := (len(articles) + s.batchSize - 1) / s.batchSize

	if opts.DryRun {
		for n, i := 1, 0; i < len(articles); n, i = n+1, i+s.batchSize {
			logger.Info("[STORE] DRY RUN | batch %d/%d | %d articles", n, total, len(s.batch(articles, i)))
		}
		logger.Info("[STORE] DRY RUN | %d articles ready | nothing written", len(articles))
		return domain.StoreResult{Skipped: len(articles)}, nil
	}

	var result domain.StoreResult
	for n, i := 1, 0; i < len(articles); n, i = n+1, i+s.batchSize {
		batch := s.batch(articles, i)
		logger.Info("[STORE] batch %d/%d | %d articles", n, total, len(batch))

		outcome, err := s.saveBatch(ctx, batch, opts)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			logger.Warn("[STORE] batch %d failed: %v", n, err)
			result.Add(batchFailure(batch, err))
		} else {
			result.Add(domain.StoreResult{
				Inserted: outcome.Inserted,
				Updated:  outcome.Updated,
				Skipped:  outcome.Unchanged,
			})
		}

		if i+s.batchSize < len(articles) && s.batchDelay > 0 {
			if err := s.sleep(ctx, s.batchDelay); err != nil {
				return result, err
			}
		}
	}

	logger.Info("[STORE] inserted %d | updated %d | unchanged %d | errors %d",
		result.Inserted, result.Updated, result.Skipped, result.Errors)
	return result, nil
}

func (s *CorpusStore) batch(articles []domain.LegalArticle, start int) []domain.LegalArticle {
	end := start + s.batchSize
	if end > len(articles) {
		end = len(articles)
	}
	return articles[start:end]
}

func (s *CorpusStore) saveBatch(ctx context.Context, batch []domain.LegalArticle, opts domain.SaveOptions) (domain.UpsertOutcome, error) {
	if s.writer == nil {
		return domain.UpsertOutcome{}, errors.New("store: no article writer configured")
	}

	if !opts.SkipEmbeddings && s.embedder != nil {
		embedded, err := s.embed(ctx, batch)
		if err != nil {
			return domain.UpsertOutcome{}, err
		}
		batch = embedded
	}

	outcome, err := s.writer.UpsertBatch(ctx, batch)
	if err != nil {
		return domain.UpsertOutcome{}, errors.Wrap(err, "upsert batch")
	}
	return outcome, nil
}

// embed returns a copy of batch with vectors for the articles the writer
// still needs one for. Unchanged articles that already have a vector are
// not sent to the provider.
func (s *CorpusStore) embed(ctx context.Context, batch []domain.LegalArticle) ([]domain.LegalArticle, error) {
	needs, err := s.writer.NeedsEmbedding(ctx, batch)
	if err != nil {
		return nil, errors.Wrap(err, "check stored vectors")
	}
	if len(needs) != len(batch) {
		return nil, errors.Newf("check stored vectors: got %d answers for %d articles", len(needs), len(batch))
	}

	var (
		texts   []string
		targets []int
	)
	for i, a := range batch {
		if needs[i] {
			texts = append(texts, a.EmbeddingText())
			targets = append(targets, i)
		}
	}
	if len(texts) == 0 {
		logger.Debug("[STORE] batch unchanged, no embeddings requested")
		return batch, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, errors.Wrap(err, "embed batch")
	}
	if len(vectors) != len(texts) {
		return nil, errors.Newf("embed batch: got %d vectors for %d articles", len(vectors), len(texts))
	}

	out := append([]domain.LegalArticle(nil), batch...)
	for j, i := range targets {
		out[i].Embedding = vectors[j]
	}
	return out, nil
}

func batchFailure(batch []domain.LegalArticle, err error) domain.StoreResult {
	res := domain.StoreResult{Errors: len(batch)}
	for _, a := range batch {
		res.ErrorDetails = append(res.ErrorDetails, domain.ItemError{Item: a.Key(), Error: err.Error()})
	}
	return res
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
