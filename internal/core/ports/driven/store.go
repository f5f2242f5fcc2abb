package driven

import (
	"context"

	"github.com/custodia-labs/lexsync/internal/core/domain"
)

// ArticleStore persists articles in batches.
type ArticleStore interface {
	// Save upserts articles keyed on (law source, article reference).
	// A failing batch is recorded per item and does not stop later batches.
	Save(ctx context.Context, articles []domain.LegalArticle, opts domain.SaveOptions) (domain.StoreResult, error)
}

// ArticleStoreBuilder creates the store for a data type.
type ArticleStoreBuilder func() (ArticleStore, error)

// ArticleWriter is the persistence collaborator behind ArticleStore.
type ArticleWriter interface {
	// UpsertBatch writes one batch atomically. Re-writing an unchanged
	// article is reported as unchanged, a changed one as updated.
	UpsertBatch(ctx context.Context, articles []domain.LegalArticle) (domain.UpsertOutcome, error)

	// NeedsEmbedding reports, per article, whether it is new, changed or
	// stored without a vector.
	NeedsEmbedding(ctx context.Context, articles []domain.LegalArticle) ([]bool, error)
}

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}
