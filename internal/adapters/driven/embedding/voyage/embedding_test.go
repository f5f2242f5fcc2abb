package voyage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/errors"
)

// fakeVoyage answers with vectors whose single value is the input index,
// listed in reverse order.
func fakeVoyage(t *testing.T, rateLimited int32) (*httptest.Server, *[]embeddingRequest, *int32) {
	t.Helper()
	var (
		requests []embeddingRequest
		calls    int32
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		if n <= rateLimited {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"detail":"rate limit"}`))
			return
		}
		type item struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}
		var data []item
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Embedding: []float64{float64(i)}, Index: i})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "usage": map[string]int{"total_tokens": 7}})
	}))
	t.Cleanup(srv.Close)
	return srv, &requests, &calls
}

func newService(t *testing.T, baseURL string, waits *[]time.Duration) *EmbeddingService {
	t.Helper()
	s, err := NewEmbeddingService(Config{
		APIKey:        "test-key",
		BaseURL:       baseURL,
		MaxInputChars: 10,
		Sleep: func(_ context.Context, d time.Duration) error {
			if waits != nil {
				*waits = append(*waits, d)
			}
			return nil
		},
	})
	require.NoError(t, err)
	return s
}

func TestNewEmbeddingService_RequiresKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.NotEmpty(t, errors.FlattenHints(err))
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	s, err := NewEmbeddingService(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "voyage-law-2", s.ModelName())
	assert.Equal(t, 1024, s.Dimensions())
	assert.Equal(t, DefaultBaseURL, s.baseURL)

	s, err = NewEmbeddingService(Config{APIKey: "k", Model: "voyage-3-lite"})
	require.NoError(t, err)
	assert.Equal(t, 512, s.Dimensions())

	s, err = NewEmbeddingService(Config{APIKey: "k", Model: "voyage-law-3", Dimensions: 2048})
	require.NoError(t, err)
	assert.Equal(t, 2048, s.Dimensions())

	s, err = NewEmbeddingService(Config{APIKey: "k", Model: "voyage-3-lite", Dimensions: 2048})
	require.NoError(t, err)
	assert.Equal(t, 512, s.Dimensions(), "known models keep their size")
}

func TestEmbedBatch_OrdersByIndexAndTruncates(t *testing.T) {
	srv, requests, _ := fakeVoyage(t, 0)
	s := newService(t, srv.URL, nil)

	got, err := s.EmbedBatch(context.Background(), []string{"c.c. Art. 1470 Nozione", "breve", "àèìòù àèìòù"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0}, {1}, {2}}, got)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, "voyage-law-2", req.Model)
	assert.Equal(t, "document", req.InputType)
	assert.Equal(t, []string{"c.c. Art. ", "breve", "àèìòù àèìò"}, req.Input)
}

func TestEmbedBatch_RetriesOnceAfterRateLimit(t *testing.T) {
	srv, _, calls := fakeVoyage(t, 1)
	var waits []time.Duration
	s := newService(t, srv.URL, &waits)

	got, err := s.EmbedBatch(context.Background(), []string{"uno", "due"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{DefaultRateLimitWait}, waits)
}

func TestEmbedBatch_GivesUpAfterSecondRateLimit(t *testing.T) {
	srv, _, calls := fakeVoyage(t, 2)
	s := newService(t, srv.URL, nil)

	_, err := s.EmbedBatch(context.Background(), []string{"uno"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 429")
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1],"index":0}]}`))
	}))
	defer srv.Close()
	s := newService(t, srv.URL, nil)

	_, err := s.EmbedBatch(context.Background(), []string{"uno", "due"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 embeddings for 2 texts")
}

func TestEmbedBatch_Empty(t *testing.T) {
	s := newService(t, "http://127.0.0.1:0", nil)
	got, err := s.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abcdef", 3))
	assert.Equal(t, "ab", truncate("ab", 3))
	assert.Equal(t, "àè", truncate("àèì", 2))
	assert.Equal(t, strings.Repeat("x", 5), truncate(strings.Repeat("x", 5), 0))
}
