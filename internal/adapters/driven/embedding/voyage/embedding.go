// Package voyage provides an embedding service adapter for the Voyage AI API.
package voyage

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/custodia-labs/lexsync/internal/connectors/httpclient"
	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
	"github.com/custodia-labs/lexsync/internal/errors"
	"github.com/custodia-labs/lexsync/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL       = "https://api.voyageai.com/v1"
	DefaultModel         = "voyage-law-2"
	DefaultInputType     = "document"
	DefaultMaxInputChars = 8000
	DefaultRateLimitWait = 10 * time.Second
	DefaultTimeout       = 60 * time.Second
)

// Model dimensions for Voyage embedding models.
var modelDimensions = map[string]int{
	"voyage-law-2":   1024,
	"voyage-3":       1024,
	"voyage-3-large": 1024,
	"voyage-3-lite":  512,
}

// Config holds configuration for the Voyage embedding service.
type Config struct {
	// APIKey is the Voyage API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.voyageai.com/v1).
	BaseURL string

	// Model is the embedding model (default: voyage-law-2).
	Model string

	// InputType tells the model what the texts are (default: document).
	InputType string

	// MaxInputChars truncates each text before sending (default: 8000).
	MaxInputChars int

	// RateLimitWait is the pause before the single retry after a 429
	// (default: 10s).
	RateLimitWait time.Duration

	// Dimensions overrides the vector size of models not known here.
	Dimensions int

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Transport replaces the HTTP transport (tests).
	Transport http.RoundTripper

	// Sleep replaces the rate-limit wait (tests).
	Sleep httpclient.SleepFunc
}

// EmbeddingService generates embeddings with the Voyage API.
type EmbeddingService struct {
	client        *httpclient.Client
	baseURL       string
	apiKey        string
	model         string
	inputType     string
	maxInputChars int
	rateLimitWait time.Duration
	sleep         httpclient.SleepFunc
	dimensions    int
}

type embeddingRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	InputType string   `json:"input_type"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewEmbeddingService creates a Voyage embedding service. A missing API
// key yields domain.ErrEmbeddingUnavailable.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.WithHint(
			errors.Wrap(domain.ErrEmbeddingUnavailable, "voyage: API key is required"),
			"set VOYAGE_API_KEY or embedding.api_key, or load with --skip-embeddings")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.InputType == "" {
		cfg.InputType = DefaultInputType
	}
	if cfg.MaxInputChars == 0 {
		cfg.MaxInputChars = DefaultMaxInputChars
	}
	if cfg.RateLimitWait == 0 {
		cfg.RateLimitWait = DefaultRateLimitWait
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Sleep == nil {
		cfg.Sleep = httpclient.SleepContext
	}

	dimensions, ok := modelDimensions[cfg.Model]
	if !ok {
		dimensions = cfg.Dimensions
	}
	if dimensions <= 0 {
		dimensions = 1024
	}

	return &EmbeddingService{
		client: httpclient.New(httpclient.Config{
			Name:      "voyage",
			Pause:     -1,
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			Sleep:     cfg.Sleep,
			UserAgent: "lexsync",
		}),
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		inputType:     cfg.InputType,
		maxInputChars: cfg.MaxInputChars,
		rateLimitWait: cfg.RateLimitWait,
		sleep:         cfg.Sleep,
		dimensions:    dimensions,
	}, nil
}

// EmbedBatch returns one vector per text, in input order. A 429 is retried
// once after RateLimitWait.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = truncate(t, s.maxInputChars)
	}
	body, err := json.Marshal(embeddingRequest{Model: s.model, Input: input, InputType: s.inputType})
	if err != nil {
		return nil, errors.Wrap(err, "voyage: marshal request")
	}

	resp, err := s.post(ctx, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		logger.Warn("[VOYAGE] rate limited, waiting %s", s.rateLimitWait)
		if err := s.sleep(ctx, s.rateLimitWait); err != nil {
			return nil, err
		}
		if resp, err = s.post(ctx, body); err != nil {
			return nil, err
		}
	}
	if !resp.OK() {
		snippet := resp.Body
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, errors.Newf("voyage: HTTP %d: %s", resp.StatusCode, snippet)
	}

	var out embeddingResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, errors.Wrap(err, "voyage: decode response")
	}
	if len(out.Data) != len(texts) {
		return nil, errors.Newf("voyage: %d embeddings for %d texts", len(out.Data), len(texts))
	}

	sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
	embeddings := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		embeddings[i] = vec
	}
	logger.Debug("[VOYAGE] %d embeddings | %d tokens", len(embeddings), out.Usage.TotalTokens)
	return embeddings, nil
}

func (s *EmbeddingService) post(ctx context.Context, body []byte) (*httpclient.Response, error) {
	header := http.Header{
		"Content-Type":  {"application/json"},
		"Authorization": {"Bearer " + s.apiKey},
	}
	resp, err := s.client.Do(ctx, http.MethodPost, s.baseURL+"/embeddings", body, header)
	if err != nil {
		return nil, errors.Wrap(err, "voyage: send request")
	}
	return resp, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// truncate keeps at most n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
