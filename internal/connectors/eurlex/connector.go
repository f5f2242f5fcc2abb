// Package eurlex connects to the EU Publications Office: SPARQL to resolve a
// CELEX id to its Cellar work, then content negotiation on the Cellar URI to
// download the (X)HTML rendering in the configured language.
package eurlex

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/lexsync/internal/connectors/httpclient"
	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
	"github.com/custodia-labs/lexsync/internal/errors"
	"github.com/custodia-labs/lexsync/internal/logger"
	"github.com/custodia-labs/lexsync/internal/normalisers/html"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Default configuration values.
const (
	DefaultSPARQLEndpoint = "https://publications.europa.eu/webapi/rdf/sparql"
	DefaultLanguage       = "it"
	DefaultMinBodySize    = 500

	sampleSize = 3
)

// acceptedTypes are negotiated in order: XHTML carries the semantic
// subdivisions, plain HTML is the legacy rendering.
var acceptedTypes = []string{"application/xhtml+xml", "text/html"}

// Config holds connector configuration.
type Config struct {
	SPARQLEndpoint string
	Language       string
	// MinBodySize is the size a rendering must exceed to count as a document.
	MinBodySize int

	HTTP httpclient.Config
	Now  func() time.Time
}

// Connector fetches one EU act.
type Connector struct {
	source         domain.DataSource
	client         *httpclient.Client
	cache          driven.IdentifierCache
	sparqlEndpoint string
	language       string
	minBodySize    int
	now            func() time.Time
}

// New creates a connector for source. cache may be nil.
func New(source domain.DataSource, cfg Config, cache driven.IdentifierCache) *Connector {
	if cfg.SPARQLEndpoint == "" {
		cfg.SPARQLEndpoint = DefaultSPARQLEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.MinBodySize == 0 {
		cfg.MinBodySize = DefaultMinBodySize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.HTTP.Name == "" {
		cfg.HTTP.Name = source.ID
	}
	return &Connector{
		source:         source,
		client:         httpclient.New(cfg.HTTP),
		cache:          cache,
		sparqlEndpoint: cfg.SPARQLEndpoint,
		language:       cfg.Language,
		minBodySize:    cfg.MinBodySize,
		now:            cfg.Now,
	}
}

// Connect resolves the CELEX id, downloads the rendering and parses a sample.
func (c *Connector) Connect(ctx context.Context) domain.ConnectResult {
	result := domain.ConnectResult{SourceID: c.source.ID}
	celex := c.source.Config.CelexID
	if celex == "" {
		result.Message = "missing CELEX id for source " + c.source.ID
		return result
	}

	uri, err := c.workURI(ctx)
	if err != nil {
		result.Message = "EUR-Lex connection error: " + err.Error()
		return result
	}
	if uri == "" {
		result.Message = "CELEX " + celex + " not found on EUR-Lex"
		return result
	}
	logger.Debug("eurlex: %s is %s", celex, uri)

	body, contentType, err := c.download(ctx, uri)
	if err != nil {
		result.Message = "EUR-Lex connection error: " + err.Error()
		return result
	}
	articles := html.Parse(body, c.source.ShortName)

	estimated := len(articles)
	if estimated == 0 {
		estimated = c.source.EstimatedItems
	}

	result.OK = true
	result.Message = "CELEX " + celex + " found | " + strconv.Itoa(len(articles)) + " articles parsed | Cellar " + contentType + " " + c.language
	result.Census = domain.Census{
		EstimatedItems:   estimated,
		AvailableFormats: []string{"xhtml", "html"},
		SampleFields:     []string{"articleNumber", "articleTitle", "articleText", "hierarchy"},
		SampleData:       domain.FetchOptions{Limit: sampleSize}.Apply(articles),
	}
	return result
}

// FetchAll downloads and parses the whole act.
func (c *Connector) FetchAll(ctx context.Context, opts domain.FetchOptions) (*domain.FetchResult, error) {
	celex := c.source.Config.CelexID
	if celex == "" {
		return nil, errors.Mark(errors.Newf("eurlex: missing CELEX id for source %q", c.source.ID), domain.ErrInvalidInput)
	}

	uri, err := c.workURI(ctx)
	if err != nil {
		return nil, err
	}
	if uri == "" {
		return nil, errors.Mark(errors.Newf("eurlex: no Cellar work for CELEX %s", celex), domain.ErrDocumentNotFound)
	}

	body, contentType, err := c.download(ctx, uri)
	if err != nil {
		return nil, err
	}
	articles := html.Parse(body, c.source.ShortName)
	logger.Info("eurlex: parsed %d articles from %s", len(articles), celex)

	return &domain.FetchResult{
		SourceID:  c.source.ID,
		Items:     opts.Apply(articles),
		FetchedAt: c.now(),
		Metadata: map[string]string{
			"celexId":     celex,
			"cellarUri":   uri,
			"format":      "html",
			"contentType": contentType,
		},
	}, nil
}

// FetchDelta skips the download when the document date precedes the
// watermark. EU acts change rarely; an unknown date re-fetches.
func (c *Connector) FetchDelta(ctx context.Context, since time.Time, opts domain.FetchOptions) (*domain.FetchResult, error) {
	date := c.documentDate(ctx)
	if !date.IsZero() && date.Before(since) {
		logger.Info("eurlex: %s unchanged (document date %s, watermark %s)",
			c.source.ID, date.Format("2006-01-02"), since.Format(time.RFC3339))
		return &domain.FetchResult{
			SourceID:  c.source.ID,
			FetchedAt: c.now(),
			Metadata: map[string]string{
				"since":        since.UTC().Format(time.RFC3339),
				"documentDate": date.Format("2006-01-02"),
				"changed":      "false",
			},
		}, nil
	}

	logger.Info("eurlex: %s may have changed, re-fetching", c.source.ID)
	return c.FetchAll(ctx, opts)
}

// download negotiates the rendering of uri, preferring XHTML. Every
// attempt waits for the inter-request interval.
func (c *Connector) download(ctx context.Context, uri string) ([]byte, string, error) {
	for _, accept := range acceptedTypes {
		if err := c.client.Pause(ctx); err != nil {
			return nil, "", err
		}
		resp, err := c.client.Get(ctx, uri, http.Header{
			"Accept":          {accept},
			"Accept-Language": {c.language},
		})
		if err != nil {
			return nil, "", errors.Wrapf(err, "download %s", uri)
		}
		if resp.OK() && len(resp.Body) > c.minBodySize {
			logger.Debug("eurlex: %s | %s | %d bytes", uri, accept, len(resp.Body))
			return resp.Body, accept, nil
		}
		logger.Debug("eurlex: %s → HTTP %d (%d bytes)", accept, resp.StatusCode, len(resp.Body))
	}
	return nil, "", errors.Mark(errors.Newf("eurlex: no HTML rendering available for %s", uri), domain.ErrDownloadFailed)
}
