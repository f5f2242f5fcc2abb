// Package normattiva connects to the Normattiva Open Data API, which
// publishes Italian national legislation as Akoma Ntoso XML. No
// authentication is required; the WAF only admits browser User-Agents.
package normattiva

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/lexsync/internal/connectors/httpclient"
	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
	"github.com/custodia-labs/lexsync/internal/errors"
	"github.com/custodia-labs/lexsync/internal/logger"
	"github.com/custodia-labs/lexsync/internal/normalisers/akn"
	"github.com/custodia-labs/lexsync/internal/normalisers/textclean"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Default configuration values.
const (
	DefaultBaseURL      = "https://api.normattiva.it/t/normattiva.api/bff-opendata/v1/api/v1"
	DefaultPollAttempts = 30
	DefaultPollInterval = 3 * time.Second

	sampleSize     = 3
	searchPageSize = 10
)

// Config holds connector configuration.
type Config struct {
	BaseURL      string
	PollAttempts int
	PollInterval time.Duration

	// HTTP configures the shared transport. Its Sleep also paces polling.
	HTTP httpclient.Config

	// Now replaces the clock (tests).
	Now func() time.Time
}

// Connector fetches one Normattiva act.
type Connector struct {
	source       domain.DataSource
	client       *httpclient.Client
	cache        driven.IdentifierCache
	baseURL      string
	pollAttempts int
	pollInterval time.Duration
	sleep        httpclient.SleepFunc
	now          func() time.Time
}

// New creates a connector for source. cache may be nil.
func New(source domain.DataSource, cfg Config, cache driven.IdentifierCache) *Connector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PollAttempts == 0 {
		cfg.PollAttempts = DefaultPollAttempts
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.HTTP.Name == "" {
		cfg.HTTP.Name = source.ID
	}

	sleep := cfg.HTTP.Sleep
	if sleep == nil {
		sleep = httpclient.SleepContext
	}

	return &Connector{
		source:       source,
		client:       httpclient.New(cfg.HTTP),
		cache:        cache,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		pollAttempts: cfg.PollAttempts,
		pollInterval: cfg.PollInterval,
		sleep:        sleep,
		now:          cfg.Now,
	}
}

// Connect checks the API, locates the act and, when the source has a cheap
// download path, parses a sample.
func (c *Connector) Connect(ctx context.Context) domain.ConnectResult {
	result := domain.ConnectResult{SourceID: c.source.ID}

	var formats []format
	if err := c.client.GetJSON(ctx, c.baseURL+pathFormats, &formats); err != nil {
		result.Message = "Normattiva connection error: " + err.Error()
		return result
	}
	labels := make([]string, 0, len(formats))
	for _, f := range formats {
		labels = append(labels, f.Label)
	}
	logger.Debug("normattiva: formats %s", strings.Join(labels, ", "))

	found, err := c.search(ctx)
	if err != nil {
		result.Message = "Normattiva connection error: " + err.Error()
		return result
	}

	actID := c.source.Config.CodiceRedazionale
	var title string
	if found != nil {
		title = textclean.OneLine(found.Title)
		if actID == "" {
			actID = found.ID
		}
		c.remember(actID)
		logger.Info("normattiva: found %s | %s %s/%s", found.ID, found.TypeCode, found.Year, found.Number)
	}

	estimated := c.source.EstimatedItems
	var sample []domain.ParsedArticle
	cfg := c.source.Config
	if actID != "" && (cfg.Collection != "" || cfg.DirectAKN) {
		if doc, err := c.Download(ctx, actID); err != nil {
			logger.Warn("normattiva: sample for %s failed (not blocking): %v", c.source.ID, err)
		} else {
			articles := akn.Parse(doc.XML, c.source.ShortName)
			estimated = len(articles)
			sample = domain.FetchOptions{Limit: sampleSize}.Apply(articles)
		}
	}

	shown := actID
	if shown == "" {
		shown = "act not found"
	}
	result.OK = true
	result.Message = "API OK | " + shown + " | " + truncate(title, 60) + " | ~" + strconv.Itoa(estimated) + " art."
	result.Census = domain.Census{
		EstimatedItems:   estimated,
		AvailableFormats: labels,
		SampleFields:     []string{"articleNumber", "articleTitle", "articleText", "hierarchy"},
		SampleData:       sample,
	}
	return result
}

// FetchAll downloads and parses the whole act.
func (c *Connector) FetchAll(ctx context.Context, opts domain.FetchOptions) (*domain.FetchResult, error) {
	actID, err := c.actID(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("normattiva: %s is %s", c.source.ID, actID)

	doc, err := c.Download(ctx, actID)
	if err != nil {
		return nil, err
	}

	articles := akn.Parse(doc.XML, c.source.ShortName)
	logger.Info("normattiva: parsed %d articles from %s (%s)", len(articles), c.source.ID, doc.Path)

	return &domain.FetchResult{
		SourceID:  c.source.ID,
		Items:     opts.Apply(articles),
		FetchedAt: c.now(),
		Metadata: map[string]string{
			"codiceRedazionale": actID,
			"format":            "akn",
			"path":              doc.Path,
		},
	}, nil
}

// FetchDelta asks which acts changed since the watermark and re-fetches
// this one only if it is among them.
func (c *Connector) FetchDelta(ctx context.Context, since time.Time, opts domain.FetchOptions) (*domain.FetchResult, error) {
	var resp searchResponse
	req := updatedRequest{
		From: since.UTC().Format(time.RFC3339),
		To:   c.now().UTC().Format(time.RFC3339),
	}
	if err := c.client.PostJSON(ctx, c.baseURL+pathUpdated, req, &resp); err != nil {
		return nil, errors.Wrapf(err, "list acts updated since %s", req.From)
	}

	matched := 0
	if ref, ok := parseURN(c.source.Config.URN); ok {
		for _, a := range resp.Acts {
			if ref.matches(a) {
				matched++
			}
		}
	}

	if matched == 0 {
		logger.Info("normattiva: no updates for %s since %s", c.source.ID, req.From)
		return &domain.FetchResult{
			SourceID:  c.source.ID,
			FetchedAt: c.now(),
			Metadata: map[string]string{
				"since":   req.From,
				"updates": "0",
			},
		}, nil
	}

	logger.Info("normattiva: %d updates for %s, re-fetching", matched, c.source.ID)
	result, err := c.FetchAll(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Metadata["since"] = req.From
	result.Metadata["updates"] = strconv.Itoa(matched)
	return result, nil
}

// actID resolves the codiceRedazionale: pinned, cached or searched.
func (c *Connector) actID(ctx context.Context) (string, error) {
	if id := c.source.Config.CodiceRedazionale; id != "" {
		return id, nil
	}
	if c.cache != nil {
		if id, ok := c.cache.Get(c.cacheKey()); ok {
			return id, nil
		}
	}

	found, err := c.search(ctx)
	if err != nil {
		return "", err
	}
	if found == nil || found.ID == "" {
		return "", errors.WithHint(
			errors.Mark(errors.Newf("normattiva: act not found for %q", c.source.ID), domain.ErrDocumentNotFound),
			"check the source's search terms and URN")
	}
	c.remember(found.ID)
	return found.ID, nil
}

// search runs each search term until one yields the act, pausing before
// every request.
func (c *Connector) search(ctx context.Context) (*act, error) {
	for _, term := range c.source.Config.SearchTerms {
		if err := c.client.Pause(ctx); err != nil {
			return nil, err
		}

		logger.Debug("normattiva: search %q", term)
		var resp searchResponse
		req := searchRequest{Query: term, Pagination: pagination{Page: 1, PageSize: searchPageSize}}
		if err := c.client.PostJSON(ctx, c.baseURL+pathSearch, req, &resp); err != nil {
			return nil, errors.Wrapf(err, "search %q", term)
		}
		if a, ok := pickAct(resp.Acts, c.source.Config.URN); ok {
			return &a, nil
		}
	}
	return nil, nil
}

func (c *Connector) remember(actID string) {
	if c.cache != nil && actID != "" {
		c.cache.Add(c.cacheKey(), actID)
	}
}

func (c *Connector) cacheKey() string {
	return "normattiva:" + c.source.ID
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
