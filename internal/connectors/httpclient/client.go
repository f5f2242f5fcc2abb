// Package httpclient is the HTTP transport shared by the connectors: bounded
// retries with exponential backoff, an inter-request pause and a browser
// User-Agent on every request.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/lexsync/internal/errors"
	"github.com/custodia-labs/lexsync/internal/logger"
)

// Default configuration values.
const (
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = 2 * time.Second
	DefaultPause          = time.Second
	DefaultTimeout        = 2 * time.Minute

	// BrowserUserAgent is sent on every request. The Normattiva WAF rejects
	// non-browser agents.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config holds transport configuration. Zero values select the defaults;
// a negative Pause or MaxRetries disables pausing or retrying.
type Config struct {
	// Name prefixes retry log lines, usually the source ID.
	Name string

	MaxRetries     int
	RetryBaseDelay time.Duration
	Pause          time.Duration
	Timeout        time.Duration
	UserAgent      string

	// Transport replaces http.DefaultTransport (tests).
	Transport http.RoundTripper

	// Sleep replaces the backoff wait (tests).
	Sleep SleepFunc
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client performs upstream requests.
type Client struct {
	http       *http.Client
	name       string
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	pacer      *rate.Limiter
	sleep      SleepFunc
}

// New creates a client from cfg.
func New(cfg Config) *Client {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if cfg.Pause == 0 {
		cfg.Pause = DefaultPause
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = BrowserUserAgent
	}
	if cfg.Sleep == nil {
		cfg.Sleep = SleepContext
	}

	pacer := rate.NewLimiter(rate.Inf, 1)
	if cfg.Pause > 0 {
		pacer = rate.NewLimiter(rate.Every(cfg.Pause), 1)
	}

	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		name:       cfg.Name,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
		pacer:      pacer,
		sleep:      cfg.Sleep,
	}
}

// WithoutRedirects returns a copy of c that hands 3xx responses back to the
// caller instead of following them.
func (c *Client) WithoutRedirects() *Client {
	clone := *c
	hc := *c.http
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	clone.http = &hc
	return &clone
}

// Pause blocks until the inter-request interval has passed since the last
// request or Pause. The first call after a quiet period returns immediately.
func (c *Client) Pause(ctx context.Context) error {
	return c.pacer.Wait(ctx)
}

// Do sends a request, retrying transport failures with backoff
// RetryBaseDelay·2^n. Any HTTP response, whatever its status, ends the loop.
func (c *Client) Do(ctx context.Context, method, url string, body []byte, header http.Header) (*Response, error) {
	// A request takes the pacing token when it is free, so a following
	// Pause waits a full interval from it.
	c.pacer.Allow()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := c.once(ctx, method, url, body, header)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		if attempt < c.maxRetries {
			wait := c.baseDelay << attempt
			logger.Warn("[RETRY] %s | attempt %d/%d | waiting %s: %v", c.name, attempt+1, c.maxRetries, wait, err)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}
	return nil, errors.Wrapf(lastErr, "%s %s: giving up after %d attempts", method, url, c.maxRetries+1)
}

func (c *Client) once(ctx context.Context, method, url string, body []byte, header http.Header) (*Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Get fetches url with optional headers.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, header)
}

// GetJSON decodes a JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.doJSON(ctx, http.MethodGet, url, nil, out)
}

// PostJSON sends in as JSON and decodes the response into out (when non-nil).
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, url, in, out)
}

// PutJSON sends in as JSON and decodes the response into out (when non-nil).
func (c *Client) PutJSON(ctx context.Context, url string, in, out any) error {
	return c.doJSON(ctx, http.MethodPut, url, in, out)
}

func (c *Client) doJSON(ctx context.Context, method, url string, in, out any) error {
	header := http.Header{"Accept": {"application/json"}}

	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return errors.Wrap(err, "marshal request")
		}
		header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, method, url, body, header)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return newAPIError(resp.StatusCode, url, resp.Body)
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return errors.Wrapf(err, "decode response from %s", url)
	}
	return nil
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
