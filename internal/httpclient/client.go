// Package httpclient provides the polite, retrying HTTP fetcher shared
// by every content source adapter. It spaces requests out, rotates
// browser user agents, and retries transient failures with exponential
// backoff while failing fast on permanent ones.
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries bounds transient-failure retries per request.
	DefaultMaxRetries = 3

	// DefaultMaxBodySize caps response bodies at 10 MB.
	DefaultMaxBodySize = 10 * 1024 * 1024

	// retryBaseDelay is the first backoff step; each retry doubles it.
	retryBaseDelay = 500 * time.Millisecond

	// maxRateLimitWaits bounds how many consecutive 429 responses are
	// honored before giving up. Retry-After waits do not consume the
	// regular retry budget.
	maxRateLimitWaits = 3
)

// browserUserAgents is the rotation pool used when rotation is enabled.
var browserUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Client is the shared fetcher. Safe for concurrent use; the
// politeness delay is enforced across all callers.
type Client struct {
	httpClient  *http.Client
	logger      arbor.ILogger
	userAgent   string
	rotateUA    bool
	minDelay    time.Duration
	randomDelay time.Duration
	maxRetries  int
	maxBodySize int

	mu          sync.Mutex
	lastRequest time.Time
	rng         *rand.Rand
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent sets a fixed user agent and disables rotation.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
		c.rotateUA = false
	}
}

// WithUserAgentRotation enables random rotation through a pool of
// browser user agents.
func WithUserAgentRotation(enabled bool) Option {
	return func(c *Client) {
		c.rotateUA = enabled
	}
}

// WithRequestDelay sets the minimum spacing between requests plus an
// upper bound for random jitter added on top.
func WithRequestDelay(minDelay, randomDelay time.Duration) Option {
	return func(c *Client) {
		c.minDelay = minDelay
		c.randomDelay = randomDelay
	}
}

// WithMaxRetries sets the transient-failure retry budget.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithMaxBodySize caps response body reads in bytes.
func WithMaxBodySize(n int) Option {
	return func(c *Client) {
		c.maxBodySize = n
	}
}

// WithTimeout sets the per-request timeout on the underlying client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a fetcher with defaults suitable for scraping public
// news sites.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		userAgent:   browserUserAgents[0],
		rotateUA:    true,
		minDelay:    1 * time.Second,
		randomDelay: 500 * time.Millisecond,
		maxRetries:  DefaultMaxRetries,
		maxBodySize: DefaultMaxBodySize,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get fetches a URL and returns the response body. Transient failures
// (timeouts, connection errors, 5xx) are retried with exponential
// backoff; 429 responses honor Retry-After without consuming the retry
// budget; other 4xx responses fail immediately.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	rateLimitWaits := 0

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryBaseDelay * time.Duration(1<<(attempt-1))
			backoff += c.jitter(retryBaseDelay)
			if c.logger != nil {
				c.logger.Debug().
					Str("url", rawURL).
					Int("attempt", attempt).
					Str("backoff", backoff.String()).
					Msg("Retrying request")
			}
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, err
			}
		}

		if err := c.waitPoliteness(ctx); err != nil {
			return nil, err
		}

		body, retryAfter, err := c.doOnce(ctx, rawURL)
		if err == nil {
			return body, nil
		}

		// 429: wait as told, don't burn a retry
		if retryAfter > 0 {
			rateLimitWaits++
			if rateLimitWaits > maxRateLimitWaits {
				return nil, &RateLimitError{URL: rawURL, RetryAfter: retryAfter}
			}
			if c.logger != nil {
				c.logger.Warn().
					Str("url", rawURL).
					Str("retry_after", retryAfter.String()).
					Msg("Rate limited, honoring Retry-After")
			}
			if err := sleepCtx(ctx, retryAfter); err != nil {
				return nil, err
			}
			attempt--
			continue
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Permanent() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}

		lastErr = err
	}

	return nil, fmt.Errorf("exhausted %d retries: %w", c.maxRetries, lastErr)
}

// GetDocument fetches a URL and parses it as an HTML document.
func (c *Client) GetDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", rawURL, err)
	}
	return doc, nil
}

// GetJSON fetches a URL and decodes the body into result.
func (c *Client) GetJSON(ctx context.Context, rawURL string, result interface{}) error {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode JSON from %s: %w", rawURL, err)
	}
	return nil
}

// doOnce performs a single request. A positive retryAfter signals a
// 429 response.
func (c *Client) doOnce(ctx context.Context, rawURL string) (body []byte, retryAfter time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.pickUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-CA,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, 0, &TimeoutError{URL: rawURL, Err: err}
		}
		return nil, 0, &ConnError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), &StatusError{StatusCode: resp.StatusCode, URL: rawURL}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, 0, &StatusError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(c.maxBodySize)))
	if err != nil {
		return nil, 0, &ConnError{URL: rawURL, Err: err}
	}

	return data, 0, nil
}

// waitPoliteness enforces the minimum spacing between requests.
func (c *Client) waitPoliteness(ctx context.Context) error {
	c.mu.Lock()
	wait := time.Duration(0)
	now := time.Now()
	if !c.lastRequest.IsZero() {
		elapsed := now.Sub(c.lastRequest)
		required := c.minDelay + c.jitterLocked(c.randomDelay)
		if elapsed < required {
			wait = required - elapsed
		}
	}
	c.lastRequest = now.Add(wait)
	c.mu.Unlock()

	if wait > 0 {
		return sleepCtx(ctx, wait)
	}
	return nil
}

func (c *Client) pickUserAgent() string {
	if !c.rotateUA {
		return c.userAgent
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return browserUserAgents[c.rng.Intn(len(browserUserAgents))]
}

func (c *Client) jitter(max time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jitterLocked(max)
}

func (c *Client) jitterLocked(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(c.rng.Int63n(int64(max)))
}

// parseRetryAfter handles delta-seconds Retry-After values; absolute
// dates fall back to a fixed wait.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 5 * time.Second
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 5 * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
