package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/meridian/internal/interfaces"
)

const (
	// DefaultBaseURL is the public chart API host.
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 2
)

// Client fetches daily bars and snapshots. Implements
// interfaces.PriceHistory.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithUserAgent sets the request user agent. The chart API rejects
// requests without a browser-looking one.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new market data client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// getChart performs a chart API request for one symbol.
func (c *Client) getChart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &RateLimitError{RetryAfter: time.Second}
	}

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	if c.logger != nil {
		c.logger.Debug().
			Str("symbol", symbol).
			Msg("Chart API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Symbol:     symbol,
		}
	}

	var parsed chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if parsed.Chart.Error != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    parsed.Chart.Error.Description,
			Symbol:     symbol,
		}
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, nil
	}

	return &parsed.Chart.Result[0], nil
}

// GetDailyCloses returns the date -> close series for the range. Days
// without a close (nulls, halts) are omitted.
func (c *Client) GetDailyCloses(ctx context.Context, ticker string, from, to time.Time) (interfaces.PriceSeries, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", from.Unix()))
	params.Set("period2", fmt.Sprintf("%d", to.Unix()))
	params.Set("interval", "1d")

	result, err := c.getChart(ctx, ticker, params)
	if err != nil {
		return nil, err
	}

	series := make(interfaces.PriceSeries)
	if result == nil || len(result.Indicators.Quote) == 0 {
		return series, nil
	}

	closes := result.Indicators.Quote[0].Close
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		date := time.Unix(ts, 0).UTC().Format("2006-01-02")
		series[date] = *closes[i]
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("symbol", ticker).
			Int("days", len(series)).
			Msg("Daily closes fetched")
	}

	return series, nil
}

// GetSnapshot returns the latest daily bar with the prior close, or
// nil when the symbol has no data.
func (c *Client) GetSnapshot(ctx context.Context, ticker string) (*interfaces.QuoteSnapshot, error) {
	params := url.Values{}
	params.Set("range", "5d")
	params.Set("interval", "1d")

	result, err := c.getChart(ctx, ticker, params)
	if err != nil {
		return nil, err
	}
	if result == nil || len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, nil
	}

	quote := result.Indicators.Quote[0]
	last := -1
	for i := len(result.Timestamp) - 1; i >= 0; i-- {
		if i < len(quote.Close) && quote.Close[i] != nil {
			last = i
			break
		}
	}
	if last < 0 {
		return nil, nil
	}

	snapshot := &interfaces.QuoteSnapshot{
		Ticker: ticker,
		Date:   time.Unix(result.Timestamp[last], 0).UTC(),
		Close:  *quote.Close[last],
	}
	if last < len(quote.Open) && quote.Open[last] != nil {
		snapshot.Open = *quote.Open[last]
	}
	if last < len(quote.High) && quote.High[last] != nil {
		snapshot.High = *quote.High[last]
	}
	if last < len(quote.Low) && quote.Low[last] != nil {
		snapshot.Low = *quote.Low[last]
	}
	if last < len(quote.Volume) && quote.Volume[last] != nil {
		snapshot.Volume = *quote.Volume[last]
	}

	// Prior trading day's close; fall back to the meta previous close
	// when the window only holds one bar.
	snapshot.PreviousClose = result.Meta.PreviousClose
	for i := last - 1; i >= 0; i-- {
		if i < len(quote.Close) && quote.Close[i] != nil {
			snapshot.PreviousClose = *quote.Close[i]
			break
		}
	}

	return snapshot, nil
}
