package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig    `toml:"logging"`
	Storage     StorageConfig    `toml:"storage"`
	Scraping    ScrapingConfig   `toml:"scraping"`
	Sources     SourcesConfig    `toml:"sources"`
	MarketData  MarketDataConfig `toml:"market_data"`
	Pipeline    PipelineConfig   `toml:"pipeline"`
	Narrative   NarrativeConfig  `toml:"narrative"`
	Scheduler   SchedulerConfig  `toml:"scheduler"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	LLM         LLMConfig        `toml:"llm"`

	// Universe is the tracked instrument list. Entries here seed the
	// instrument table on startup and bound entity linking.
	Universe []InstrumentConfig `toml:"universe"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

type StorageConfig struct {
	// Path is the SQLite database file. ":memory:" is accepted for tests.
	Path string `toml:"path" validate:"required"`
}

// ScrapingConfig contains the HTTP politeness knobs shared by every
// source adapter.
type ScrapingConfig struct {
	Enabled           bool          `toml:"enabled"`
	UserAgent         string        `toml:"user_agent"`          // Default user agent string
	UserAgentRotation bool          `toml:"user_agent_rotation"` // Rotate through a browser UA pool per request
	RequestDelay      time.Duration `toml:"request_delay"`       // Minimum delay between requests
	RandomDelay       time.Duration `toml:"random_delay"`        // Random delay jitter to add
	RequestTimeout    time.Duration `toml:"request_timeout"`     // HTTP request timeout
	MaxRetries        int           `toml:"max_retries" validate:"min=0,max=10"`
	MaxBodySize       int           `toml:"max_body_size"`    // Maximum response body size in bytes
	ArticlesPerSource int           `toml:"per_source_limit"` // Max articles fetched per source per cycle
}

// SourcesConfig enumerates the content sources each ingestion cycle
// visits. Keys are display names used in logs and per-source counts.
type SourcesConfig struct {
	News       map[string]string `toml:"news"`       // name -> landing page URL
	Feeds      map[string]string `toml:"feeds"`      // name -> RSS feed URL
	Subreddits []string          `toml:"subreddits"` // public subreddit names, no "r/" prefix

	RedditUserAgent string `toml:"reddit_user_agent"`
	RedditPostLimit int    `toml:"reddit_post_limit"`
}

type MarketDataConfig struct {
	BaseURL        string        `toml:"base_url" validate:"required,url"`
	RateLimit      time.Duration `toml:"rate_limit"` // Minimum spacing between API calls
	RequestTimeout time.Duration `toml:"request_timeout"`
}

type PipelineConfig struct {
	BatchLimit int `toml:"batch_limit" validate:"min=1"` // Max items analyzed per cycle
	MaxRetries int `toml:"max_retries" validate:"min=0,max=10"`
}

type NarrativeConfig struct {
	CacheTTL time.Duration `toml:"cache_ttl"`
}

// SchedulerConfig controls the periodic cycles. Market hours are
// expressed as UTC hour bounds; TSX trades 09:30-16:00 ET which the
// gate approximates as 14:00-21:59 UTC on weekdays.
type SchedulerConfig struct {
	Enabled          bool `toml:"enabled"`
	IngestInterval   int  `toml:"ingest_interval_minutes" validate:"min=1"`
	QuoteInterval    int  `toml:"quote_interval_minutes" validate:"min=1"`
	UniverseInterval int  `toml:"universe_interval_hours" validate:"min=1"`
	MarketOpenUTC    int  `toml:"market_open_utc" validate:"min=0,max=23"`
	MarketCloseUTC   int  `toml:"market_close_utc" validate:"min=0,max=23"`
	RunOnStartup     bool `toml:"run_on_startup"` // Fire one ingestion cycle immediately at boot
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`    // e.g. "2m"
	RateLimit   string  `toml:"rate_limit"` // e.g. "4s" between calls
	Temperature float32 `toml:"temperature"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider identifies which AI provider to use
type LLMProvider string

const (
	LLMProviderClaude LLMProvider = "claude"
	LLMProviderGemini LLMProvider = "gemini"
)

type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=claude gemini"`
}

// InstrumentConfig is one tracked ticker in the configured universe.
type InstrumentConfig struct {
	Ticker string `toml:"ticker" validate:"required"`
	Name   string `toml:"name"`
	Sector string `toml:"sector"`
}

// NewDefaultConfig returns a configuration with sensible defaults.
// The default universe is the TSX large-cap list; the default sources
// are the Canadian financial outlets the scrapers understand.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
		},
		Storage: StorageConfig{
			Path: "./data/meridian.db",
		},
		Scraping: ScrapingConfig{
			Enabled:           true,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			UserAgentRotation: true,
			RequestDelay:      1 * time.Second,
			RandomDelay:       500 * time.Millisecond,
			RequestTimeout:    30 * time.Second,
			MaxRetries:        3,
			MaxBodySize:       10 * 1024 * 1024, // 10 MB
			ArticlesPerSource: 10,
		},
		Sources: SourcesConfig{
			News: map[string]string{
				"Globe and Mail":       "https://www.theglobeandmail.com/business/",
				"Financial Post":       "https://financialpost.com",
				"BNN Bloomberg":        "https://www.bnnbloomberg.ca",
				"CBC News Business":    "https://www.cbc.ca/news/business",
				"Global News Money":    "https://globalnews.ca/money/",
				"TMX News":             "https://www.tsx.com/en/news",
				"Investment Executive": "https://www.investmentexecutive.com",
				"Yahoo Finance Canada": "https://ca.finance.yahoo.com/news/",
			},
			Feeds: map[string]string{
				"Financial Post":          "https://financialpost.com/feed",
				"Globe and Mail Business": "https://www.theglobeandmail.com/arc/outboundfeeds/rss/category/business/",
				"Yahoo Finance Canada":    "https://finance.yahoo.com/news/rssindex",
				"BNN Bloomberg":           "https://www.bnnbloomberg.ca/arc/outboundfeeds/rss/category/news/",
				"Reuters Business":        "https://www.reutersagency.com/feed/?best-topics=business-finance",
			},
			Subreddits:      []string{"CanadianInvestor", "CanadaFinance"},
			RedditUserAgent: "Meridian/1.0",
			RedditPostLimit: 25,
		},
		MarketData: MarketDataConfig{
			BaseURL:        "https://query1.finance.yahoo.com",
			RateLimit:      500 * time.Millisecond,
			RequestTimeout: 30 * time.Second,
		},
		Pipeline: PipelineConfig{
			BatchLimit: 25,
			MaxRetries: 2,
		},
		Narrative: NarrativeConfig{
			CacheTTL: 15 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			Enabled:          true,
			IngestInterval:   30,
			QuoteInterval:    15,
			UniverseInterval: 24,
			MarketOpenUTC:    14,
			MarketCloseUTC:   21,
			RunOnStartup:     true,
		},
		Gemini: GeminiConfig{
			APIKey:      "", // User must provide API key (GEMINI_API_KEY or config)
			Model:       "gemini-3-flash-preview",
			MaxTokens:   4096,
			Timeout:     "2m",
			RateLimit:   "4s",
			Temperature: 0.3,
		},
		Claude: ClaudeConfig{
			APIKey:      "", // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   4096,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.3,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
		},
		Universe: defaultUniverse(),
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files. Later files
// override earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural constraints on the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Scheduler.MarketCloseUTC < c.Scheduler.MarketOpenUTC {
		return fmt.Errorf("invalid configuration: market_close_utc %d precedes market_open_utc %d",
			c.Scheduler.MarketCloseUTC, c.Scheduler.MarketOpenUTC)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MERIDIAN_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("MERIDIAN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("MERIDIAN_DB_PATH"); path != "" {
		config.Storage.Path = path
	}

	if enabled := os.Getenv("MERIDIAN_SCRAPING_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Scraping.Enabled = b
		}
	}

	if delay := os.Getenv("MERIDIAN_SCRAPING_REQUEST_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			config.Scraping.RequestDelay = d
		}
	}

	if enabled := os.Getenv("MERIDIAN_SCHEDULER_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = b
		}
	}

	if interval := os.Getenv("MERIDIAN_INGEST_INTERVAL_MINUTES"); interval != "" {
		if n, err := strconv.Atoi(interval); err == nil {
			config.Scheduler.IngestInterval = n
		}
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && config.Claude.APIKey == "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("MERIDIAN_CLAUDE_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && config.Gemini.APIKey == "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("MERIDIAN_GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if model := os.Getenv("MERIDIAN_LLM_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if provider := os.Getenv("MERIDIAN_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
}

// IsProduction returns true when running with production configuration.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
