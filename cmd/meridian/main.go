package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/meridian/internal/common"
	"github.com/ternarybob/meridian/internal/httpclient"
	"github.com/ternarybob/meridian/internal/interfaces"
	"github.com/ternarybob/meridian/internal/marketdata"
	"github.com/ternarybob/meridian/internal/services/backtest"
	"github.com/ternarybob/meridian/internal/services/ingestion"
	"github.com/ternarybob/meridian/internal/services/llm"
	"github.com/ternarybob/meridian/internal/services/narrative"
	"github.com/ternarybob/meridian/internal/services/pipeline"
	"github.com/ternarybob/meridian/internal/services/scheduler"
	"github.com/ternarybob/meridian/internal/services/scrapers"
	"github.com/ternarybob/meridian/internal/services/universe"
	"github.com/ternarybob/meridian/internal/storage"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	version := common.LoadVersionFromFile()
	if *showVersion || *showVersionV {
		fmt.Printf("Meridian version %s\n", version)
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("meridian.toml"); err == nil {
			configFiles = append(configFiles, "meridian.toml")
		} else if _, err := os.Stat("deployments/local/meridian.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/meridian.toml")
		}
	}

	// Startup sequence: config (defaults -> files -> env), logger, banner.
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(version)

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Str("db_path", config.Storage.Path).
		Str("log_level", config.Logging.Level).
		Msg("Application configuration loaded")

	store, err := storage.NewStorageManager(logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer store.Close()

	provider := llm.NewProviderFactory(&config.Gemini, &config.Claude, &config.LLM, logger)
	defer provider.Close()

	scrapeClient := httpclient.New(
		httpclient.WithLogger(logger),
		httpclient.WithUserAgent(config.Scraping.UserAgent),
		httpclient.WithUserAgentRotation(config.Scraping.UserAgentRotation),
		httpclient.WithRequestDelay(config.Scraping.RequestDelay, config.Scraping.RandomDelay),
		httpclient.WithMaxRetries(config.Scraping.MaxRetries),
		httpclient.WithMaxBodySize(config.Scraping.MaxBodySize),
		httpclient.WithTimeout(config.Scraping.RequestTimeout),
	)

	// Reddit's public JSON endpoints want a stable, descriptive user
	// agent rather than a rotating browser one.
	redditClient := httpclient.New(
		httpclient.WithLogger(logger),
		httpclient.WithUserAgent(config.Sources.RedditUserAgent),
		httpclient.WithRequestDelay(config.Scraping.RequestDelay, config.Scraping.RandomDelay),
		httpclient.WithMaxRetries(config.Scraping.MaxRetries),
		httpclient.WithTimeout(config.Scraping.RequestTimeout),
	)

	prices := marketdata.NewClient(
		marketdata.WithBaseURL(config.MarketData.BaseURL),
		marketdata.WithLogger(logger),
		marketdata.WithRateLimit(requestsPerSecond(config.MarketData.RateLimit)),
		marketdata.WithHTTPClient(&http.Client{Timeout: config.MarketData.RequestTimeout}),
	)

	var adapters []interfaces.SourceAdapter
	if config.Scraping.Enabled {
		adapters = scrapers.BuildNewsAdapters(config, scrapeClient, logger)
	} else {
		logger.Warn().Msg("Web scraping disabled, running on feeds and social sources only")
	}
	feeds := scrapers.NewFeedReader(config.Scraping.UserAgent, logger)
	reddit := scrapers.NewRedditScraper(redditClient, config.UniverseNames(), logger)

	orchestrator := ingestion.NewOrchestrator(store, adapters, feeds, reddit, prices, config, logger)
	pipelineService := pipeline.NewService(store, provider, config, logger)
	backtestEngine := backtest.NewEngine(store, prices, nil, logger)
	universeService := universe.NewService(store, config, logger)
	narrativeService := narrative.NewService(store, provider, config, nil, logger)

	sched := scheduler.New(config, orchestrator, pipelineService, backtestEngine, universeService, narrativeService, nil, logger)

	if config.Scheduler.Enabled {
		if err := sched.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start scheduler")
		}
		logger.Info().Msg("Meridian running - Press Ctrl+C to stop")
	} else {
		logger.Warn().Msg("Scheduler disabled, nothing will run until it is enabled")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	if config.Scheduler.Enabled {
		sched.Stop()
	}
	logger.Info().Msg("Meridian stopped")
}

// requestsPerSecond converts a minimum-spacing duration into the
// whole-requests-per-second figure the marketdata client expects.
func requestsPerSecond(spacing time.Duration) int {
	if spacing <= 0 {
		return marketdata.DefaultRateLimit
	}
	rps := int(time.Second / spacing)
	if rps < 1 {
		rps = 1
	}
	return rps
}
