// Package ingestion coordinates content and market-data collection:
// structural news scraping, RSS feeds, Reddit sentiment, and quote
// snapshots. Each source is isolated; one failing source never costs
// the rest of the cycle.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/meridian/internal/common"
	"github.com/ternarybob/meridian/internal/interfaces"
	"github.com/ternarybob/meridian/internal/models"
)

// FeedSource parses one RSS feed into normalized items.
// Satisfied by scrapers.FeedReader.
type FeedSource interface {
	Fetch(ctx context.Context, sourceName, feedURL string) ([]*models.ContentItem, error)
}

// SocialSource collects community posts across subreddits.
// Satisfied by scrapers.RedditScraper.
type SocialSource interface {
	ScrapeAll(ctx context.Context, subreddits []string, limit int) []*models.ContentItem
}

// Orchestrator runs the collection cycles against storage.
type Orchestrator struct {
	storage  interfaces.Storage
	adapters []interfaces.SourceAdapter
	feeds    FeedSource
	reddit   SocialSource
	prices   interfaces.PriceHistory
	config   *common.Config
	logger   arbor.ILogger
}

func NewOrchestrator(
	storage interfaces.Storage,
	adapters []interfaces.SourceAdapter,
	feeds FeedSource,
	reddit SocialSource,
	prices interfaces.PriceHistory,
	config *common.Config,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		storage:  storage,
		adapters: adapters,
		feeds:    feeds,
		reddit:   reddit,
		prices:   prices,
		config:   config,
		logger:   logger,
	}
}

// IngestNews runs every news adapter and returns new-article counts
// per source. Adapter failures are logged and reported as zero.
func (o *Orchestrator) IngestNews(ctx context.Context) map[string]int {
	results := make(map[string]int)
	limit := o.config.Scraping.ArticlesPerSource

	for _, adapter := range o.adapters {
		count, err := o.ingestSource(ctx, adapter, limit)
		if err != nil {
			o.logger.Warn().Err(err).Str("source", adapter.Name()).Msg("Source ingestion failed")
		}
		results[adapter.Name()] = count

		if ctx.Err() != nil {
			break
		}
	}

	total := 0
	for _, n := range results {
		total += n
	}
	o.logger.Info().Int("articles", total).Int("sources", len(results)).Msg("News ingestion complete")
	return results
}

func (o *Orchestrator) ingestSource(ctx context.Context, adapter interfaces.SourceAdapter, limit int) (int, error) {
	urls, err := adapter.Discover(ctx, limit)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, url := range urls {
		// Known URLs are skipped before the page fetch; re-extracting an
		// already-stored article wastes the politeness budget.
		exists, err := o.storage.HasContent(ctx, models.HashURL(url))
		if err == nil && exists {
			continue
		}

		item, err := adapter.Extract(ctx, url)
		if err != nil {
			if !errors.Is(err, interfaces.ErrSkip) {
				o.logger.Debug().Err(err).Str("url", url).Msg("Article extraction failed")
			}
			continue
		}

		if err := o.storage.SaveContent(ctx, item); err != nil {
			if errors.Is(err, interfaces.ErrDuplicate) {
				continue
			}
			o.logger.Error().Err(err).Str("url", url).Msg("Failed to save article")
			continue
		}
		count++
	}
	return count, nil
}

// IngestFeeds pulls every configured RSS feed. Returns new-article
// counts per feed name.
func (o *Orchestrator) IngestFeeds(ctx context.Context) map[string]int {
	results := make(map[string]int)

	for name, feedURL := range o.config.Sources.Feeds {
		items, err := o.feeds.Fetch(ctx, name, feedURL)
		if err != nil {
			o.logger.Warn().Err(err).Str("feed", name).Msg("Feed ingestion failed")
			results[name] = 0
			continue
		}

		count := 0
		for _, item := range items {
			if err := o.storage.SaveContent(ctx, item); err != nil {
				if errors.Is(err, interfaces.ErrDuplicate) {
					continue
				}
				o.logger.Error().Err(err).Str("feed", name).Msg("Failed to save feed item")
				continue
			}
			count++
		}
		results[name] = count
	}

	return results
}

// IngestSentiment pulls the configured subreddits and stores new posts.
// Returns the number of new posts.
func (o *Orchestrator) IngestSentiment(ctx context.Context) int {
	posts := o.reddit.ScrapeAll(ctx, o.config.Sources.Subreddits, o.config.Sources.RedditPostLimit)

	count := 0
	for _, post := range posts {
		if err := o.storage.SaveContent(ctx, post); err != nil {
			if errors.Is(err, interfaces.ErrDuplicate) {
				continue
			}
			o.logger.Error().Err(err).Str("url", post.URL).Msg("Failed to save social post")
			continue
		}
		count++
	}

	o.logger.Info().Int("posts", count).Msg("Sentiment ingestion complete")
	return count
}

// RefreshQuotes snapshots current prices for the active universe.
// Returns the number of quotes stored.
func (o *Orchestrator) RefreshQuotes(ctx context.Context) (int, error) {
	instruments, err := o.storage.ListActiveInstruments(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list instruments: %w", err)
	}

	count := 0
	for _, instrument := range instruments {
		snapshot, err := o.prices.GetSnapshot(ctx, instrument.Ticker)
		if err != nil {
			o.logger.Warn().Err(err).Str("ticker", instrument.Ticker).Msg("Quote fetch failed")
			continue
		}
		if snapshot == nil || snapshot.Close == 0 {
			continue
		}

		quote := o.buildQuote(instrument, snapshot)
		if err := o.storage.SaveQuote(ctx, quote); err != nil {
			o.logger.Error().Err(err).Str("ticker", instrument.Ticker).Msg("Failed to save quote")
			continue
		}
		count++

		if ctx.Err() != nil {
			return count, ctx.Err()
		}
	}

	o.logger.Info().Int("quotes", count).Int("universe", len(instruments)).Msg("Quote refresh complete")
	return count, nil
}

func (o *Orchestrator) buildQuote(instrument *models.TrackedInstrument, snapshot *interfaces.QuoteSnapshot) *models.Quote {
	now := time.Now().UTC()
	quote := &models.Quote{
		Ticker:       instrument.Ticker,
		CompanyName:  instrument.CompanyName,
		Exchange:     instrument.Exchange,
		CurrentPrice: ptr(round2(snapshot.Close)),
		Source:       "Yahoo Finance",
		QuoteTime:    &now,
	}

	if snapshot.Open != 0 {
		quote.OpenPrice = ptr(round2(snapshot.Open))
	}
	if snapshot.High != 0 {
		quote.HighPrice = ptr(round2(snapshot.High))
	}
	if snapshot.Low != 0 {
		quote.LowPrice = ptr(round2(snapshot.Low))
	}
	if snapshot.Volume != 0 {
		quote.Volume = ptr(snapshot.Volume)
	}
	if snapshot.PreviousClose > 0 {
		quote.PreviousClose = ptr(round2(snapshot.PreviousClose))
		change := snapshot.Close - snapshot.PreviousClose
		quote.PriceChange = ptr(round4(change))
		quote.PercentChange = ptr(round4(change / snapshot.PreviousClose * 100))
	}
	return quote
}

func ptr[T any](v T) *T { return &v }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
