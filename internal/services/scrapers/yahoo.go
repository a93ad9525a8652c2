package scrapers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/meridian/internal/httpclient"
	"github.com/ternarybob/meridian/internal/interfaces"
	"github.com/ternarybob/meridian/internal/models"
)

// yahooRSSURL is the news index feed. Yahoo Finance pages are rendered
// client-side, so the feed is the reliable discovery surface.
const yahooRSSURL = "https://finance.yahoo.com/news/rssindex"

// yahooEnrichThreshold: feed summaries shorter than this trigger a
// best-effort fetch of the full article page.
const yahooEnrichThreshold = 200

// YahooFinance is the RSS-backed adapter for Yahoo Finance Canada.
// Discover caches the feed entries so Extract can build items from
// feed data even when the article page cannot be fetched.
type YahooFinance struct {
	feedURL string
	parser  *gofeed.Parser
	client  *httpclient.Client
	logger  arbor.ILogger

	mu      sync.Mutex
	entries map[string]*gofeed.Item
}

func NewYahooFinance(client *httpclient.Client, logger arbor.ILogger) *YahooFinance {
	return &YahooFinance{
		feedURL: yahooRSSURL,
		parser:  gofeed.NewParser(),
		client:  client,
		logger:  logger,
		entries: make(map[string]*gofeed.Item),
	}
}

func (y *YahooFinance) Name() string { return "Yahoo Finance Canada" }

func (y *YahooFinance) Discover(ctx context.Context, limit int) ([]string, error) {
	feed, err := y.parser.ParseURLWithContext(y.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse feed: %w", y.Name(), err)
	}

	y.mu.Lock()
	defer y.mu.Unlock()

	var urls []string
	for _, entry := range feed.Items {
		if len(urls) >= limit {
			break
		}
		if entry.Link == "" || len(cleanText(entry.Title)) < minTitleLength {
			continue
		}
		if _, seen := y.entries[entry.Link]; seen {
			continue
		}
		y.entries[entry.Link] = entry
		urls = append(urls, entry.Link)
	}

	y.logger.Debug().Str("source", y.Name()).Int("candidates", len(urls)).Msg("Feed discovery complete")
	return urls, nil
}

func (y *YahooFinance) Extract(ctx context.Context, url string) (*models.ContentItem, error) {
	y.mu.Lock()
	entry := y.entries[url]
	y.mu.Unlock()
	if entry == nil {
		return nil, interfaces.ErrSkip
	}

	title := cleanText(entry.Title)
	content := stripHTML(entry.Description)

	// Short feed summaries get enriched from the article page when the
	// fetch succeeds; the feed data stands on its own otherwise.
	if len(content) < yahooEnrichThreshold {
		if doc, err := y.client.GetDocument(ctx, url); err == nil {
			if body := extractBody(doc, []string{"article", "caas-body", "body"}); len(body) > len(content) {
				content = body
			}
		}
	}

	summary := truncateRunes(content, summaryMax)
	if summary == "" {
		summary = title
	}

	var published *time.Time
	if entry.PublishedParsed != nil {
		t := entry.PublishedParsed.UTC()
		published = &t
	} else if entry.UpdatedParsed != nil {
		t := entry.UpdatedParsed.UTC()
		published = &t
	}

	return &models.ContentItem{
		Kind:        models.ContentKindNews,
		Title:       title,
		Content:     content,
		Summary:     summary,
		Source:      y.Name(),
		URL:         url,
		URLHash:     models.HashURL(url),
		PublishedAt: published,
		IngestedAt:  time.Now().UTC(),
	}, nil
}
