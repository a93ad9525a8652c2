package scrapers

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/meridian/internal/models"
)

// FeedReader ingests the configured RSS feeds. Feed entries carry
// title, summary, and timestamp, so no page fetches are needed.
type FeedReader struct {
	parser *gofeed.Parser
	logger arbor.ILogger
}

func NewFeedReader(userAgent string, logger arbor.ILogger) *FeedReader {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &FeedReader{parser: parser, logger: logger}
}

// Fetch parses one feed and returns normalized items. Entries without
// a link are dropped; deduplication happens at the storage layer.
func (r *FeedReader) Fetch(ctx context.Context, sourceName, feedURL string) ([]*models.ContentItem, error) {
	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse feed: %w", sourceName, err)
	}

	items := make([]*models.ContentItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry.Link == "" {
			continue
		}

		title := cleanText(entry.Title)
		summary := stripHTML(entry.Description)
		if summary == "" && entry.Content != "" {
			summary = stripHTML(entry.Content)
		}

		short := truncateRunes(summary, summaryMax)
		if short == "" {
			short = title
		}

		var published *time.Time
		if entry.PublishedParsed != nil {
			t := entry.PublishedParsed.UTC()
			published = &t
		} else if entry.UpdatedParsed != nil {
			t := entry.UpdatedParsed.UTC()
			published = &t
		}

		items = append(items, &models.ContentItem{
			Kind:        models.ContentKindNews,
			Title:       title,
			Content:     summary,
			Summary:     short,
			Source:      sourceName,
			URL:         entry.Link,
			URLHash:     models.HashURL(entry.Link),
			PublishedAt: published,
			IngestedAt:  time.Now().UTC(),
		})
	}

	r.logger.Debug().Str("source", sourceName).Int("entries", len(items)).Msg("Feed parsed")
	return items, nil
}
