package scrapers

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/meridian/internal/common"
	"github.com/ternarybob/meridian/internal/httpclient"
	"github.com/ternarybob/meridian/internal/models"
)

// redditBaseURL is overridable for tests.
const redditBaseURL = "https://www.reddit.com"

// redditContentMax caps stored post text.
const redditContentMax = 5000

// minPostLength drops empty or near-empty posts (link-only posts with
// one-word titles carry no analyzable sentiment).
const minPostLength = 10

// RedditScraper pulls hot posts from public subreddit JSON listings.
// No API credentials are required; the public endpoint returns the
// same listing the web frontend renders.
type RedditScraper struct {
	baseURL  string
	client   *httpclient.Client
	universe map[string]string
	logger   arbor.ILogger
}

func NewRedditScraper(client *httpclient.Client, universe map[string]string, logger arbor.ILogger) *RedditScraper {
	return &RedditScraper{
		baseURL:  redditBaseURL,
		client:   client,
		universe: universe,
		logger:   logger,
	}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
	Ups         int     `json:"ups"`
	NumComments int     `json:"num_comments"`
}

// ScrapeSubreddit fetches the hot listing for one subreddit and
// returns normalized social posts with detected ticker mentions.
func (r *RedditScraper) ScrapeSubreddit(ctx context.Context, subreddit string, limit int) ([]*models.ContentItem, error) {
	url := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", r.baseURL, subreddit, limit)

	var listing redditListing
	if err := r.client.GetJSON(ctx, url, &listing); err != nil {
		return nil, fmt.Errorf("failed to fetch r/%s: %w", subreddit, err)
	}

	var posts []*models.ContentItem
	for _, child := range listing.Data.Children {
		post := child.Data
		if post.Permalink == "" {
			continue
		}
		postURL := redditBaseURL + post.Permalink

		body := post.Title
		if post.Selftext != "" {
			body = post.Title + "\n\n" + post.Selftext
		}
		if len(body) < minPostLength {
			continue
		}
		body = truncateRunes(body, redditContentMax)

		var posted *time.Time
		if post.CreatedUTC > 0 {
			t := time.Unix(int64(post.CreatedUTC), 0).UTC()
			posted = &t
		}

		item := &models.ContentItem{
			Kind:          models.ContentKindSocial,
			Title:         cleanText(post.Title),
			Content:       body,
			Source:        fmt.Sprintf("Reddit r/%s", subreddit),
			Author:        post.Author,
			URL:           postURL,
			URLHash:       models.HashURL(postURL),
			PublishedAt:   posted,
			IngestedAt:    time.Now().UTC(),
			Upvotes:       post.Ups,
			CommentsCount: post.NumComments,
		}
		item.SetTickers(common.ExtractTickerMentions(body, r.universe))
		posts = append(posts, item)
	}

	r.logger.Debug().Str("subreddit", subreddit).Int("posts", len(posts)).Msg("Subreddit listing fetched")
	return posts, nil
}

// ScrapeAll fetches every configured subreddit, isolating failures so
// one blocked community does not cost the others.
func (r *RedditScraper) ScrapeAll(ctx context.Context, subreddits []string, limit int) []*models.ContentItem {
	var all []*models.ContentItem
	for _, sub := range subreddits {
		posts, err := r.ScrapeSubreddit(ctx, sub, limit)
		if err != nil {
			r.logger.Warn().Err(err).Str("subreddit", sub).Msg("Subreddit fetch failed")
			continue
		}
		all = append(all, posts...)
	}
	return all
}
