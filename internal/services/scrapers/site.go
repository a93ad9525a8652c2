package scrapers

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/meridian/internal/httpclient"
	"github.com/ternarybob/meridian/internal/interfaces"
	"github.com/ternarybob/meridian/internal/models"
)

// minTitleLength filters navigation chrome ("More", "Subscribe") that
// shares anchor markup with real headlines.
const minTitleLength = 10

// linkFilter reports whether an absolute URL is an article page for
// this source, as opposed to a section or utility page.
type linkFilter func(url string) bool

// siteAdapter is the shared shape of the structural news adapters: a
// landing page, a URL filter, and container hints for the body. The
// per-source constructors in sources.go fill these in.
type siteAdapter struct {
	name          string
	baseURL       string
	sectionURL    string
	filter        linkFilter
	linkSelector  string // defaults to all anchors
	bodyKeywords  []string
	titleRewrites []func(string) string

	client *httpclient.Client
	logger arbor.ILogger
}

func (a *siteAdapter) Name() string { return a.name }

// Discover fetches the landing page and returns candidate article
// URLs after structural filtering, in page order, deduplicated.
func (a *siteAdapter) Discover(ctx context.Context, limit int) ([]string, error) {
	doc, err := a.client.GetDocument(ctx, a.sectionURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to fetch landing page: %w", a.name, err)
	}

	selector := a.linkSelector
	if selector == "" {
		selector = "a[href]"
	}

	seen := make(map[string]bool)
	var urls []string
	doc.Find(selector).EachWithBreak(func(_ int, link *goquery.Selection) bool {
		if len(urls) >= limit {
			return false
		}

		href, _ := link.Attr("href")
		url := resolveURL(a.baseURL, href)
		if url == "" || seen[url] {
			return true
		}
		if a.filter != nil && !a.filter(url) {
			return true
		}
		seen[url] = true

		title := a.rewriteTitle(cleanText(link.Text()))
		if len(title) < minTitleLength {
			return true
		}

		urls = append(urls, url)
		return true
	})

	a.logger.Debug().Str("source", a.name).Int("candidates", len(urls)).Msg("Link discovery complete")
	return urls, nil
}

// Extract fetches one article page and normalizes it. Pages without a
// usable headline are skipped rather than failed.
func (a *siteAdapter) Extract(ctx context.Context, url string) (*models.ContentItem, error) {
	doc, err := a.client.GetDocument(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to fetch article: %w", a.name, err)
	}

	title := cleanText(doc.Find("h1").First().Text())
	if title == "" {
		title = cleanText(doc.Find("title").First().Text())
	}
	title = a.rewriteTitle(title)
	if title == "" {
		return nil, interfaces.ErrSkip
	}

	content := extractBody(doc, a.bodyKeywords)
	summary := truncateRunes(content, summaryMax)
	if summary == "" {
		summary = title
	}

	return &models.ContentItem{
		Kind:        models.ContentKindNews,
		Title:       title,
		Content:     content,
		Summary:     summary,
		Source:      a.name,
		URL:         url,
		URLHash:     models.HashURL(url),
		PublishedAt: extractDate(doc),
		IngestedAt:  time.Now().UTC(),
	}, nil
}

func (a *siteAdapter) rewriteTitle(title string) string {
	for _, rewrite := range a.titleRewrites {
		title = rewrite(title)
	}
	return title
}
