// Package scrapers implements the per-source content adapters: eight
// Canadian news sites discovered structurally, RSS feeds, and public
// Reddit listings. Site-specific knowledge lives in URL filters and
// container hints; fetching, retry, and politeness are delegated to
// the shared HTTP client.
package scrapers

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// summaryMax caps the stored summary length.
const summaryMax = 500

// defaultBodyKeywords locate the article body container when a source
// gives no better hint.
var defaultBodyKeywords = []string{"article", "story", "entry", "content", "body"}

// fallbackParagraphLimit bounds the whole-page paragraph sweep used
// when no body container matches.
const fallbackParagraphLimit = 25

var htmlTagRegex = regexp.MustCompile(`<[^>]+>`)

// cleanText collapses runs of whitespace into single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripHTML removes markup from feed summaries.
func stripHTML(s string) string {
	return cleanText(htmlTagRegex.ReplaceAllString(s, " "))
}

// truncateRunes shortens text without splitting a multibyte character.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// resolveURL turns a possibly relative href into an absolute URL under
// base. Returns "" for hrefs that cannot become fetchable URLs.
func resolveURL(base, href string) string {
	if href == "" || strings.Contains(href, "#") {
		return ""
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		return ""
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return parsed.ResolveReference(ref).String()
}

// dateLayouts accepted for published timestamps, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// extractDate pulls a published timestamp from the common patterns:
// a <time datetime> element first, then article metadata tags.
func extractDate(doc *goquery.Document) *time.Time {
	if raw, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		if t, parsed := parseTimestamp(raw); parsed {
			return &t
		}
	}

	for _, prop := range []string{"article:published_time", "datePublished", "og:article:published_time"} {
		selector := fmt.Sprintf("meta[property='%s'], meta[name='%s']", prop, prop)
		if raw, ok := doc.Find(selector).First().Attr("content"); ok {
			if t, parsed := parseTimestamp(raw); parsed {
				return &t
			}
		}
	}
	return nil
}

// extractBody collects paragraph text from the article body. It looks
// for a div whose class mentions one of the container keywords; when
// none matches, it sweeps the page's first paragraphs instead.
func extractBody(doc *goquery.Document, keywords []string) string {
	if len(keywords) == 0 {
		keywords = defaultBodyKeywords
	}

	for _, keyword := range keywords {
		var paragraphs []string
		doc.Find("div[class]").EachWithBreak(func(_ int, div *goquery.Selection) bool {
			class, _ := div.Attr("class")
			if !strings.Contains(strings.ToLower(class), keyword) {
				return true
			}
			div.Find("p").Each(func(_ int, p *goquery.Selection) {
				if text := cleanText(p.Text()); text != "" {
					paragraphs = append(paragraphs, text)
				}
			})
			return len(paragraphs) == 0
		})
		if len(paragraphs) > 0 {
			return strings.Join(paragraphs, " ")
		}
	}

	var paragraphs []string
	doc.Find("p").EachWithBreak(func(i int, p *goquery.Selection) bool {
		if i >= fallbackParagraphLimit {
			return false
		}
		if text := cleanText(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
		return true
	})
	return strings.Join(paragraphs, " ")
}
