package scrapers

import (
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/meridian/internal/common"
	"github.com/ternarybob/meridian/internal/httpclient"
	"github.com/ternarybob/meridian/internal/interfaces"
)

var (
	bnnYearPattern    = regexp.MustCompile(`/20\d{2}/\d{2}/`)
	globalNewsPattern = regexp.MustCompile(`/news/\d+/`)
	ieTrailingImage   = regexp.MustCompile(`(?i)\s*article\s*(image)?\s*$`)
	fpSubscriberOnly  = regexp.MustCompile(`(?i)^Subscriber only\.\s*`)
	hasDigit          = regexp.MustCompile(`\d`)
)

// investmentExecutiveSkipSlugs are category and section slugs that
// share the /news/ prefix with real articles.
var investmentExecutiveSkipSlugs = map[string]bool{
	"industry-news": true, "from-the-regulators": true, "research-and-markets": true,
	"for-your-clients": true, "letters-to-the-editor": true, "in-depth": true,
	"insight": true, "building-your-business": true, "soundbites": true, "feature": true,
	"newspaper": true, "tools": true, "inside-track": true, "webinars": true, "news": true,
	"uncategorized": true, "equities": true, "writer": true,
}

// financialPostSectionPaths are utility pages mixed into the Financial
// Post landing page markup.
var financialPostSectionPaths = map[string]bool{
	"category": true, "register": true, "sign-in": true, "newsletters": true,
	"subscribe": true, "my-account": true, "privacy": true, "terms": true,
	"about": true, "contact": true,
}

// NewGlobeAndMail scrapes the Globe and Mail business section.
// Article URLs always contain "/article-".
func NewGlobeAndMail(sectionURL string, client *httpclient.Client, logger arbor.ILogger) interfaces.SourceAdapter {
	return &siteAdapter{
		name:         "Globe and Mail",
		baseURL:      "https://www.theglobeandmail.com",
		sectionURL:   sectionURL,
		filter:       func(url string) bool { return strings.Contains(url, "/article-") },
		bodyKeywords: []string{"article"},
		client:       client,
		logger:       logger,
	}
}

// NewBNNBloomberg scrapes the BNN Bloomberg front page. Article URLs
// carry a /YYYY/MM/ date segment.
func NewBNNBloomberg(sectionURL string, client *httpclient.Client, logger arbor.ILogger) interfaces.SourceAdapter {
	return &siteAdapter{
		name:       "BNN Bloomberg",
		baseURL:    "https://www.bnnbloomberg.ca",
		sectionURL: sectionURL,
		filter: func(url string) bool {
			return strings.Contains(url, "bnnbloomberg.ca") && bnnYearPattern.MatchString(url)
		},
		bodyKeywords: []string{"article"},
		client:       client,
		logger:       logger,
	}
}

// NewCBCBusiness scrapes the CBC business section. Articles end in a
// slug with a numeric id; plain section pages do not.
func NewCBCBusiness(sectionURL string, client *httpclient.Client, logger arbor.ILogger) interfaces.SourceAdapter {
	return &siteAdapter{
		name:       "CBC News Business",
		baseURL:    "https://www.cbc.ca",
		sectionURL: sectionURL,
		filter: func(url string) bool {
			if !strings.Contains(url, "/news/business/") {
				return false
			}
			segments := strings.Split(strings.TrimRight(url, "/"), "/")
			return hasDigit.MatchString(segments[len(segments)-1])
		},
		bodyKeywords: []string{"story", "article"},
		client:       client,
		logger:       logger,
	}
}

// NewTMXNews scrapes TSX exchange news releases, which are rendered as
// news-list-item blocks linking to ?id= pages.
func NewTMXNews(sectionURL string, client *httpclient.Client, logger arbor.ILogger) interfaces.SourceAdapter {
	return &siteAdapter{
		name:         "TMX News",
		baseURL:      "https://www.tsx.com",
		sectionURL:   sectionURL,
		linkSelector: "div.news-list-item a[href]",
		filter:       func(url string) bool { return strings.Contains(url, "id=") },
		bodyKeywords: []string{"content", "article", "news"},
		client:       client,
		logger:       logger,
	}
}

// NewInvestmentExecutive scrapes Investment Executive. Real article
// slugs sit under /news/, are hyphenated, and are long enough to rule
// out the category pages that share the prefix.
func NewInvestmentExecutive(sectionURL string, client *httpclient.Client, logger arbor.ILogger) interfaces.SourceAdapter {
	const base = "https://www.investmentexecutive.com"
	return &siteAdapter{
		name:       "Investment Executive",
		baseURL:    base,
		sectionURL: sectionURL,
		filter: func(url string) bool {
			if !strings.Contains(url, "investmentexecutive.com") {
				return false
			}
			path := strings.Trim(strings.TrimPrefix(url, base), "/")
			parts := splitPath(path)
			if len(parts) == 0 || parts[0] != "news" {
				return false
			}
			allGeneric := true
			for _, p := range parts {
				if !investmentExecutiveSkipSlugs[p] {
					allGeneric = false
					break
				}
			}
			if allGeneric {
				return false
			}
			last := parts[len(parts)-1]
			return !investmentExecutiveSkipSlugs[last] && strings.Contains(last, "-") && len(last) >= 15
		},
		bodyKeywords: []string{"entry", "article", "content"},
		titleRewrites: []func(string) string{
			func(t string) string { return strings.TrimSpace(ieTrailingImage.ReplaceAllString(t, "")) },
		},
		client: client,
		logger: logger,
	}
}

// NewGlobalNewsMoney scrapes the Global News money section. Article
// URLs look like /news/<numeric id>/<slug>/.
func NewGlobalNewsMoney(sectionURL string, client *httpclient.Client, logger arbor.ILogger) interfaces.SourceAdapter {
	return &siteAdapter{
		name:       "Global News Money",
		baseURL:    "https://globalnews.ca",
		sectionURL: sectionURL,
		filter: func(url string) bool {
			return strings.Contains(url, "globalnews.ca") && globalNewsPattern.MatchString(url)
		},
		bodyKeywords: []string{"story", "article", "entry"},
		client:       client,
		logger:       logger,
	}
}

// NewFinancialPost scrapes the Financial Post front page via its
// article-card blocks, skipping the utility pages mixed in.
func NewFinancialPost(sectionURL string, client *httpclient.Client, logger arbor.ILogger) interfaces.SourceAdapter {
	return &siteAdapter{
		name:         "Financial Post",
		baseURL:      "https://financialpost.com",
		sectionURL:   sectionURL,
		linkSelector: "article[class*='article-card'] a[href]",
		filter: func(url string) bool {
			if !strings.Contains(url, "financialpost.com") {
				return false
			}
			path := strings.Trim(strings.TrimPrefix(url, "https://financialpost.com/"), "/")
			parts := splitPath(path)
			if len(parts) < 2 {
				return false
			}
			return !financialPostSectionPaths[parts[0]]
		},
		bodyKeywords: []string{"article", "story", "content"},
		titleRewrites: []func(string) string{
			func(t string) string { return strings.TrimSpace(fpSubscriberOnly.ReplaceAllString(t, "")) },
		},
		client: client,
		logger: logger,
	}
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// BuildNewsAdapters constructs the full adapter set from configuration.
// Landing page URLs come from config so individual sources can be
// repointed or removed without a rebuild.
func BuildNewsAdapters(cfg *common.Config, client *httpclient.Client, logger arbor.ILogger) []interfaces.SourceAdapter {
	constructors := map[string]func(string, *httpclient.Client, arbor.ILogger) interfaces.SourceAdapter{
		"Globe and Mail":       NewGlobeAndMail,
		"BNN Bloomberg":        NewBNNBloomberg,
		"CBC News Business":    NewCBCBusiness,
		"TMX News":             NewTMXNews,
		"Investment Executive": NewInvestmentExecutive,
		"Global News Money":    NewGlobalNewsMoney,
		"Financial Post":       NewFinancialPost,
	}

	// Deterministic order: follow the default source registry, not map
	// iteration order.
	order := []string{
		"Globe and Mail", "Financial Post", "BNN Bloomberg", "CBC News Business",
		"Global News Money", "TMX News", "Investment Executive", "Yahoo Finance Canada",
	}

	var adapters []interfaces.SourceAdapter
	for _, name := range order {
		sectionURL, configured := cfg.Sources.News[name]
		if !configured {
			continue
		}
		if name == "Yahoo Finance Canada" {
			adapters = append(adapters, NewYahooFinance(client, logger))
			continue
		}
		if build, ok := constructors[name]; ok {
			adapters = append(adapters, build(sectionURL, client, logger))
		}
	}
	return adapters
}
