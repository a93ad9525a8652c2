package scrapers

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", cleanText("  a \n\t b   c  "))
	assert.Equal(t, "", cleanText("   "))
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Oil prices rise on supply cuts",
		stripHTML(`<p>Oil prices <b>rise</b> on supply cuts</p>`))
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, href, want string
	}{
		{"https://www.cbc.ca", "/news/business/oil-1.234", "https://www.cbc.ca/news/business/oil-1.234"},
		{"https://www.cbc.ca", "https://other.com/page", "https://other.com/page"},
		{"https://www.cbc.ca", "/news#comments", ""},
		{"https://www.cbc.ca", "mailto:tips@cbc.ca", ""},
		{"https://www.cbc.ca", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveURL(tt.base, tt.href), tt.href)
	}
}

func TestExtractDate_TimeTag(t *testing.T) {
	doc := parseDoc(t, `<html><body><time datetime="2026-02-10T14:30:00Z">Feb 10</time></body></html>`)
	got := extractDate(doc)
	require.NotNil(t, got)
	assert.Equal(t, 2026, got.Year())
	assert.Equal(t, 14, got.Hour())
}

func TestExtractDate_MetaProperty(t *testing.T) {
	doc := parseDoc(t, `<html><head><meta property="article:published_time" content="2026-03-01T09:00:00-05:00"></head><body></body></html>`)
	got := extractDate(doc)
	require.NotNil(t, got)
	assert.Equal(t, time.March, got.Month())
}

func TestExtractDate_None(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>no date here</p></body></html>`)
	assert.Nil(t, extractDate(doc))
}

func TestExtractBody_ContainerMatch(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div class="sidebar"><p>Subscribe now</p></div>
		<div class="article-body"><p>First paragraph.</p><p>Second paragraph.</p></div>
	</body></html>`)
	assert.Equal(t, "First paragraph. Second paragraph.", extractBody(doc, []string{"article"}))
}

func TestExtractBody_Fallback(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>One.</p><p>Two.</p></body></html>`)
	assert.Equal(t, "One. Two.", extractBody(doc, []string{"article"}))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 10))
	assert.Equal(t, "ab", truncateRunes("abcd", 2))
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
}
