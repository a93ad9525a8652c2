package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// ContentKind distinguishes editorial news from community/social posts.
type ContentKind string

const (
	ContentKindNews   ContentKind = "news"
	ContentKindSocial ContentKind = "social"
)

// ContentItem is a normalized piece of ingested content from any source.
// Immutable once ingested except for the Processed flag and, for social
// posts, the AI-derived sentiment fields.
type ContentItem struct {
	ID   uint        `gorm:"primaryKey" json:"id"`
	Kind ContentKind `gorm:"size:10;index;not null" json:"kind"`

	Title   string `gorm:"size:500;not null" json:"title"`
	Content string `gorm:"type:text" json:"content"`
	Summary string `gorm:"type:text" json:"summary"`
	Source  string `gorm:"size:100;not null;index" json:"source"`
	Author  string `gorm:"size:100" json:"author,omitempty"`

	// URLHash is the dedup key: sha256 of the canonical source URL.
	URL     string `gorm:"size:1000;not null" json:"url"`
	URLHash string `gorm:"size:64;not null;uniqueIndex" json:"url_hash"`

	PublishedAt *time.Time `json:"published_at,omitempty"`
	IngestedAt  time.Time  `json:"ingested_at"`
	Processed   bool       `gorm:"index" json:"processed"`

	// Community metrics (social posts only)
	Upvotes       int `json:"upvotes,omitempty"`
	CommentsCount int `json:"comments_count,omitempty"`

	// TickersMentioned is a JSON array of tickers detected in the post text.
	TickersMentioned string `gorm:"type:text" json:"tickers_mentioned,omitempty"`

	// AI-derived sentiment, populated by the pipeline for social posts.
	Sentiment  string   `gorm:"size:10" json:"sentiment,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// HashURL returns the content-address used for deduplication.
func HashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// SetTickers stores the detected ticker list as JSON.
func (c *ContentItem) SetTickers(tickers []string) {
	if len(tickers) == 0 {
		c.TickersMentioned = ""
		return
	}
	data, err := json.Marshal(tickers)
	if err != nil {
		return
	}
	c.TickersMentioned = string(data)
}

// Tickers decodes the stored ticker list. Returns nil when empty or malformed.
func (c *ContentItem) Tickers() []string {
	if c.TickersMentioned == "" {
		return nil
	}
	var tickers []string
	if err := json.Unmarshal([]byte(c.TickersMentioned), &tickers); err != nil {
		return nil
	}
	return tickers
}

// Body returns the best available text for analysis: summary, then full
// content, then the title.
func (c *ContentItem) Body() string {
	if c.Summary != "" {
		return c.Summary
	}
	if c.Content != "" {
		return c.Content
	}
	return c.Title
}
