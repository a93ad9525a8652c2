package models

import "time"

// Direction of a predicted price move.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Sentiment classes produced by the analysis pipeline.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Time horizons over which a signal is expected to play out.
const (
	HorizonShort  = "short"  // 1-3 days
	HorizonMedium = "medium" // 1-4 weeks
	HorizonLong   = "long"   // 1-3 months
)

// Signal is one directional hypothesis for one ticker derived from one
// content item. Immutable after creation; many signals may fan out from
// a single item.
type Signal struct {
	ID            uint `gorm:"primaryKey" json:"id"`
	ContentItemID uint `gorm:"not null;index" json:"content_item_id"`

	Ticker      string `gorm:"size:20;not null;index" json:"ticker"`
	CompanyName string `gorm:"size:200" json:"company_name,omitempty"`
	Sector      string `gorm:"size:50" json:"sector,omitempty"`

	Sentiment  string  `gorm:"size:10;not null" json:"sentiment"`
	Confidence float64 `gorm:"not null" json:"confidence"`
	Reasoning  string  `gorm:"type:text" json:"reasoning,omitempty"`

	Direction        string `gorm:"size:10" json:"direction,omitempty"`
	ImpactHypothesis string `gorm:"type:text" json:"impact_hypothesis,omitempty"`
	TimeHorizon      string `gorm:"size:20" json:"time_horizon,omitempty"`
	InsightType      string `gorm:"size:50" json:"insight_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Theme is a named cluster of content items sharing a macro narrative.
type Theme struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	Name           string  `gorm:"size:200;not null" json:"name"`
	Description    string  `gorm:"type:text" json:"description,omitempty"`
	Sector         string  `gorm:"size:50" json:"sector,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`

	CreatedAt time.Time `json:"created_at"`

	Items []ContentItem `gorm:"many2many:theme_items" json:"items,omitempty"`
}
