package models

import "time"

// Quote is a point-in-time market snapshot for a ticker. The table is an
// append-only time series with no uniqueness constraint; "latest" is
// the most recently inserted row per ticker.
type Quote struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Ticker      string `gorm:"size:20;not null;index" json:"ticker"`
	CompanyName string `gorm:"size:200" json:"company_name,omitempty"`
	Exchange    string `gorm:"size:10" json:"exchange,omitempty"`

	CurrentPrice  *float64 `json:"current_price,omitempty"`
	OpenPrice     *float64 `json:"open_price,omitempty"`
	HighPrice     *float64 `json:"high_price,omitempty"`
	LowPrice      *float64 `json:"low_price,omitempty"`
	PreviousClose *float64 `json:"previous_close,omitempty"`

	Volume *int64 `json:"volume,omitempty"`

	PriceChange   *float64 `json:"price_change,omitempty"`
	PercentChange *float64 `json:"percent_change,omitempty"`

	Source     string     `gorm:"size:100;not null" json:"source"`
	QuoteTime  *time.Time `json:"quote_time,omitempty"`
	IngestedAt time.Time  `gorm:"index" json:"ingested_at"`
}

// TrackedInstrument is one entry in the curated universe of tickers
// eligible for ingestion and signal generation. Rows are upserted on
// refresh and soft-deactivated, never hard-deleted.
type TrackedInstrument struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Ticker      string `gorm:"size:20;not null;uniqueIndex" json:"ticker"`
	CompanyName string `gorm:"size:200;not null" json:"company_name"`
	Exchange    string `gorm:"size:10;not null" json:"exchange"`
	Sector      string `gorm:"size:50" json:"sector,omitempty"`

	Rank int `json:"rank"`

	IsActive          bool      `gorm:"default:true" json:"is_active"`
	SelectionCriteria string    `gorm:"size:100" json:"selection_criteria,omitempty"`
	LastUpdated       time.Time `json:"last_updated"`
}
