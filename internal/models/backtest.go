package models

import "time"

// BacktestResult records how a signal's predicted direction compared to
// realized price movement at fixed horizons. At most one result exists
// per signal. Horizon fields are nil when no price could be resolved
// within the offset window; an unresolved horizon is not evaluated.
type BacktestResult struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	SignalID uint `gorm:"not null;uniqueIndex" json:"signal_id"`

	Ticker             string    `gorm:"size:20;not null" json:"ticker"`
	SignalDate         time.Time `gorm:"not null" json:"signal_date"`
	DirectionPredicted string    `gorm:"size:10;not null" json:"direction_predicted"`

	PriceAtSignal *float64 `json:"price_at_signal,omitempty"`
	Price1D       *float64 `json:"price_1d,omitempty"`
	Price7D       *float64 `json:"price_7d,omitempty"`
	Price30D      *float64 `json:"price_30d,omitempty"`

	Actual1DChange  *float64 `json:"actual_1d_change,omitempty"`
	Actual7DChange  *float64 `json:"actual_7d_change,omitempty"`
	Actual30DChange *float64 `json:"actual_30d_change,omitempty"`

	Accurate1D  *bool `json:"accurate_1d,omitempty"`
	Accurate7D  *bool `json:"accurate_7d,omitempty"`
	Accurate30D *bool `json:"accurate_30d,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HorizonAccuracy is an aggregate view of directional accuracy per horizon.
type HorizonAccuracy struct {
	Horizon  string  `json:"horizon"`
	Tested   int     `json:"tested"`
	Accurate int     `json:"accurate"`
	HitRate  float64 `json:"hit_rate"`
}
