package interfaces

import (
	"context"
	"time"
)

// PriceSeries maps trading dates (formatted "2006-01-02") to close prices.
// Days the market did not trade are simply absent.
type PriceSeries map[string]float64

// QuoteSnapshot is the latest and prior close for one ticker, used to
// build Quote rows.
type QuoteSnapshot struct {
	Ticker        string
	Date          time.Time
	Close         float64
	Open          float64
	High          float64
	Low           float64
	Volume        int64
	PreviousClose float64
}

// PriceHistory is the consumed price-history interface. Implementations
// return an empty series on failure; callers cannot distinguish "no
// data" from "ticker invalid" and must not try.
type PriceHistory interface {
	// GetDailyCloses returns the date->close series for the range.
	GetDailyCloses(ctx context.Context, ticker string, from, to time.Time) (PriceSeries, error)

	// GetSnapshot returns the latest daily bar with the prior close, or
	// nil when no data is available.
	GetSnapshot(ctx context.Context, ticker string) (*QuoteSnapshot, error)
}
