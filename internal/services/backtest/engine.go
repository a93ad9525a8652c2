// Package backtest validates directional signals against realized
// prices at fixed horizons after the signal date.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/meridian/internal/interfaces"
	"github.com/ternarybob/meridian/internal/models"
)

const (
	// Price window fetched around the signal date. The lookback covers
	// signals created on weekends; the lookahead covers the 30-day
	// horizon plus the nearest-day search slack.
	priceLookbackDays  = 5
	priceLookaheadDays = 35

	// maxOffsetDays bounds the nearest-trading-day search. Five days
	// spans any weekend-plus-holiday gap on the TSX calendar.
	maxOffsetDays = 5
)

// offsetDirections is the probe order around a target date: exact day
// first, then alternating forward and backward by growing distance.
var offsetDirections = []int{0, 1, -1, 2, -2, 3, -3, 4, -4, 5, -5}

// Stats summarizes one validation run.
type Stats struct {
	SignalsTested  int
	ResultsCreated int
}

// Engine evaluates signals against price history.
type Engine struct {
	storage interfaces.Storage
	prices  interfaces.PriceHistory
	clock   interfaces.Clock
	logger  arbor.ILogger
}

func NewEngine(storage interfaces.Storage, prices interfaces.PriceHistory, clock interfaces.Clock, logger arbor.ILogger) *Engine {
	if clock == nil {
		clock = interfaces.SystemClock()
	}
	return &Engine{storage: storage, prices: prices, clock: clock, logger: logger}
}

// RunPending validates every directional signal without a result yet.
// Per-signal failures are logged and skipped; the run is idempotent
// because saved results remove signals from the pending set.
func (e *Engine) RunPending(ctx context.Context) (*Stats, error) {
	pending, err := e.storage.ListUntestedSignals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list untested signals: %w", err)
	}

	stats := &Stats{SignalsTested: len(pending)}
	for i, signal := range pending {
		e.logger.Debug().
			Int("signal", i+1).
			Int("total", len(pending)).
			Str("ticker", signal.Ticker).
			Msg("Validating signal")

		result, err := e.TestSignal(ctx, signal)
		if err != nil {
			e.logger.Warn().Err(err).Int("id", int(signal.ID)).Msg("Signal validation failed")
			continue
		}
		if result == nil {
			continue
		}

		if err := e.storage.SaveResult(ctx, result); err != nil {
			if !errors.Is(err, interfaces.ErrDuplicate) {
				e.logger.Error().Err(err).Int("signal_id", int(signal.ID)).Msg("Failed to save backtest result")
			}
			continue
		}
		stats.ResultsCreated++

		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
	}

	return stats, nil
}

// TestSignal evaluates one signal. Returns nil without error when the
// signal cannot be evaluated: missing ticker or direction, no price
// data, or no resolvable price at the signal date.
func (e *Engine) TestSignal(ctx context.Context, signal *models.Signal) (*models.BacktestResult, error) {
	if signal.Ticker == "" || signal.Direction == "" {
		return nil, nil
	}

	signalDate := signal.CreatedAt
	if signalDate.IsZero() {
		signalDate = e.clock.Now().UTC()
	}

	from := signalDate.AddDate(0, 0, -priceLookbackDays)
	to := signalDate.AddDate(0, 0, priceLookaheadDays)
	prices, err := e.prices.GetDailyCloses(ctx, signal.Ticker, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices for %s: %w", signal.Ticker, err)
	}
	if len(prices) == 0 {
		e.logger.Debug().Str("ticker", signal.Ticker).Msg("No price data for signal")
		return nil, nil
	}

	priceAtSignal := findNearestPrice(prices, signalDate)
	if priceAtSignal == nil {
		return nil, nil
	}

	price1D := findNearestPrice(prices, signalDate.AddDate(0, 0, 1))
	price7D := findNearestPrice(prices, signalDate.AddDate(0, 0, 7))
	price30D := findNearestPrice(prices, signalDate.AddDate(0, 0, 30))

	predictedUp := signal.Direction == models.DirectionUp

	result := &models.BacktestResult{
		SignalID:           signal.ID,
		Ticker:             signal.Ticker,
		SignalDate:         signalDate,
		DirectionPredicted: signal.Direction,
		PriceAtSignal:      ptr(round2(*priceAtSignal)),
	}
	result.Price1D, result.Actual1DChange, result.Accurate1D = horizonOutcome(*priceAtSignal, price1D, predictedUp)
	result.Price7D, result.Actual7DChange, result.Accurate7D = horizonOutcome(*priceAtSignal, price7D, predictedUp)
	result.Price30D, result.Actual30DChange, result.Accurate30D = horizonOutcome(*priceAtSignal, price30D, predictedUp)

	return result, nil
}

// horizonOutcome derives the stored price, percent change, and
// direction hit for one horizon. All nil when the horizon price could
// not be resolved. A flat price only counts as accurate for a "down"
// prediction: the move predicted did not happen.
func horizonOutcome(base float64, price *float64, predictedUp bool) (*float64, *float64, *bool) {
	if price == nil {
		return nil, nil, nil
	}
	change := (*price - base) / base * 100
	accurate := (change > 0) == predictedUp
	return ptr(round2(*price)), ptr(round2(change)), &accurate
}

// findNearestPrice resolves a price for the target date, probing
// nearby days to cover weekends and holidays. Returns nil when no
// trading day falls within the search window.
func findNearestPrice(prices interfaces.PriceSeries, target time.Time) *float64 {
	for offset := 0; offset <= maxOffsetDays; offset++ {
		for _, direction := range offsetDirections {
			key := target.AddDate(0, 0, direction+offset).Format("2006-01-02")
			if price, ok := prices[key]; ok {
				return &price
			}
		}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
