package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/meridian/internal/common"
	"github.com/ternarybob/meridian/internal/interfaces"
	"github.com/ternarybob/meridian/internal/models"
	"github.com/ternarybob/meridian/internal/storage/sqlite"
)

type stubPrices struct {
	series map[string]interfaces.PriceSeries
	err    error
}

func (p *stubPrices) GetDailyCloses(_ context.Context, ticker string, _, _ time.Time) (interfaces.PriceSeries, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.series[ticker], nil
}

func (p *stubPrices) GetSnapshot(context.Context, string) (*interfaces.QuoteSnapshot, error) {
	return nil, nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestEngine(t *testing.T, prices interfaces.PriceHistory) (*Engine, interfaces.Storage) {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Path = ":memory:"

	store, err := sqlite.NewManager(common.GetLogger(), &cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewEngine(store, prices, nil, common.GetLogger()), store
}

func TestFindNearestPrice(t *testing.T) {
	prices := interfaces.PriceSeries{
		"2026-02-06": 100.0, // Friday
		"2026-02-09": 102.0, // Monday
	}

	// Exact day.
	got := findNearestPrice(prices, day("2026-02-06"))
	require.NotNil(t, got)
	assert.Equal(t, 100.0, *got)

	// Saturday probes +1 (Sunday, no bar) then -1 and lands on Friday.
	got = findNearestPrice(prices, day("2026-02-07"))
	require.NotNil(t, got)
	assert.Equal(t, 100.0, *got)

	// Several days past the last bar still resolves backward.
	got = findNearestPrice(prices, day("2026-02-12"))
	require.NotNil(t, got)
	assert.Equal(t, 102.0, *got)

	// Outside the search window.
	assert.Nil(t, findNearestPrice(prices, day("2026-03-10")))
	assert.Nil(t, findNearestPrice(interfaces.PriceSeries{}, day("2026-02-06")))
}

func TestTestSignal_FullEvaluation(t *testing.T) {
	signalDate := day("2026-01-05") // Monday
	prices := &stubPrices{series: map[string]interfaces.PriceSeries{
		"ENB.TO": {
			"2026-01-05": 50.00,
			"2026-01-06": 51.00, // +2%
			"2026-01-12": 53.00, // +6%
			"2026-02-04": 48.00, // -4%
		},
	}}
	engine, _ := newTestEngine(t, prices)

	signal := &models.Signal{
		ID: 1, Ticker: "ENB.TO", Direction: models.DirectionUp, CreatedAt: signalDate,
	}
	result, err := engine.TestSignal(context.Background(), signal)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, uint(1), result.SignalID)
	assert.Equal(t, "ENB.TO", result.Ticker)
	assert.Equal(t, models.DirectionUp, result.DirectionPredicted)

	require.NotNil(t, result.PriceAtSignal)
	assert.Equal(t, 50.00, *result.PriceAtSignal)

	require.NotNil(t, result.Actual1DChange)
	assert.Equal(t, 2.00, *result.Actual1DChange)
	require.NotNil(t, result.Accurate1D)
	assert.True(t, *result.Accurate1D)

	require.NotNil(t, result.Actual7DChange)
	assert.Equal(t, 6.00, *result.Actual7DChange)
	require.NotNil(t, result.Accurate7D)
	assert.True(t, *result.Accurate7D)

	require.NotNil(t, result.Actual30DChange)
	assert.Equal(t, -4.00, *result.Actual30DChange)
	require.NotNil(t, result.Accurate30D)
	assert.False(t, *result.Accurate30D, "price fell against an up prediction")
}

func TestTestSignal_WeekendSignalResolvesNearestDay(t *testing.T) {
	// Signal created on Saturday; Sunday has no bar, so the backward
	// probe lands on Friday's close.
	prices := &stubPrices{series: map[string]interfaces.PriceSeries{
		"RY.TO": {
			"2026-01-09": 100.0, // Friday
			"2026-01-12": 101.0, // Monday
			"2026-01-13": 99.0,
		},
	}}
	engine, _ := newTestEngine(t, prices)

	signal := &models.Signal{
		ID: 2, Ticker: "RY.TO", Direction: models.DirectionDown, CreatedAt: day("2026-01-10"),
	}
	result, err := engine.TestSignal(context.Background(), signal)
	require.NoError(t, err)
	require.NotNil(t, result)

	require.NotNil(t, result.PriceAtSignal)
	assert.Equal(t, 100.0, *result.PriceAtSignal)
}

func TestTestSignal_PartialHorizons(t *testing.T) {
	// The series ends right after the signal: the 1d horizon resolves,
	// the 7d and 30d targets sit outside the probe window and stay nil.
	prices := &stubPrices{series: map[string]interfaces.PriceSeries{
		"TD.TO": {
			"2026-01-05": 80.0,
			"2026-01-06": 81.0,
		},
	}}
	engine, _ := newTestEngine(t, prices)

	signal := &models.Signal{
		ID: 3, Ticker: "TD.TO", Direction: models.DirectionUp, CreatedAt: day("2026-01-05"),
	}
	result, err := engine.TestSignal(context.Background(), signal)
	require.NoError(t, err)
	require.NotNil(t, result)

	require.NotNil(t, result.Accurate1D)
	assert.True(t, *result.Accurate1D)
	// +7d target 2026-01-12 can only probe back to 2026-01-07.
	assert.Nil(t, result.Price7D)
	assert.Nil(t, result.Accurate7D)
	// +30d is far beyond the probe window.
	assert.Nil(t, result.Price30D)
	assert.Nil(t, result.Actual30DChange)
	assert.Nil(t, result.Accurate30D)
}

func TestTestSignal_Unevaluable(t *testing.T) {
	engine, _ := newTestEngine(t, &stubPrices{series: map[string]interfaces.PriceSeries{}})

	// Non-directional signal.
	result, err := engine.TestSignal(context.Background(), &models.Signal{ID: 4, Ticker: "RY.TO"})
	require.NoError(t, err)
	assert.Nil(t, result)

	// No price data.
	result, err = engine.TestSignal(context.Background(), &models.Signal{
		ID: 5, Ticker: "UNKNOWN.TO", Direction: models.DirectionUp, CreatedAt: day("2026-01-05"),
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestTestSignal_PriceFetchError(t *testing.T) {
	engine, _ := newTestEngine(t, &stubPrices{err: errors.New("rate limited")})

	_, err := engine.TestSignal(context.Background(), &models.Signal{
		ID: 6, Ticker: "RY.TO", Direction: models.DirectionUp, CreatedAt: day("2026-01-05"),
	})
	assert.Error(t, err)
}

func TestRunPending_IdempotentAcrossRuns(t *testing.T) {
	prices := &stubPrices{series: map[string]interfaces.PriceSeries{
		"ENB.TO": {
			"2026-01-05": 50.0,
			"2026-01-06": 51.0,
			"2026-01-12": 52.0,
			"2026-02-04": 53.0,
		},
	}}
	engine, store := newTestEngine(t, prices)
	ctx := context.Background()

	item := &models.ContentItem{Kind: models.ContentKindNews, Title: "t", Source: "s", URL: "https://e.com/1"}
	require.NoError(t, store.SaveContent(ctx, item))

	directional := &models.Signal{
		ContentItemID: item.ID, Ticker: "ENB.TO", Sentiment: "positive", Confidence: 0.8,
		Direction: models.DirectionUp, CreatedAt: day("2026-01-05"),
	}
	require.NoError(t, store.SaveSignal(ctx, directional))
	require.NoError(t, store.SaveSignal(ctx, &models.Signal{
		ContentItemID: item.ID, Ticker: "RY.TO", Sentiment: "neutral", Confidence: 0.5,
	}))

	stats, err := engine.RunPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SignalsTested, "non-directional signals are not pending")
	assert.Equal(t, 1, stats.ResultsCreated)

	// Second run finds nothing to do.
	stats, err = engine.RunPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.SignalsTested)
	assert.Zero(t, stats.ResultsCreated)

	saved, err := store.GetResultForSignal(ctx, directional.ID)
	require.NoError(t, err)
	assert.Equal(t, "ENB.TO", saved.Ticker)
}
