package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/meridian/internal/common"
	"github.com/ternarybob/meridian/internal/interfaces"
	"github.com/ternarybob/meridian/internal/models"
	"github.com/ternarybob/meridian/internal/services/backtest"
	"github.com/ternarybob/meridian/internal/services/ingestion"
	"github.com/ternarybob/meridian/internal/services/narrative"
	"github.com/ternarybob/meridian/internal/services/pipeline"
	"github.com/ternarybob/meridian/internal/services/universe"
	"github.com/ternarybob/meridian/internal/storage/sqlite"
)

type stubProvider struct {
	mu        sync.Mutex
	responses []string
}

func (p *stubProvider) GenerateContent(context.Context, *interfaces.GenerateRequest) (*interfaces.GenerateResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.responses) == 0 {
		return &interfaces.GenerateResponse{Text: "[]"}, nil
	}
	next := p.responses[0]
	p.responses = p.responses[1:]
	return &interfaces.GenerateResponse{Text: next}, nil
}

func (p *stubProvider) Close() error { return nil }

type stubFeeds struct {
	items []*models.ContentItem
}

func (f *stubFeeds) Fetch(_ context.Context, sourceName, _ string) ([]*models.ContentItem, error) {
	if sourceName == "Financial Post" {
		return f.items, nil
	}
	return nil, nil
}

type stubSocial struct{}

func (stubSocial) ScrapeAll(context.Context, []string, int) []*models.ContentItem { return nil }

type stubPrices struct{}

func (stubPrices) GetDailyCloses(context.Context, string, time.Time, time.Time) (interfaces.PriceSeries, error) {
	return interfaces.PriceSeries{}, nil
}

func (stubPrices) GetSnapshot(context.Context, string) (*interfaces.QuoteSnapshot, error) {
	return nil, nil
}

func clockAt(t time.Time) interfaces.Clock {
	return interfaces.ClockFunc(func() time.Time { return t })
}

func newTestScheduler(t *testing.T, clock interfaces.Clock, provider interfaces.Provider, feeds ingestion.FeedSource) (*Scheduler, interfaces.Storage) {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Path = ":memory:"

	store, err := sqlite.NewManager(common.GetLogger(), &cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := common.GetLogger()
	if provider == nil {
		provider = &stubProvider{}
	}
	if feeds == nil {
		feeds = &stubFeeds{}
	}

	orchestrator := ingestion.NewOrchestrator(store, nil, feeds, stubSocial{}, stubPrices{}, cfg, logger)
	pipelineSvc := pipeline.NewService(store, provider, cfg, logger)
	engine := backtest.NewEngine(store, stubPrices{}, clock, logger)
	universeSvc := universe.NewService(store, cfg, logger)
	narrativeSvc := narrative.NewService(store, provider, cfg, clock, logger)

	return New(cfg, orchestrator, pipelineSvc, engine, universeSvc, narrativeSvc, clock, logger), store
}

func TestIsMarketHours(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		open bool
	}{
		{"weekday mid-session", time.Date(2026, 2, 10, 16, 0, 0, 0, time.UTC), true}, // Tuesday
		{"weekday at open", time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC), true},
		{"weekday at close", time.Date(2026, 2, 10, 21, 59, 0, 0, time.UTC), true},
		{"weekday before open", time.Date(2026, 2, 10, 13, 59, 0, 0, time.UTC), false},
		{"weekday after close", time.Date(2026, 2, 10, 22, 0, 0, 0, time.UTC), false},
		{"saturday", time.Date(2026, 2, 14, 16, 0, 0, 0, time.UTC), false},
		{"sunday", time.Date(2026, 2, 15, 16, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestScheduler(t, clockAt(tt.at), nil, nil)
			assert.Equal(t, tt.open, s.IsMarketHours())
		})
	}
}

func TestRunJob_SkipsOverlappingTick(t *testing.T) {
	s, _ := newTestScheduler(t, nil, nil, nil)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	defer s.cancel()

	block := make(chan struct{})
	started := make(chan struct{})
	runs := 0
	var mu sync.Mutex

	entry := &jobEntry{name: "test", handler: func(context.Context) error {
		mu.Lock()
		runs++
		mu.Unlock()
		close(started)
		<-block
		return nil
	}}

	go s.runJob(entry)
	<-started

	// Second tick while the first is still running.
	s.runJob(entry)

	close(block)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, runs)
}

func TestRunJob_RecoversFromPanic(t *testing.T) {
	s, _ := newTestScheduler(t, clockAt(time.Now()), nil, nil)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	defer s.cancel()

	entry := &jobEntry{name: "panicky", handler: func(context.Context) error {
		panic("boom")
	}}

	assert.NotPanics(t, func() { s.runJob(entry) })
	assert.False(t, entry.isRunning)
	require.NotNil(t, entry.lastRun)
}

func TestRunJob_RecordsAndClearsError(t *testing.T) {
	s, _ := newTestScheduler(t, clockAt(time.Now()), nil, nil)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	defer s.cancel()

	fail := true
	entry := &jobEntry{name: "flaky", handler: func(context.Context) error {
		if fail {
			return assert.AnError
		}
		return nil
	}}

	s.runJob(entry)
	assert.NotEmpty(t, entry.lastError)

	fail = false
	s.runJob(entry)
	assert.Empty(t, entry.lastError)
}

func TestRunIngestCycle_ProcessesNewContent(t *testing.T) {
	now := time.Now().UTC()
	feeds := &stubFeeds{items: []*models.ContentItem{{
		Kind:        models.ContentKindNews,
		Title:       "Enbridge announces expansion",
		Summary:     "Pipeline capacity increase approved.",
		Source:      "Financial Post",
		URL:         "https://example.com/enb-expansion",
		URLHash:     models.HashURL("https://example.com/enb-expansion"),
		PublishedAt: &now,
	}}}
	provider := &stubProvider{responses: []string{
		`[{"ticker":"ENB.TO","company_name":"Enbridge Inc.","confidence":0.9}]`,
		`{"sentiment":"positive","confidence":0.8,"reasoning":"Capacity growth."}`,
		`[{"ticker":"ENB.TO","direction":"up","confidence":0.7,"time_horizon":"short","sector":"Energy"}]`,
	}}

	s, store := newTestScheduler(t, clockAt(now), provider, feeds)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	defer s.cancel()

	require.NoError(t, s.runIngestCycle(s.ctx))

	ctx := context.Background()
	signals, err := store.ListRecentSignals(ctx, now.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "ENB.TO", signals[0].Ticker)

	unprocessed, err := store.ListUnprocessed(ctx, models.ContentKindNews, 10)
	require.NoError(t, err)
	assert.Empty(t, unprocessed)
}

func TestStartAndStop(t *testing.T) {
	s, _ := newTestScheduler(t, clockAt(time.Now()), nil, nil)
	s.config.Scheduler.RunOnStartup = false

	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "double start rejected")
	s.Stop()
}
