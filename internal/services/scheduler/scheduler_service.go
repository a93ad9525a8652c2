// Package scheduler drives the periodic cycles: combined content
// ingestion and analysis, market-hours-gated quote refresh, and the
// daily universe reconciliation.
package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/meridian/internal/common"
	"github.com/ternarybob/meridian/internal/interfaces"
	"github.com/ternarybob/meridian/internal/services/backtest"
	"github.com/ternarybob/meridian/internal/services/ingestion"
	"github.com/ternarybob/meridian/internal/services/narrative"
	"github.com/ternarybob/meridian/internal/services/pipeline"
	"github.com/ternarybob/meridian/internal/services/universe"
)

// themeLookback bounds which articles feed scheduled theme detection.
const themeLookback = 48 * time.Hour

// jobEntry is one registered periodic job with run-state metadata.
type jobEntry struct {
	name      string
	schedule  string
	handler   func(ctx context.Context) error
	cronID    cron.EntryID
	isRunning bool
	lastRun   *time.Time
	lastError string
}

// Scheduler owns the cron runner and the job registry.
type Scheduler struct {
	config       *common.Config
	orchestrator *ingestion.Orchestrator
	pipeline     *pipeline.Service
	backtest     *backtest.Engine
	universe     *universe.Service
	narrative    *narrative.Service
	clock        interfaces.Clock
	logger       arbor.ILogger

	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	jobMu   sync.Mutex
	jobs    map[string]*jobEntry
	running bool
}

func New(
	config *common.Config,
	orchestrator *ingestion.Orchestrator,
	pipelineService *pipeline.Service,
	backtestEngine *backtest.Engine,
	universeService *universe.Service,
	narrativeService *narrative.Service,
	clock interfaces.Clock,
	logger arbor.ILogger,
) *Scheduler {
	if clock == nil {
		clock = interfaces.SystemClock()
	}
	return &Scheduler{
		config:       config,
		orchestrator: orchestrator,
		pipeline:     pipelineService,
		backtest:     backtestEngine,
		universe:     universeService,
		narrative:    narrativeService,
		clock:        clock,
		logger:       logger,
		cron:         cron.New(),
		jobs:         make(map[string]*jobEntry),
	}
}

// Start registers the periodic jobs and begins the cron runner.
func (s *Scheduler) Start() error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	cfg := s.config.Scheduler
	jobs := []struct {
		name     string
		schedule string
		handler  func(ctx context.Context) error
	}{
		{"ingestion", fmt.Sprintf("@every %dm", cfg.IngestInterval), s.runIngestCycle},
		{"quotes", fmt.Sprintf("@every %dm", cfg.QuoteInterval), s.runQuoteCycle},
		{"universe", fmt.Sprintf("@every %dh", cfg.UniverseInterval), s.runUniverseRefresh},
	}

	for _, job := range jobs {
		entry := &jobEntry{name: job.name, schedule: job.schedule, handler: job.handler}

		cronID, err := s.cron.AddFunc(job.schedule, func() { s.runJob(entry) })
		if err != nil {
			return fmt.Errorf("failed to register job %s: %w", entry.name, err)
		}
		entry.cronID = cronID

		s.jobMu.Lock()
		s.jobs[entry.name] = entry
		s.jobMu.Unlock()

		s.logger.Info().Str("job", entry.name).Str("schedule", entry.schedule).Msg("Job registered")
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Msg("Scheduler started")

	if cfg.RunOnStartup {
		common.SafeGo(s.logger, "startup-universe", func() {
			s.runJob(s.job("universe"))
		})
		common.SafeGo(s.logger, "startup-ingestion", func() {
			s.runJob(s.job("ingestion"))
		})
	}
	return nil
}

// Stop halts the cron runner and cancels in-flight cycles.
func (s *Scheduler) Stop() {
	if !s.running {
		return
	}
	s.cancel()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) job(name string) *jobEntry {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	return s.jobs[name]
}

// runJob executes one job with overlap protection and panic recovery.
// An overlapping tick of the same job is skipped, not queued.
func (s *Scheduler) runJob(entry *jobEntry) {
	if entry == nil {
		return
	}

	s.jobMu.Lock()
	if entry.isRunning {
		s.jobMu.Unlock()
		s.logger.Warn().Str("job", entry.name).Msg("Previous run still in progress, skipping tick")
		return
	}
	entry.isRunning = true
	s.jobMu.Unlock()

	runID := common.NewRunID()
	s.logger.Debug().Str("job", entry.name).Str("run_id", runID).Msg("Job starting")

	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 8192)
			n := runtime.Stack(buf, false)
			s.logger.Error().
				Str("job", entry.name).
				Str("run_id", runID).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(buf[:n])).
				Msg("Job panicked")
		}
		now := s.clock.Now().UTC()
		s.jobMu.Lock()
		entry.isRunning = false
		entry.lastRun = &now
		s.jobMu.Unlock()
	}()

	if err := entry.handler(s.ctx); err != nil {
		s.jobMu.Lock()
		entry.lastError = err.Error()
		s.jobMu.Unlock()
		s.logger.Warn().Err(err).Str("job", entry.name).Str("run_id", runID).Msg("Job finished with error")
		return
	}

	s.jobMu.Lock()
	entry.lastError = ""
	s.jobMu.Unlock()
}

// runIngestCycle is the combined cycle: feeds, then web sources, then
// (only when something new arrived) analysis, themes, and backtests.
// Community sentiment runs every cycle regardless. Each step is
// non-fatal to the ones after it.
func (s *Scheduler) runIngestCycle(ctx context.Context) error {
	feedResults := s.orchestrator.IngestFeeds(ctx)
	webResults := s.orchestrator.IngestNews(ctx)

	newArticles := 0
	for _, n := range feedResults {
		newArticles += n
	}
	for _, n := range webResults {
		newArticles += n
	}

	if newArticles > 0 {
		if stats, err := s.pipeline.ProcessUnprocessed(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Analysis step failed")
		} else {
			s.logger.Info().
				Int("processed", stats.ItemsProcessed).
				Int("signals", stats.SignalsGenerated).
				Msg("Analysis step complete")
		}

		if created, err := s.pipeline.DetectThemes(ctx, themeLookback); err != nil {
			s.logger.Warn().Err(err).Msg("Theme detection step failed")
		} else if created > 0 {
			s.logger.Info().Int("themes", created).Msg("Theme detection step complete")
		}

		if stats, err := s.backtest.RunPending(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Backtest step failed")
		} else if stats.SignalsTested > 0 {
			s.logger.Info().
				Int("tested", stats.SignalsTested).
				Int("results", stats.ResultsCreated).
				Msg("Backtest step complete")
		}

		briefing := s.narrative.Generate(ctx)
		s.logger.Info().Str("briefing", briefing).Msg("Market narrative refreshed")
	} else {
		s.logger.Info().Msg("No new articles, skipping analysis and backtests")
	}

	s.orchestrator.IngestSentiment(ctx)
	if analyzed, err := s.pipeline.AnalyzeSocial(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Social sentiment step failed")
	} else if analyzed > 0 {
		s.logger.Info().Int("posts", analyzed).Msg("Social sentiment step complete")
	}

	s.logger.Info().Int("new_articles", newArticles).Msg("Ingestion cycle complete")
	return nil
}

// runQuoteCycle refreshes quotes only while the market is open; ticks
// outside the window are silent no-ops.
func (s *Scheduler) runQuoteCycle(ctx context.Context) error {
	if !s.IsMarketHours() {
		return nil
	}
	_, err := s.orchestrator.RefreshQuotes(ctx)
	return err
}

func (s *Scheduler) runUniverseRefresh(ctx context.Context) error {
	return s.universe.Refresh(ctx)
}

// IsMarketHours reports whether the TSX is plausibly open: a weekday
// inside the configured UTC hour window. The window is inclusive on
// both ends and deliberately generous around DST shifts.
func (s *Scheduler) IsMarketHours() bool {
	now := s.clock.Now().UTC()
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	hour := now.Hour()
	return hour >= s.config.Scheduler.MarketOpenUTC && hour <= s.config.Scheduler.MarketCloseUTC
}
