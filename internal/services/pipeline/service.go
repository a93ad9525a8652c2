// Package pipeline runs ingested content through the staged AI
// analysis: entity linking, sentiment, signal generation, and batch
// theme detection. Every stage degrades gracefully; a failed stage
// never blocks an item from being marked processed.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/meridian/internal/common"
	"github.com/ternarybob/meridian/internal/interfaces"
	"github.com/ternarybob/meridian/internal/models"
)

// themeBatchMax bounds how many recent articles feed theme detection.
const themeBatchMax = 50

// Stats summarizes one pipeline run.
type Stats struct {
	ItemsProcessed   int
	SignalsGenerated int
}

// Service drives the analysis stages.
type Service struct {
	storage  interfaces.Storage
	provider interfaces.Provider
	config   *common.Config
	logger   arbor.ILogger

	stockList string
	universe  map[string]string
}

// NewService creates the pipeline service.
func NewService(storage interfaces.Storage, provider interfaces.Provider, config *common.Config, logger arbor.ILogger) *Service {
	universe := config.UniverseNames()
	return &Service{
		storage:   storage,
		provider:  provider,
		config:    config,
		logger:    logger,
		stockList: formatStockList(universe, config.UniverseTickers()),
		universe:  universe,
	}
}

// ProcessUnprocessed runs every unprocessed news item through the full
// pipeline. Per-item failures are isolated: the item is marked
// processed regardless, so a poison article cannot wedge the batch.
func (s *Service) ProcessUnprocessed(ctx context.Context) (*Stats, error) {
	items, err := s.storage.ListUnprocessed(ctx, models.ContentKindNews, s.config.Pipeline.BatchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed items: %w", err)
	}

	stats := &Stats{}
	for i, item := range items {
		s.logger.Info().
			Int("item", i+1).
			Int("total", len(items)).
			Str("title", truncate(item.Title, 80)).
			Msg("Processing content item")

		signals, err := s.ProcessItem(ctx, item)
		if err != nil {
			s.logger.Warn().Err(err).Int("id", int(item.ID)).Msg("Item processing failed, skipping")
			if err := s.storage.MarkProcessed(ctx, item.ID); err != nil {
				s.logger.Error().Err(err).Int("id", int(item.ID)).Msg("Failed to mark item processed")
			}
		}
		stats.ItemsProcessed++
		stats.SignalsGenerated += len(signals)

		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
	}

	return stats, nil
}

// ProcessItem runs one item through entity -> sentiment -> signal and
// persists the results. The item is marked processed exactly once, on
// every path.
func (s *Service) ProcessItem(ctx context.Context, item *models.ContentItem) ([]*models.Signal, error) {
	content := item.Body()

	entities := s.extractEntities(ctx, item.Title, content)
	s.logger.Debug().Int("id", int(item.ID)).Int("entities", len(entities)).Msg("Entity extraction complete")

	if len(entities) == 0 {
		if err := s.storage.MarkProcessed(ctx, item.ID); err != nil {
			return nil, fmt.Errorf("failed to mark processed: %w", err)
		}
		return nil, nil
	}

	sentiment := s.analyzeSentiment(ctx, item.Title, content, entities)
	s.logger.Debug().
		Int("id", int(item.ID)).
		Str("sentiment", sentiment.Sentiment).
		Float64("confidence", sentiment.Confidence).
		Msg("Sentiment analysis complete")

	drafts := s.generateSignals(ctx, item.Title, content, entities, sentiment)
	s.logger.Debug().Int("id", int(item.ID)).Int("signals", len(drafts)).Msg("Signal generation complete")

	signals := make([]*models.Signal, 0, len(drafts))
	for _, draft := range drafts {
		signal := s.buildSignal(item, draft, sentiment)
		if err := s.storage.SaveSignal(ctx, signal); err != nil {
			s.logger.Error().Err(err).Str("ticker", signal.Ticker).Msg("Failed to save signal")
			continue
		}
		signals = append(signals, signal)
	}

	if err := s.storage.MarkProcessed(ctx, item.ID); err != nil {
		return signals, fmt.Errorf("failed to mark processed: %w", err)
	}
	return signals, nil
}

// buildSignal merges a model draft with universe metadata. Missing
// company names and sectors fall back to the configured universe.
func (s *Service) buildSignal(item *models.ContentItem, draft SignalDraft, sentiment *SentimentResult) *models.Signal {
	companyName := draft.CompanyName
	if companyName == "" {
		companyName = s.universe[draft.Ticker]
	}
	sector := draft.Sector
	if sector == "" {
		sector = s.config.SectorFor(draft.Ticker)
	}
	timeHorizon := draft.TimeHorizon
	if timeHorizon == "" {
		timeHorizon = models.HorizonMedium
	}
	insightType := sentiment.InsightType
	if insightType == "" {
		insightType = "Sentiment"
	}
	confidence := draft.Confidence
	if confidence == 0 {
		confidence = 0.5
	}

	return &models.Signal{
		ContentItemID:    item.ID,
		Ticker:           draft.Ticker,
		CompanyName:      companyName,
		Sector:           sector,
		Sentiment:        sentiment.Sentiment,
		Confidence:       confidence,
		Reasoning:        sentiment.Reasoning,
		Direction:        draft.Direction,
		ImpactHypothesis: draft.ImpactHypothesis,
		TimeHorizon:      timeHorizon,
		InsightType:      insightType,
	}
}

// AnalyzeSocial classifies unprocessed social posts with the sentiment
// stage and stores the result on the post itself. Returns the number
// of posts analyzed.
func (s *Service) AnalyzeSocial(ctx context.Context) (int, error) {
	posts, err := s.storage.ListUnprocessed(ctx, models.ContentKindSocial, s.config.Pipeline.BatchLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to list unprocessed posts: %w", err)
	}

	analyzed := 0
	for _, post := range posts {
		sentiment := s.analyzeSentiment(ctx, post.Title, post.Body(), nil)

		if err := s.storage.UpdateSocialSentiment(ctx, post.ID, sentiment.Sentiment, sentiment.Confidence); err != nil {
			s.logger.Warn().Err(err).Int("id", int(post.ID)).Msg("Failed to store social sentiment")
		} else {
			analyzed++
		}

		if err := s.storage.MarkProcessed(ctx, post.ID); err != nil {
			s.logger.Error().Err(err).Int("id", int(post.ID)).Msg("Failed to mark post processed")
		}

		if ctx.Err() != nil {
			return analyzed, ctx.Err()
		}
	}

	return analyzed, nil
}

// DetectThemes clusters recent news into named themes. Fewer than two
// candidate articles yields zero themes without a model call.
func (s *Service) DetectThemes(ctx context.Context, lookback time.Duration) (int, error) {
	since := time.Now().UTC().Add(-lookback)
	recent, err := s.storage.ListRecent(ctx, models.ContentKindNews, since, themeBatchMax)
	if err != nil {
		return 0, fmt.Errorf("failed to list recent items: %w", err)
	}

	// Only analyzed articles participate; raw ones haven't earned a
	// place in a narrative yet.
	articles := make([]*models.ContentItem, 0, len(recent))
	for _, item := range recent {
		if item.Processed {
			articles = append(articles, item)
		}
	}
	if len(articles) < 2 {
		return 0, nil
	}

	var block strings.Builder
	for i, a := range articles {
		summary := a.Summary
		if summary == "" {
			summary = a.Content
		}
		fmt.Fprintf(&block, "[Article %d]\nTitle: %s\nSummary: %s\nSource: %s\n\n", i, a.Title, summary, a.Source)
	}

	drafts := s.detectThemes(ctx, strings.TrimRight(block.String(), "\n"))

	created := 0
	for _, draft := range drafts {
		theme := &models.Theme{
			Name:           draft.Name,
			Description:    draft.Description,
			Sector:         draft.Sector,
			RelevanceScore: draft.RelevanceScore,
		}
		if theme.Name == "" {
			theme.Name = "Unknown Theme"
		}
		if theme.Sector == "" {
			theme.Sector = "Cross-sector"
		}
		if theme.RelevanceScore == 0 {
			theme.RelevanceScore = 0.5
		}

		itemIDs := make([]uint, 0, len(draft.ArticleIndices))
		for _, idx := range draft.ArticleIndices {
			if idx >= 0 && idx < len(articles) {
				itemIDs = append(itemIDs, articles[idx].ID)
			}
		}

		if err := s.storage.SaveTheme(ctx, theme, itemIDs); err != nil {
			s.logger.Error().Err(err).Str("theme", theme.Name).Msg("Failed to save theme")
			continue
		}
		created++
	}

	return created, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
