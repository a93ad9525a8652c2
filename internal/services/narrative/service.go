// Package narrative generates a short AI market briefing from the
// current signals, themes, sentiment mix, and top movers. Output is
// cached in memory so repeated reads within the TTL cost nothing.
package narrative

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/meridian/internal/common"
	"github.com/ternarybob/meridian/internal/interfaces"
	"github.com/ternarybob/meridian/internal/models"
	"github.com/ternarybob/meridian/internal/services/cache"
)

const (
	// narrativeModel is deliberately a small model: the briefing is a
	// few sentences over pre-aggregated context.
	narrativeModel = "claude-haiku-4-5-20251001"

	narrativeMaxTokens   = 300
	narrativeTemperature = 0.5

	// signalLookback bounds which signals and themes feed the briefing.
	signalLookback = 48 * time.Hour

	topSignalLimit = 10
	themeLimit     = 3
	moverLimit     = 3

	cacheKey = "narrative"
)

const systemPrompt = `You are a financial news anchor providing a brief Canadian market update.
Write 3-4 sentences summarizing the key market signals, themes, and sentiment.
Be concise, specific, and professional. Mention tickers and sectors where relevant.
Do not use bullet points — write in paragraph form.`

// Fallback briefings when no data exists or generation fails.
const (
	gatheringMessage   = "Market data is still being gathered. Check back shortly for an AI-generated market briefing."
	unavailableMessage = "Unable to generate market narrative at this time. Please try again later."
)

// Service produces the cached market briefing.
type Service struct {
	storage  interfaces.Storage
	provider interfaces.Provider
	cache    *cache.TTL
	clock    interfaces.Clock
	logger   arbor.ILogger
}

func NewService(storage interfaces.Storage, provider interfaces.Provider, config *common.Config, clock interfaces.Clock, logger arbor.ILogger) *Service {
	if clock == nil {
		clock = interfaces.SystemClock()
	}
	return &Service{
		storage:  storage,
		provider: provider,
		cache:    cache.NewTTL(config.Narrative.CacheTTL, clock),
		clock:    clock,
		logger:   logger,
	}
}

// Generate returns the current market briefing, serving from cache
// when fresh. Never returns an error: with no data it reports that
// data is being gathered, and on model failure it degrades to a
// static message without caching it.
func (s *Service) Generate(ctx context.Context) string {
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached
	}

	contextBlock := s.buildContext(ctx)
	if contextBlock == "" {
		return gatheringMessage
	}

	resp, err := s.provider.GenerateContent(ctx, &interfaces.GenerateRequest{
		SystemInstruction: systemPrompt,
		UserInstruction:   "Based on the following Canadian market (TSX) data, write a brief market update:\n\n" + contextBlock,
		MaxTokens:         narrativeMaxTokens,
		Temperature:       narrativeTemperature,
		Model:             narrativeModel,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Narrative generation failed")
		return unavailableMessage
	}

	narrative := strings.TrimSpace(resp.Text)
	if narrative == "" {
		return unavailableMessage
	}

	s.cache.Set(cacheKey, narrative)
	return narrative
}

// buildContext aggregates recent activity into the prompt context.
// Returns "" when nothing has been ingested yet.
func (s *Service) buildContext(ctx context.Context) string {
	since := s.clock.Now().UTC().Add(-signalLookback)
	var parts []string

	signals, err := s.storage.ListRecentSignals(ctx, since, topSignalLimit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load recent signals")
	}
	if len(signals) > 0 {
		bullish, bearish := 0, 0
		for _, sig := range signals {
			switch sig.Direction {
			case models.DirectionUp:
				bullish++
			case models.DirectionDown:
				bearish++
			}
		}
		top := topByConfidence(signals)
		parts = append(parts, fmt.Sprintf(
			"Recent signals: %d total (%d bullish, %d bearish). Top signal: %s %s with %.0f%% confidence.",
			len(signals), bullish, bearish, top.Ticker, top.Direction, top.Confidence*100))
	}

	if sectors, err := s.storage.CountBySector(ctx, since); err == nil && len(sectors) > 0 {
		parts = append(parts, "Signals by sector: "+formatCounts(sectors)+".")
	}

	if sentiments, err := s.storage.CountBySentiment(ctx, since); err == nil && len(sentiments) > 0 {
		parts = append(parts, "Sentiment breakdown: "+formatCounts(sentiments)+".")
	}

	if themes, err := s.storage.ListRecentThemes(ctx, since, themeLimit); err == nil && len(themes) > 0 {
		names := make([]string, 0, len(themes))
		for _, theme := range themes {
			sector := theme.Sector
			if sector == "" {
				sector = "cross-sector"
			}
			names = append(names, fmt.Sprintf("%q (%s)", theme.Name, sector))
		}
		parts = append(parts, "Active themes: "+strings.Join(names, ", ")+".")
	}

	if movers, err := s.storage.TopMovers(ctx, moverLimit); err == nil && len(movers) > 0 {
		entries := make([]string, 0, len(movers))
		for _, quote := range movers {
			change := 0.0
			if quote.PercentChange != nil {
				change = *quote.PercentChange
			}
			entries = append(entries, fmt.Sprintf("%s (%+.1f%%)", quote.Ticker, change))
		}
		parts = append(parts, "Top movers: "+strings.Join(entries, ", ")+".")
	}

	return strings.Join(parts, "\n")
}

func topByConfidence(signals []*models.Signal) *models.Signal {
	top := signals[0]
	for _, sig := range signals[1:] {
		if sig.Confidence > top.Confidence {
			top = sig
		}
	}
	return top
}

// formatCounts renders a count map in sorted key order so the prompt
// is stable across runs.
func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		if key != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	entries := make([]string, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, fmt.Sprintf("%s: %d", key, counts[key]))
	}
	return strings.Join(entries, ", ")
}
