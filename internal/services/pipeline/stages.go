package pipeline

import (
	"context"
	"fmt"

	"github.com/ternarybob/meridian/internal/interfaces"
	"github.com/ternarybob/meridian/internal/models"
)

// minEntityConfidence filters weakly linked entities before the
// sentiment and signal stages see them.
const minEntityConfidence = 0.7

// Entity is one company linked to a ticker by the extraction stage.
type Entity struct {
	Ticker         string  `json:"ticker"`
	CompanyName    string  `json:"company_name"`
	Exchange       string  `json:"exchange"`
	Confidence     float64 `json:"confidence"`
	MentionContext string  `json:"mention_context"`
}

// SentimentResult is the sentiment stage output.
type SentimentResult struct {
	Sentiment    string  `json:"sentiment"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
	MarketImpact string  `json:"market_impact"`
	InsightType  string  `json:"insight_type"`
}

// neutralSentiment is the fallback when the sentiment stage fails or
// returns garbage: the item still flows through, carrying no signal.
func neutralSentiment(reason string) *SentimentResult {
	return &SentimentResult{
		Sentiment:  models.SentimentNeutral,
		Confidence: 0.5,
		Reasoning:  reason,
	}
}

// SignalDraft is one signal as emitted by the model, before it is
// enriched from the universe and persisted.
type SignalDraft struct {
	Ticker           string  `json:"ticker"`
	CompanyName      string  `json:"company_name"`
	Direction        string  `json:"direction"`
	Confidence       float64 `json:"confidence"`
	ImpactHypothesis string  `json:"impact_hypothesis"`
	TimeHorizon      string  `json:"time_horizon"`
	Sector           string  `json:"sector"`
}

// ThemeDraft is one theme as emitted by the model.
type ThemeDraft struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	ArticleIndices []int   `json:"article_indices"`
	Sector         string  `json:"sector"`
	RelevanceScore float64 `json:"relevance_score"`
}

// extractEntities runs the entity extraction stage. Parse failures and
// provider errors degrade to an empty list; an article without linkable
// entities is simply not signal-bearing.
func (s *Service) extractEntities(ctx context.Context, title, content string) []Entity {
	resp, err := s.provider.GenerateContent(ctx, &interfaces.GenerateRequest{
		SystemInstruction: fmt.Sprintf(entitySystemPrompt, s.stockList),
		UserInstruction:   fmt.Sprintf(entityUserPrompt, title, content),
		MaxTokens:         1500,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Entity extraction call failed")
		return nil
	}

	var raw []Entity
	if err := DecodeJSON(resp.Text, &raw); err != nil {
		s.logger.Warn().Err(err).Msg("Entity extraction returned unparsable JSON")
		return nil
	}

	entities := make([]Entity, 0, len(raw))
	for _, e := range raw {
		if e.Ticker == "" || e.Confidence < minEntityConfidence {
			continue
		}
		entities = append(entities, e)
	}
	return entities
}

// analyzeSentiment runs the sentiment stage. Never fails: any error
// collapses to the neutral fallback.
func (s *Service) analyzeSentiment(ctx context.Context, title, content string, entities []Entity) *SentimentResult {
	resp, err := s.provider.GenerateContent(ctx, &interfaces.GenerateRequest{
		SystemInstruction: sentimentSystemPrompt,
		UserInstruction:   fmt.Sprintf(sentimentUserPrompt, title, content, formatEntityList(entities)),
		MaxTokens:         1000,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Sentiment analysis call failed")
		return neutralSentiment(fmt.Sprintf("Error: %v", err))
	}

	var result SentimentResult
	if err := DecodeJSON(resp.Text, &result); err != nil {
		s.logger.Warn().Err(err).Msg("Sentiment analysis returned unparsable JSON")
		return neutralSentiment("Unable to determine sentiment")
	}

	switch result.Sentiment {
	case models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral:
	default:
		return neutralSentiment("Unable to determine sentiment")
	}
	return &result
}

// generateSignals runs the signal stage. A single-object response is
// accepted as a one-element list; errors degrade to no signals.
func (s *Service) generateSignals(ctx context.Context, title, content string, entities []Entity, sentiment *SentimentResult) []SignalDraft {
	resp, err := s.provider.GenerateContent(ctx, &interfaces.GenerateRequest{
		SystemInstruction: signalSystemPrompt,
		UserInstruction: fmt.Sprintf(signalUserPrompt,
			title, content, formatEntityList(entities),
			sentiment.Sentiment, sentiment.Confidence, sentiment.Reasoning),
		MaxTokens: 2000,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Signal generation call failed")
		return nil
	}

	var drafts []SignalDraft
	if err := DecodeJSON(resp.Text, &drafts); err != nil {
		var single SignalDraft
		if err := DecodeJSON(resp.Text, &single); err != nil || single.Ticker == "" {
			s.logger.Warn().Msg("Signal generation returned unparsable JSON")
			return nil
		}
		drafts = []SignalDraft{single}
	}

	signals := make([]SignalDraft, 0, len(drafts))
	for _, d := range drafts {
		if d.Ticker == "" {
			continue
		}
		signals = append(signals, d)
	}
	return signals
}

// detectThemes runs the theme stage over a pre-rendered article block.
// Provider errors and unparsable output degrade to an empty list; the
// batch simply yields no themes this round.
func (s *Service) detectThemes(ctx context.Context, articleBlock string) []ThemeDraft {
	resp, err := s.provider.GenerateContent(ctx, &interfaces.GenerateRequest{
		SystemInstruction: themeSystemPrompt,
		UserInstruction:   fmt.Sprintf(themeUserPrompt, articleBlock),
		MaxTokens:         2000,
		Temperature:       0.4,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Theme detection call failed")
		return nil
	}

	var drafts []ThemeDraft
	if err := DecodeJSON(resp.Text, &drafts); err != nil {
		s.logger.Warn().Err(err).Msg("Theme detection returned unparsable JSON")
		return nil
	}
	return drafts
}
