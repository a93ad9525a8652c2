package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/meridian/internal/common"
	"github.com/ternarybob/meridian/internal/interfaces"
	"github.com/ternarybob/meridian/internal/models"
	"github.com/ternarybob/meridian/internal/storage/sqlite"
)

// scriptedProvider replays canned responses in call order. An entry with
// a non-nil err simulates a provider failure for that call.
type scriptedProvider struct {
	responses []scriptedResponse
	requests  []*interfaces.GenerateRequest
}

type scriptedResponse struct {
	text string
	err  error
}

func (p *scriptedProvider) GenerateContent(_ context.Context, req *interfaces.GenerateRequest) (*interfaces.GenerateResponse, error) {
	p.requests = append(p.requests, req)
	if len(p.responses) == 0 {
		return nil, errors.New("scripted provider exhausted")
	}
	next := p.responses[0]
	p.responses = p.responses[1:]
	if next.err != nil {
		return nil, next.err
	}
	return &interfaces.GenerateResponse{Text: next.text, Provider: "scripted"}, nil
}

func (p *scriptedProvider) Close() error { return nil }

func newTestService(t *testing.T, provider interfaces.Provider) (*Service, interfaces.Storage) {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Path = ":memory:"

	store, err := sqlite.NewManager(common.GetLogger(), &cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewService(store, provider, cfg, common.GetLogger()), store
}

func seedNewsItem(t *testing.T, store interfaces.Storage, title, url string) *models.ContentItem {
	t.Helper()
	now := time.Now().UTC()
	item := &models.ContentItem{
		Kind:        models.ContentKindNews,
		Title:       title,
		Summary:     "Summary of " + title,
		Source:      "globe_and_mail",
		URL:         url,
		PublishedAt: &now,
	}
	require.NoError(t, store.SaveContent(context.Background(), item))
	return item
}

func TestProcessItem_NoEntitiesMarksProcessed(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{text: `[]`},
	}}
	svc, store := newTestService(t, provider)
	item := seedNewsItem(t, store, "Weather delays harvest", "https://example.com/weather")

	signals, err := svc.ProcessItem(context.Background(), item)
	require.NoError(t, err)
	assert.Empty(t, signals)

	// Only the entity stage was called.
	assert.Len(t, provider.requests, 1)

	stored, err := store.GetContent(context.Background(), item.ID)
	require.NoError(t, err)
	assert.True(t, stored.Processed)
}

func TestProcessItem_LowConfidenceEntitiesFiltered(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{text: `[{"ticker":"RY.TO","company_name":"Royal Bank of Canada","confidence":0.5}]`},
	}}
	svc, store := newTestService(t, provider)
	item := seedNewsItem(t, store, "Vague banking chatter", "https://example.com/vague")

	signals, err := svc.ProcessItem(context.Background(), item)
	require.NoError(t, err)
	assert.Empty(t, signals)
	assert.Len(t, provider.requests, 1)
}

func TestProcessItem_FullPipeline(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{text: "```json\n" + `[{"ticker":"ENB.TO","company_name":"Enbridge Inc.","exchange":"TSX","confidence":0.95,"mention_context":"Enbridge announced"}]` + "\n```"},
		{text: `{"sentiment":"positive","confidence":0.85,"reasoning":"Pipeline expansion approved.","market_impact":"high","insight_type":"Event-driven"}`},
		{text: `[{"ticker":"ENB.TO","company_name":"Enbridge Inc.","direction":"up","confidence":0.8,"impact_hypothesis":"Approval removes regulatory overhang.","time_horizon":"short","sector":"Energy"}]`},
	}}
	svc, store := newTestService(t, provider)
	item := seedNewsItem(t, store, "Enbridge pipeline expansion approved", "https://example.com/enb")

	signals, err := svc.ProcessItem(context.Background(), item)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	s := signals[0]
	assert.Equal(t, "ENB.TO", s.Ticker)
	assert.Equal(t, item.ID, s.ContentItemID)
	assert.Equal(t, models.SentimentPositive, s.Sentiment)
	assert.Equal(t, models.DirectionUp, s.Direction)
	assert.Equal(t, 0.8, s.Confidence)
	assert.Equal(t, models.HorizonShort, s.TimeHorizon)
	assert.Equal(t, "Event-driven", s.InsightType)
	assert.Equal(t, "Energy", s.Sector)
	assert.Equal(t, "Pipeline expansion approved.", s.Reasoning)

	stored, err := store.GetContent(context.Background(), item.ID)
	require.NoError(t, err)
	assert.True(t, stored.Processed)

	recent, err := store.ListRecentSignals(context.Background(), time.Now().UTC().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestProcessItem_SentimentFallbackIsNeutral(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{text: `[{"ticker":"TD.TO","company_name":"Toronto-Dominion Bank","confidence":0.9}]`},
		{err: errors.New("model overloaded")},
		{text: `[{"ticker":"TD.TO","direction":"down","confidence":0.6,"time_horizon":"medium"}]`},
	}}
	svc, store := newTestService(t, provider)
	item := seedNewsItem(t, store, "TD Bank quarterly results", "https://example.com/td")

	signals, err := svc.ProcessItem(context.Background(), item)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	s := signals[0]
	assert.Equal(t, models.SentimentNeutral, s.Sentiment)
	assert.True(t, strings.HasPrefix(s.Reasoning, "Error:"))
}

func TestProcessItem_SingleObjectSignalAccepted(t *testing.T) {
	// A bare object instead of an array is treated as a one-element list.
	provider := &scriptedProvider{responses: []scriptedResponse{
		{text: `[{"ticker":"SHOP.TO","company_name":"Shopify Inc.","confidence":0.9}]`},
		{text: `{"sentiment":"negative","confidence":0.7,"reasoning":"Guidance cut.","insight_type":"Earnings"}`},
		{text: `{"ticker":"SHOP.TO","direction":"down","confidence":0.75,"impact_hypothesis":"Lower guidance pressures valuation.","time_horizon":"short","sector":"Technology"}`},
	}}
	svc, store := newTestService(t, provider)
	item := seedNewsItem(t, store, "Shopify cuts guidance", "https://example.com/shop")

	signals, err := svc.ProcessItem(context.Background(), item)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, models.DirectionDown, signals[0].Direction)
	assert.Equal(t, "Earnings", signals[0].InsightType)
}

func TestProcessItem_DefaultsApplied(t *testing.T) {
	// Signal draft omits company name, sector, horizon, and confidence;
	// all are backfilled from the universe and pipeline defaults.
	provider := &scriptedProvider{responses: []scriptedResponse{
		{text: `[{"ticker":"SU.TO","company_name":"Suncor Energy Inc.","confidence":0.9}]`},
		{text: `{"sentiment":"positive","confidence":0.6,"reasoning":"Oil prices firming."}`},
		{text: `[{"ticker":"SU.TO","direction":"up","impact_hypothesis":"Crude rally lifts producers."}]`},
	}}
	svc, store := newTestService(t, provider)
	item := seedNewsItem(t, store, "Crude rallies on supply cuts", "https://example.com/su")

	signals, err := svc.ProcessItem(context.Background(), item)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	s := signals[0]
	assert.Equal(t, "Suncor Energy Inc.", s.CompanyName)
	assert.Equal(t, "Energy", s.Sector)
	assert.Equal(t, models.HorizonMedium, s.TimeHorizon)
	assert.Equal(t, "Sentiment", s.InsightType)
	assert.Equal(t, 0.5, s.Confidence)
}

func TestProcessUnprocessed_ErrorIsolation(t *testing.T) {
	// First item: entity stage returns garbage (degrades to zero
	// entities). Second item: full pipeline. Both end up processed.
	provider := &scriptedProvider{responses: []scriptedResponse{
		{text: `not json at all`},
		{text: `[{"ticker":"CNQ.TO","company_name":"Canadian Natural Resources","confidence":0.9}]`},
		{text: `{"sentiment":"positive","confidence":0.7,"reasoning":"Production beat."}`},
		{text: `[{"ticker":"CNQ.TO","direction":"up","confidence":0.7,"time_horizon":"short","sector":"Energy"}]`},
	}}
	svc, store := newTestService(t, provider)

	// Items are consumed newest-published first.
	seedNewsItem(t, store, "Broken article", "https://example.com/broken")
	older := time.Now().UTC().Add(-2 * time.Hour)
	cnq := &models.ContentItem{
		Kind: models.ContentKindNews, Title: "CNQ production beat", Source: "cbc_business",
		URL: "https://example.com/cnq", PublishedAt: &older,
	}
	require.NoError(t, store.SaveContent(context.Background(), cnq))

	stats, err := svc.ProcessUnprocessed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ItemsProcessed)
	assert.Equal(t, 1, stats.SignalsGenerated)

	remaining, err := store.ListUnprocessed(context.Background(), models.ContentKindNews, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestAnalyzeSocial(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{text: `{"sentiment":"positive","confidence":0.65,"reasoning":"Bullish chatter."}`},
	}}
	svc, store := newTestService(t, provider)

	post := &models.ContentItem{
		Kind:   models.ContentKindSocial,
		Title:  "Loading up on RY before earnings",
		Source: "reddit/CanadianInvestor",
		URL:    "https://reddit.com/r/CanadianInvestor/abc",
	}
	require.NoError(t, store.SaveContent(context.Background(), post))

	analyzed, err := svc.AnalyzeSocial(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, analyzed)

	stored, err := store.GetContent(context.Background(), post.ID)
	require.NoError(t, err)
	assert.True(t, stored.Processed)
	assert.Equal(t, models.SentimentPositive, stored.Sentiment)
	require.NotNil(t, stored.Confidence)
	assert.Equal(t, 0.65, *stored.Confidence)
}

func TestDetectThemes_GuardBelowTwoArticles(t *testing.T) {
	provider := &scriptedProvider{}
	svc, store := newTestService(t, provider)

	item := seedNewsItem(t, store, "Lone article", "https://example.com/lone")
	require.NoError(t, store.MarkProcessed(context.Background(), item.ID))

	created, err := svc.DetectThemes(context.Background(), 48*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Empty(t, provider.requests, "no model call below the article threshold")
}

func TestDetectThemes_CreatesAndLinks(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{text: `[{"name":"Oil Price Recovery","description":"Energy names rallying on crude.","article_indices":[0,1,99],"sector":"Energy","relevance_score":0.9},{"name":"","description":"","article_indices":[]}]`},
	}}
	svc, store := newTestService(t, provider)

	a := seedNewsItem(t, store, "Crude climbs", "https://example.com/crude1")
	b := seedNewsItem(t, store, "Energy stocks rally", "https://example.com/crude2")
	require.NoError(t, store.MarkProcessed(context.Background(), a.ID))
	require.NoError(t, store.MarkProcessed(context.Background(), b.ID))

	created, err := svc.DetectThemes(context.Background(), 48*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	themes, err := store.ListRecentThemes(context.Background(), time.Now().UTC().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, themes, 2)

	byName := map[string]*models.Theme{}
	for _, th := range themes {
		byName[th.Name] = th
	}

	oil := byName["Oil Price Recovery"]
	require.NotNil(t, oil)
	// Out-of-range index 99 is dropped.
	assert.Len(t, oil.Items, 2)
	assert.Equal(t, 0.9, oil.RelevanceScore)

	fallback := byName["Unknown Theme"]
	require.NotNil(t, fallback)
	assert.Equal(t, "Cross-sector", fallback.Sector)
	assert.Equal(t, 0.5, fallback.RelevanceScore)
}

func TestDetectThemes_ProviderErrorDegradesToNoThemes(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{err: errors.New("model unavailable")},
	}}
	svc, store := newTestService(t, provider)

	for i, url := range []string{"https://example.com/t1", "https://example.com/t2"} {
		item := seedNewsItem(t, store, "Article", url+string(rune('a'+i)))
		require.NoError(t, store.MarkProcessed(context.Background(), item.ID))
	}

	created, err := svc.DetectThemes(context.Background(), 48*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestDetectThemes_UnparsableOutputDegradesToNoThemes(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{text: "I could not identify any coherent themes in these articles."},
	}}
	svc, store := newTestService(t, provider)

	for i, url := range []string{"https://example.com/u1", "https://example.com/u2"} {
		item := seedNewsItem(t, store, "Article", url+string(rune('a'+i)))
		require.NoError(t, store.MarkProcessed(context.Background(), item.ID))
	}

	created, err := svc.DetectThemes(context.Background(), 48*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, created)

	themes, err := store.ListRecentThemes(context.Background(), time.Now().UTC().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, themes)
}

func TestFormatStockList(t *testing.T) {
	universe := map[string]string{"RY.TO": "Royal Bank of Canada", "ENB.TO": "Enbridge Inc."}
	list := formatStockList(universe, []string{"RY.TO", "ENB.TO"})
	assert.Equal(t, "- RY.TO: Royal Bank of Canada\n- ENB.TO: Enbridge Inc.", list)
}

func TestFormatEntityList(t *testing.T) {
	assert.Equal(t, "General market", formatEntityList(nil))
	assert.Equal(t, "Royal Bank of Canada (RY.TO)", formatEntityList([]Entity{
		{Ticker: "RY.TO", CompanyName: "Royal Bank of Canada"},
	}))
}
