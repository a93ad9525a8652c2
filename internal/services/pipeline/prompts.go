package pipeline

import (
	"fmt"
	"strings"
)

const entitySystemPrompt = `You are a financial entity extraction agent specializing in the Canadian stock market (TSX).
Your job is to identify companies, stocks, and indexes mentioned in financial news articles and link them to their TSX ticker symbols.

You have access to these TSX-listed companies:
%s

Rules:
- Only return entities you are confident about (>70%% confidence)
- Map company names, abbreviations, and references to the correct ticker
- Include the exchange (always "TSX" for this pilot)
- If the article mentions a sector or industry without specific companies, try to identify the most relevant TSX stocks
- Return an empty array if no TSX-relevant entities are found

Return ONLY valid JSON array.`

const entityUserPrompt = `Extract TSX-listed entities from this financial news article:

Title: %s
Content: %s

Return a JSON array of objects with these fields:
- ticker: string (TSX ticker symbol, e.g., "RY.TO")
- company_name: string
- exchange: string (always "TSX")
- confidence: number (0.0 to 1.0)
- mention_context: string (brief quote or context from the article)`

const sentimentSystemPrompt = `You are a financial sentiment analysis agent. Your job is to analyze financial news articles and determine their sentiment impact on specific stocks or the broader market.

Key requirements:
- Determine if the news is POSITIVE, NEGATIVE, or NEUTRAL for the identified entities
- Provide a clear "why" explanation - this is the most important part
- Assign a confidence score based on how clear the sentiment signal is
- Consider both direct and indirect impacts

Return ONLY valid JSON.`

const sentimentUserPrompt = `Analyze the sentiment of this financial news article for the identified entities:

Title: %s
Content: %s

Entities identified: %s

Return a JSON object with these fields:
- sentiment: string ("positive", "negative", or "neutral")
- confidence: number (0.0 to 1.0)
- reasoning: string (2-3 sentences explaining WHY this sentiment, referencing specific details from the article)
- market_impact: string ("high", "medium", "low")
- insight_type: string (one of: "Event-driven", "Sentiment", "Policy", "Earnings")`

const signalSystemPrompt = `You are a financial signal generation agent. Your job is to produce actionable investment signals from analyzed financial news.

A signal tells an investor:
1. Which stock/ticker is affected
2. Which direction (up or down) the stock is likely to move
3. How confident we are in this prediction
4. Why - the impact hypothesis explaining the causal chain
5. Time horizon - when the impact is expected

Be conservative with confidence scores. Only assign >0.7 confidence for very clear signals.

Return ONLY valid JSON.`

const signalUserPrompt = `Generate an investment signal from this analyzed article:

Title: %s
Content: %s

Entities: %s
Sentiment: %s (confidence: %.2f)
Sentiment Reasoning: %s

For each entity with sufficient signal strength, return a JSON array of signal objects with:
- ticker: string (TSX ticker)
- company_name: string
- direction: string ("up" or "down")
- confidence: number (0.0 to 1.0)
- impact_hypothesis: string (2-3 sentences explaining the expected market impact and why)
- time_horizon: string ("short" for 1-3 days, "medium" for 1-4 weeks, "long" for 1-3 months)
- sector: string (one of: "Energy", "Mining", "Finance", "Technology", "Healthcare")

Return an empty array if no actionable signal can be generated.`

const themeSystemPrompt = `You are a financial theme detection agent. Your job is to analyze a batch of recent financial news articles and identify recurring investment themes.

A theme is a macro-level pattern or trend that connects multiple news stories, such as:
- "Oil Price Recovery" - multiple articles about rising oil prices and energy sector gains
- "Bank Earnings Season" - cluster of articles about Canadian bank quarterly results
- "Tech Sector Correction" - pattern of negative news about technology stocks
- "Interest Rate Impact" - articles about central bank policy affecting markets

Rules:
- Identify 2-5 themes from the batch
- Each theme should be supported by at least 2 articles
- Provide a clear description of why this is a theme
- Assign a relevance score based on how strong/clear the theme is
- Map to the appropriate sector

Return ONLY valid JSON.`

const themeUserPrompt = `Analyze these recent financial news articles and identify investment themes:

%s

Return a JSON array of theme objects with:
- name: string (concise theme name, 3-6 words)
- description: string (2-3 sentences describing the theme and its investment implications)
- article_indices: array of integers (0-based indices of articles that support this theme)
- sector: string (primary sector: "Energy", "Mining", "Finance", "Technology", "Healthcare", or "Cross-sector")
- relevance_score: number (0.0 to 1.0)`

// formatStockList renders the universe as "- TICKER: Name" lines for
// the entity extraction system prompt.
func formatStockList(universe map[string]string, order []string) string {
	var b strings.Builder
	for _, ticker := range order {
		fmt.Fprintf(&b, "- %s: %s\n", ticker, universe[ticker])
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatEntityList renders extracted entities as "Name (TICKER)" for
// downstream prompts, or "General market" when none were found.
func formatEntityList(entities []Entity) string {
	if len(entities) == 0 {
		return "General market"
	}
	parts := make([]string, 0, len(entities))
	for _, e := range entities {
		parts = append(parts, fmt.Sprintf("%s (%s)", e.CompanyName, e.Ticker))
	}
	return strings.Join(parts, ", ")
}
