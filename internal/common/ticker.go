// Package common provides shared utilities across the application.
package common

import (
	"regexp"
	"strings"
)

// DefaultExchangeSuffix is appended to bare ticker codes. The tracked
// universe is TSX-listed, so "RY" normalizes to "RY.TO".
const DefaultExchangeSuffix = ".TO"

// knownSuffixes are exchange qualifiers accepted as already normalized.
var knownSuffixes = []string{".TO", ".V", ".CN", ".NE"}

// tickerPattern matches cashtag or bare uppercase ticker mentions in
// free text, e.g. "$SHOP", "RY.TO", "TECK-B".
var tickerPattern = regexp.MustCompile(`\$?([A-Z]{1,6}(?:-[A-Z])?(?:\.(?:TO|V|CN|NE))?)\b`)

// NormalizeTicker upper-cases a ticker code and ensures it carries an
// exchange suffix. Returns "" for input that cannot be a ticker.
func NormalizeTicker(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(raw, "$")))
	if code == "" || len(code) > 12 {
		return ""
	}
	for _, suffix := range knownSuffixes {
		if strings.HasSuffix(code, suffix) {
			return code
		}
	}
	return code + DefaultExchangeSuffix
}

// BaseSymbol strips the exchange suffix: "RY.TO" -> "RY".
func BaseSymbol(ticker string) string {
	if idx := strings.LastIndex(ticker, "."); idx > 0 {
		return ticker[:idx]
	}
	return ticker
}

// ExtractTickerMentions scans free text for ticker-shaped tokens that
// normalize into the given universe. Cashtags ("$SHOP") match any
// universe entry; bare uppercase tokens only count when at least two
// characters long, which filters single-letter English words ("I",
// "A") that collide with real TSX symbols.
func ExtractTickerMentions(text string, universe map[string]string) []string {
	seen := make(map[string]bool)
	var mentions []string

	for _, match := range tickerPattern.FindAllStringSubmatch(text, -1) {
		full, code := match[0], match[1]
		cashtag := strings.HasPrefix(full, "$")
		qualified := strings.Contains(code, ".")
		if !cashtag && !qualified && len(code) < 2 {
			continue
		}

		normalized := NormalizeTicker(code)
		if normalized == "" || seen[normalized] {
			continue
		}
		if _, ok := universe[normalized]; !ok {
			continue
		}
		seen[normalized] = true
		mentions = append(mentions, normalized)
	}

	return mentions
}
