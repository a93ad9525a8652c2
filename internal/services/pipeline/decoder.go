package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseError is returned when a model response cannot be coerced into
// the expected JSON shape by any recovery strategy.
type ParseError struct {
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse JSON from model response: %s", e.Snippet)
}

var (
	fenceRegex  = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	arrayRegex  = regexp.MustCompile(`\[[\s\S]*\]`)
	objectRegex = regexp.MustCompile(`\{[\s\S]*\}`)
)

// DecodeJSON parses a model response that should contain JSON but may
// wrap it in markdown fences or surrounding prose. Recovery order:
// strip code fences, parse directly, then parse the widest array or
// object substring. Fails with ParseError when nothing parses.
func DecodeJSON(raw string, v interface{}) error {
	if match := fenceRegex.FindStringSubmatch(raw); match != nil {
		raw = strings.TrimSpace(match[1])
	}

	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	for _, re := range []*regexp.Regexp{arrayRegex, objectRegex} {
		if candidate := re.FindString(raw); candidate != "" {
			if err := json.Unmarshal([]byte(candidate), v); err == nil {
				return nil
			}
		}
	}

	snippet := raw
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return &ParseError{Snippet: snippet}
}
