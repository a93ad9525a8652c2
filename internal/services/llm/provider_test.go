package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/meridian/internal/common"
)

func newTestFactory() *ProviderFactory {
	cfg := common.NewDefaultConfig()
	return NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, common.GetLogger())
}

func TestDetectProvider(t *testing.T) {
	f := newTestFactory()

	tests := []struct {
		model    string
		expected ProviderType
	}{
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"claude/claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-haiku", ProviderClaude},
		{"gemini-3-flash-preview", ProviderGemini},
		{"gemini/gemini-3-flash", ProviderGemini},
		{"google/gemini-pro", ProviderGemini},
		{"", ProviderClaude}, // default provider
		{"gpt-4", ProviderClaude},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.DetectProvider(tt.model))
		})
	}
}

func TestDetectProvider_ConfiguredDefault(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.LLM.DefaultProvider = common.LLMProviderGemini
	f := NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, common.GetLogger())

	assert.Equal(t, ProviderGemini, f.DetectProvider(""))
}

func TestNormalizeModel(t *testing.T) {
	f := newTestFactory()

	assert.Equal(t, "claude-sonnet-4-20250514", f.NormalizeModel("claude/claude-sonnet-4-20250514"))
	assert.Equal(t, "gemini-3-flash", f.NormalizeModel("gemini/gemini-3-flash"))
	assert.Equal(t, "claude-haiku", f.NormalizeModel("claude-haiku"))
}

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.False(t, IsRateLimitError(errors.New("connection refused")))
	assert.True(t, IsRateLimitError(errors.New("Error 429: too many requests")))
	assert.True(t, IsRateLimitError(errors.New("status RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(errors.New("rate_limit_error: slow down")))
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: quota hit. Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED")
	delay := ExtractRetryDelay(err)
	assert.InDelta(t, 45.387, delay.Seconds(), 0.01)

	assert.Equal(t, time.Duration(0), ExtractRetryDelay(errors.New("no delay here")))
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(nil))
}

func TestCalculateBackoff(t *testing.T) {
	c := NewDefaultRetryConfig()

	first := c.CalculateBackoff(0, 0)
	assert.Equal(t, c.InitialBackoff, first)

	second := c.CalculateBackoff(1, 0)
	assert.Greater(t, second, first)

	// API-provided delay takes precedence and gets a small buffer.
	withDelay := c.CalculateBackoff(0, 30*time.Second)
	assert.Equal(t, 35*time.Second, withDelay)

	// Never exceeds the cap.
	capped := c.CalculateBackoff(10, 80*time.Second)
	assert.Equal(t, c.MaxBackoff, capped)
}

func TestGenerateContent_RequiresAPIKey(t *testing.T) {
	f := newTestFactory()

	_, err := f.generateWithClaude(nil, nil, "")
	assert.Error(t, err)
}
