package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/meridian/internal/models"
)

// ErrSkip signals that a discovered page turned out not to be usable
// content (navigation page, paywall shell, malformed markup). The
// adapter run continues; the URL is simply dropped.
var ErrSkip = errors.New("page skipped")

// SourceAdapter is the capability interface every content source
// implements: structural link discovery plus per-page extraction.
// Shared heuristics (date/body extraction) are free functions, not
// inherited behavior.
type SourceAdapter interface {
	// Name identifies the source in logs and per-source count maps.
	Name() string

	// Discover returns candidate content URLs after source-specific
	// structural filtering, capped at limit.
	Discover(ctx context.Context, limit int) ([]string, error)

	// Extract fetches one candidate URL and returns a normalized record.
	// Returns ErrSkip for pages that should be silently dropped.
	Extract(ctx context.Context, url string) (*models.ContentItem, error)
}
