package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/meridian/internal/models"
)

// ErrDuplicate is returned when an insert loses a race on a uniqueness
// constraint (content hash, instrument ticker). Callers treat it as
// "already ingested", not as a failure.
var ErrDuplicate = errors.New("duplicate record")

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ContentStorage - persistence for ingested content items
type ContentStorage interface {
	// SaveContent inserts a content item. Returns ErrDuplicate when an item
	// with the same URL hash already exists.
	SaveContent(ctx context.Context, item *models.ContentItem) error
	HasContent(ctx context.Context, urlHash string) (bool, error)
	GetContent(ctx context.Context, id uint) (*models.ContentItem, error)

	// ListUnprocessed returns items not yet run through the analysis
	// pipeline, newest published first, capped at limit.
	ListUnprocessed(ctx context.Context, kind models.ContentKind, limit int) ([]*models.ContentItem, error)
	MarkProcessed(ctx context.Context, id uint) error

	// UpdateSocialSentiment stores AI-derived sentiment on a social post.
	UpdateSocialSentiment(ctx context.Context, id uint, sentiment string, confidence float64) error

	ListRecent(ctx context.Context, kind models.ContentKind, since time.Time, limit int) ([]*models.ContentItem, error)
	CountBySource(ctx context.Context, kind models.ContentKind) (map[string]int, error)
}

// SignalStorage - persistence for generated trading signals
type SignalStorage interface {
	SaveSignal(ctx context.Context, signal *models.Signal) error
	GetSignal(ctx context.Context, id uint) (*models.Signal, error)
	ListRecentSignals(ctx context.Context, since time.Time, limit int) ([]*models.Signal, error)

	// ListUntestedSignals returns directional signals that have no backtest
	// result yet. The backtest run processes exactly this set, so repeated
	// runs are idempotent.
	ListUntestedSignals(ctx context.Context) ([]*models.Signal, error)

	CountBySentiment(ctx context.Context, since time.Time) (map[string]int, error)
	CountBySector(ctx context.Context, since time.Time) (map[string]int, error)
}

// BacktestStorage - persistence for signal validation results
type BacktestStorage interface {
	// SaveResult inserts a result. Returns ErrDuplicate when the signal
	// already has one.
	SaveResult(ctx context.Context, result *models.BacktestResult) error
	GetResultForSignal(ctx context.Context, signalID uint) (*models.BacktestResult, error)
	AccuracyByHorizon(ctx context.Context) ([]models.HorizonAccuracy, error)
}

// ThemeStorage - persistence for detected narrative themes
type ThemeStorage interface {
	// SaveTheme inserts a theme and links the contributing content items.
	SaveTheme(ctx context.Context, theme *models.Theme, itemIDs []uint) error
	ListRecentThemes(ctx context.Context, since time.Time, limit int) ([]*models.Theme, error)
}

// QuoteStorage - persistence for market quote snapshots
type QuoteStorage interface {
	SaveQuote(ctx context.Context, quote *models.Quote) error

	// LatestQuotes returns the most recent snapshot per ticker.
	LatestQuotes(ctx context.Context) ([]*models.Quote, error)

	// TopMovers returns the latest quotes ordered by absolute percent
	// change, largest first.
	TopMovers(ctx context.Context, limit int) ([]*models.Quote, error)
}

// InstrumentStorage - persistence for the tracked ticker universe
type InstrumentStorage interface {
	// UpsertInstrument inserts or updates by ticker.
	UpsertInstrument(ctx context.Context, instrument *models.TrackedInstrument) error
	ListActiveInstruments(ctx context.Context) ([]*models.TrackedInstrument, error)

	// DeactivateMissing soft-deactivates instruments whose ticker is not in
	// the given set. Nothing is ever hard-deleted.
	DeactivateMissing(ctx context.Context, tickers []string) (int, error)
}

// Storage aggregates all persistence concerns behind one handle.
type Storage interface {
	ContentStorage
	SignalStorage
	BacktestStorage
	ThemeStorage
	QuoteStorage
	InstrumentStorage

	Close() error
}
