package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/meridian/internal/models"
)

// QuoteStorage implements persistence for market quote snapshots.
// Quotes are append-only; the latest row per ticker is the live view.
type QuoteStorage struct {
	db     *DB
	logger arbor.ILogger
}

// NewQuoteStorage creates a new quote storage instance
func NewQuoteStorage(db *DB, logger arbor.ILogger) *QuoteStorage {
	return &QuoteStorage{db: db, logger: logger}
}

// SaveQuote appends a quote snapshot.
func (s *QuoteStorage) SaveQuote(ctx context.Context, quote *models.Quote) error {
	if quote.IngestedAt.IsZero() {
		quote.IngestedAt = time.Now().UTC()
	}
	if err := s.db.Gorm().WithContext(ctx).Create(quote).Error; err != nil {
		return fmt.Errorf("failed to save quote: %w", err)
	}
	return nil
}

// LatestQuotes returns the most recent snapshot per ticker.
func (s *QuoteStorage) LatestQuotes(ctx context.Context) ([]*models.Quote, error) {
	latest := s.db.Gorm().
		Model(&models.Quote{}).
		Select("MAX(id)").
		Group("ticker")

	var quotes []*models.Quote
	err := s.db.Gorm().WithContext(ctx).
		Where("id IN (?)", latest).
		Order("ticker ASC").
		Find(&quotes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list latest quotes: %w", err)
	}
	return quotes, nil
}

// TopMovers returns the latest quotes ordered by absolute percent
// change, largest first.
func (s *QuoteStorage) TopMovers(ctx context.Context, limit int) ([]*models.Quote, error) {
	latest := s.db.Gorm().
		Model(&models.Quote{}).
		Select("MAX(id)").
		Group("ticker")

	var quotes []*models.Quote
	err := s.db.Gorm().WithContext(ctx).
		Where("id IN (?)", latest).
		Order("ABS(COALESCE(percent_change, 0)) DESC").
		Limit(limit).
		Find(&quotes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list top movers: %w", err)
	}
	return quotes, nil
}
