package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"gorm.io/gorm"

	"github.com/ternarybob/meridian/internal/interfaces"
	"github.com/ternarybob/meridian/internal/models"
)

// ContentStorage implements persistence for ingested content items
type ContentStorage struct {
	db     *DB
	logger arbor.ILogger
}

// NewContentStorage creates a new content storage instance
func NewContentStorage(db *DB, logger arbor.ILogger) *ContentStorage {
	return &ContentStorage{db: db, logger: logger}
}

// SaveContent inserts a content item, hashing the URL if the caller
// has not done so. Returns interfaces.ErrDuplicate for an already
// ingested URL.
func (s *ContentStorage) SaveContent(ctx context.Context, item *models.ContentItem) error {
	if item.URLHash == "" {
		item.URLHash = models.HashURL(item.URL)
	}
	if item.IngestedAt.IsZero() {
		item.IngestedAt = time.Now().UTC()
	}

	err := s.db.Gorm().WithContext(ctx).Create(item).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return interfaces.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to save content: %w", err)
	}
	return nil
}

// HasContent reports whether a URL hash is already ingested.
func (s *ContentStorage) HasContent(ctx context.Context, urlHash string) (bool, error) {
	var count int64
	err := s.db.Gorm().WithContext(ctx).
		Model(&models.ContentItem{}).
		Where("url_hash = ?", urlHash).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check content: %w", err)
	}
	return count > 0, nil
}

// GetContent returns one item by ID.
func (s *ContentStorage) GetContent(ctx context.Context, id uint) (*models.ContentItem, error) {
	var item models.ContentItem
	err := s.db.Gorm().WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return &item, nil
}

// ListUnprocessed returns unanalyzed items of a kind, newest first.
func (s *ContentStorage) ListUnprocessed(ctx context.Context, kind models.ContentKind, limit int) ([]*models.ContentItem, error) {
	var items []*models.ContentItem
	err := s.db.Gorm().WithContext(ctx).
		Where("kind = ? AND processed = ?", kind, false).
		Order("published_at DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed content: %w", err)
	}
	return items, nil
}

// MarkProcessed flags an item as run through the analysis pipeline.
func (s *ContentStorage) MarkProcessed(ctx context.Context, id uint) error {
	result := s.db.Gorm().WithContext(ctx).
		Model(&models.ContentItem{}).
		Where("id = ?", id).
		Update("processed", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark processed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

// UpdateSocialSentiment stores AI-derived sentiment on a social post.
func (s *ContentStorage) UpdateSocialSentiment(ctx context.Context, id uint, sentiment string, confidence float64) error {
	result := s.db.Gorm().WithContext(ctx).
		Model(&models.ContentItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sentiment":  sentiment,
			"confidence": confidence,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update sentiment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

// ListRecent returns items of a kind ingested since the given time.
func (s *ContentStorage) ListRecent(ctx context.Context, kind models.ContentKind, since time.Time, limit int) ([]*models.ContentItem, error) {
	var items []*models.ContentItem
	err := s.db.Gorm().WithContext(ctx).
		Where("kind = ? AND ingested_at >= ?", kind, since).
		Order("published_at DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent content: %w", err)
	}
	return items, nil
}

// CountBySource returns item counts per source name for a kind.
func (s *ContentStorage) CountBySource(ctx context.Context, kind models.ContentKind) (map[string]int, error) {
	type row struct {
		Source string
		N      int
	}
	var rows []row
	err := s.db.Gorm().WithContext(ctx).
		Model(&models.ContentItem{}).
		Select("source, COUNT(*) AS n").
		Where("kind = ?", kind).
		Group("source").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count by source: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Source] = r.N
	}
	return counts, nil
}
