package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"gorm.io/gorm"

	"github.com/ternarybob/meridian/internal/models"
)

// ThemeStorage implements persistence for detected narrative themes
type ThemeStorage struct {
	db     *DB
	logger arbor.ILogger
}

// NewThemeStorage creates a new theme storage instance
func NewThemeStorage(db *DB, logger arbor.ILogger) *ThemeStorage {
	return &ThemeStorage{db: db, logger: logger}
}

// SaveTheme inserts a theme and links the contributing content items
// in one transaction. Item IDs that do not exist are skipped rather
// than failing the theme.
func (s *ThemeStorage) SaveTheme(ctx context.Context, theme *models.Theme, itemIDs []uint) error {
	if theme.CreatedAt.IsZero() {
		theme.CreatedAt = time.Now().UTC()
	}

	return s.db.Gorm().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(theme).Error; err != nil {
			return fmt.Errorf("failed to save theme: %w", err)
		}

		if len(itemIDs) == 0 {
			return nil
		}

		var items []models.ContentItem
		if err := tx.Where("id IN ?", itemIDs).Find(&items).Error; err != nil {
			return fmt.Errorf("failed to resolve theme items: %w", err)
		}
		if len(items) == 0 {
			return nil
		}

		if err := tx.Model(theme).Association("Items").Append(&items); err != nil {
			return fmt.Errorf("failed to link theme items: %w", err)
		}
		return nil
	})
}

// ListRecentThemes returns themes created since the given time with
// their items preloaded, newest first.
func (s *ThemeStorage) ListRecentThemes(ctx context.Context, since time.Time, limit int) ([]*models.Theme, error) {
	var themes []*models.Theme
	err := s.db.Gorm().WithContext(ctx).
		Preload("Items").
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&themes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent themes: %w", err)
	}
	return themes, nil
}
