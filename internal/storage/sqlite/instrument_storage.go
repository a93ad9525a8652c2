package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"gorm.io/gorm/clause"

	"github.com/ternarybob/meridian/internal/models"
)

// InstrumentStorage implements persistence for the tracked ticker universe
type InstrumentStorage struct {
	db     *DB
	logger arbor.ILogger
}

// NewInstrumentStorage creates a new instrument storage instance
func NewInstrumentStorage(db *DB, logger arbor.ILogger) *InstrumentStorage {
	return &InstrumentStorage{db: db, logger: logger}
}

// UpsertInstrument inserts or updates by ticker.
func (s *InstrumentStorage) UpsertInstrument(ctx context.Context, instrument *models.TrackedInstrument) error {
	instrument.LastUpdated = time.Now().UTC()
	instrument.IsActive = true

	err := s.db.Gorm().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "ticker"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"company_name", "exchange", "sector", "rank",
				"is_active", "selection_criteria", "last_updated",
			}),
		}).
		Create(instrument).Error
	if err != nil {
		return fmt.Errorf("failed to upsert instrument: %w", err)
	}
	return nil
}

// ListActiveInstruments returns active instruments ordered by rank.
func (s *InstrumentStorage) ListActiveInstruments(ctx context.Context) ([]*models.TrackedInstrument, error) {
	var instruments []*models.TrackedInstrument
	err := s.db.Gorm().WithContext(ctx).
		Where("is_active = ?", true).
		Order("rank ASC").
		Find(&instruments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active instruments: %w", err)
	}
	return instruments, nil
}

// DeactivateMissing soft-deactivates instruments whose ticker is not
// in the given set. Returns the number of rows deactivated.
func (s *InstrumentStorage) DeactivateMissing(ctx context.Context, tickers []string) (int, error) {
	query := s.db.Gorm().WithContext(ctx).
		Model(&models.TrackedInstrument{}).
		Where("is_active = ?", true)
	if len(tickers) > 0 {
		query = query.Where("ticker NOT IN ?", tickers)
	}

	result := query.Updates(map[string]interface{}{
		"is_active":    false,
		"last_updated": time.Now().UTC(),
	})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to deactivate instruments: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}
