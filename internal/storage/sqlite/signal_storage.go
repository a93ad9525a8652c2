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

// SignalStorage implements persistence for generated trading signals
type SignalStorage struct {
	db     *DB
	logger arbor.ILogger
}

// NewSignalStorage creates a new signal storage instance
func NewSignalStorage(db *DB, logger arbor.ILogger) *SignalStorage {
	return &SignalStorage{db: db, logger: logger}
}

// SaveSignal inserts a signal.
func (s *SignalStorage) SaveSignal(ctx context.Context, signal *models.Signal) error {
	if signal.CreatedAt.IsZero() {
		signal.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Gorm().WithContext(ctx).Create(signal).Error; err != nil {
		return fmt.Errorf("failed to save signal: %w", err)
	}
	return nil
}

// GetSignal returns one signal by ID.
func (s *SignalStorage) GetSignal(ctx context.Context, id uint) (*models.Signal, error) {
	var signal models.Signal
	err := s.db.Gorm().WithContext(ctx).First(&signal, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}
	return &signal, nil
}

// ListRecentSignals returns signals created since the given time,
// newest first.
func (s *SignalStorage) ListRecentSignals(ctx context.Context, since time.Time, limit int) ([]*models.Signal, error) {
	var signals []*models.Signal
	err := s.db.Gorm().WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&signals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent signals: %w", err)
	}
	return signals, nil
}

// ListUntestedSignals returns directional signals without a backtest
// result. Signals with no direction carry nothing to validate.
func (s *SignalStorage) ListUntestedSignals(ctx context.Context) ([]*models.Signal, error) {
	var signals []*models.Signal
	tested := s.db.Gorm().Model(&models.BacktestResult{}).Select("signal_id")
	err := s.db.Gorm().WithContext(ctx).
		Where("direction <> ''").
		Where("id NOT IN (?)", tested).
		Order("created_at ASC").
		Find(&signals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list untested signals: %w", err)
	}
	return signals, nil
}

// CountBySentiment returns signal counts per sentiment since the given time.
func (s *SignalStorage) CountBySentiment(ctx context.Context, since time.Time) (map[string]int, error) {
	return s.groupCount(ctx, "sentiment", since)
}

// CountBySector returns signal counts per sector since the given time.
func (s *SignalStorage) CountBySector(ctx context.Context, since time.Time) (map[string]int, error) {
	return s.groupCount(ctx, "sector", since)
}

func (s *SignalStorage) groupCount(ctx context.Context, column string, since time.Time) (map[string]int, error) {
	type row struct {
		K string
		N int
	}
	var rows []row
	err := s.db.Gorm().WithContext(ctx).
		Model(&models.Signal{}).
		Select(column+" AS k, COUNT(*) AS n").
		Where("created_at >= ?", since).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count by %s: %w", column, err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.K] = r.N
	}
	return counts, nil
}
