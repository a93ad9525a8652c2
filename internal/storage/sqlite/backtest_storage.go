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

// BacktestStorage implements persistence for signal validation results
type BacktestStorage struct {
	db     *DB
	logger arbor.ILogger
}

// NewBacktestStorage creates a new backtest storage instance
func NewBacktestStorage(db *DB, logger arbor.ILogger) *BacktestStorage {
	return &BacktestStorage{db: db, logger: logger}
}

// SaveResult inserts a result. Returns interfaces.ErrDuplicate when
// the signal already has one.
func (s *BacktestStorage) SaveResult(ctx context.Context, result *models.BacktestResult) error {
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	err := s.db.Gorm().WithContext(ctx).Create(result).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return interfaces.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to save backtest result: %w", err)
	}
	return nil
}

// GetResultForSignal returns the result for one signal.
func (s *BacktestStorage) GetResultForSignal(ctx context.Context, signalID uint) (*models.BacktestResult, error) {
	var result models.BacktestResult
	err := s.db.Gorm().WithContext(ctx).
		Where("signal_id = ?", signalID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backtest result: %w", err)
	}
	return &result, nil
}

// AccuracyByHorizon aggregates hit rates per horizon over all results.
// Results whose accuracy could not be established (missing prices) do
// not count toward either side.
func (s *BacktestStorage) AccuracyByHorizon(ctx context.Context) ([]models.HorizonAccuracy, error) {
	var results []*models.BacktestResult
	if err := s.db.Gorm().WithContext(ctx).Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to load backtest results: %w", err)
	}

	horizons := []struct {
		name string
		pick func(*models.BacktestResult) *bool
	}{
		{"1d", func(r *models.BacktestResult) *bool { return r.Accurate1D }},
		{"7d", func(r *models.BacktestResult) *bool { return r.Accurate7D }},
		{"30d", func(r *models.BacktestResult) *bool { return r.Accurate30D }},
	}

	out := make([]models.HorizonAccuracy, 0, len(horizons))
	for _, h := range horizons {
		agg := models.HorizonAccuracy{Horizon: h.name}
		for _, r := range results {
			accurate := h.pick(r)
			if accurate == nil {
				continue
			}
			agg.Tested++
			if *accurate {
				agg.Accurate++
			}
		}
		if agg.Tested > 0 {
			agg.HitRate = float64(agg.Accurate) / float64(agg.Tested)
		}
		out = append(out, agg)
	}

	return out, nil
}
