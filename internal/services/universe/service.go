// Package universe maintains the tracked instrument set: the curated
// TSX tickers that ingestion, analysis, and quoting operate over.
package universe

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/meridian/internal/common"
	"github.com/ternarybob/meridian/internal/interfaces"
	"github.com/ternarybob/meridian/internal/models"
)

// selectionCriteria records how the current universe was chosen.
const selectionCriteria = "market_cap"

// Service reconciles storage with the configured universe.
type Service struct {
	storage interfaces.InstrumentStorage
	config  *common.Config
	logger  arbor.ILogger
}

func NewService(storage interfaces.InstrumentStorage, config *common.Config, logger arbor.ILogger) *Service {
	return &Service{storage: storage, config: config, logger: logger}
}

// Refresh upserts every configured instrument, ranked by config order,
// and soft-deactivates instruments no longer configured. Safe to run
// on every startup and on the scheduled refresh.
func (s *Service) Refresh(ctx context.Context) error {
	tickers := make([]string, 0, len(s.config.Universe))

	for i, entry := range s.config.Universe {
		instrument := &models.TrackedInstrument{
			Ticker:            entry.Ticker,
			CompanyName:       entry.Name,
			Exchange:          "TSX",
			Sector:            entry.Sector,
			Rank:              i + 1,
			SelectionCriteria: selectionCriteria,
			LastUpdated:       time.Now().UTC(),
		}
		if err := s.storage.UpsertInstrument(ctx, instrument); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", entry.Ticker, err)
		}
		tickers = append(tickers, entry.Ticker)
	}

	deactivated, err := s.storage.DeactivateMissing(ctx, tickers)
	if err != nil {
		return fmt.Errorf("failed to deactivate removed instruments: %w", err)
	}

	s.logger.Info().
		Int("instruments", len(tickers)).
		Int("deactivated", deactivated).
		Msg("Universe refresh complete")
	return nil
}
