package sqlite

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/meridian/internal/common"
)

// Manager aggregates the per-concern storages behind one handle.
// Implements interfaces.Storage.
type Manager struct {
	*ContentStorage
	*SignalStorage
	*BacktestStorage
	*ThemeStorage
	*QuoteStorage
	*InstrumentStorage

	db *DB
}

// NewManager opens the database and wires up all storage concerns.
func NewManager(logger arbor.ILogger, config *common.StorageConfig) (*Manager, error) {
	db, err := NewDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		ContentStorage:    NewContentStorage(db, logger),
		SignalStorage:     NewSignalStorage(db, logger),
		BacktestStorage:   NewBacktestStorage(db, logger),
		ThemeStorage:      NewThemeStorage(db, logger),
		QuoteStorage:      NewQuoteStorage(db, logger),
		InstrumentStorage: NewInstrumentStorage(db, logger),
		db:                db,
	}, nil
}

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.db.Close()
}
