package storage

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/meridian/internal/common"
	"github.com/ternarybob/meridian/internal/interfaces"
	"github.com/ternarybob/meridian/internal/storage/sqlite"
)

// NewStorageManager creates the storage backend from config.
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.Storage, error) {
	return sqlite.NewManager(logger, &config.Storage)
}
