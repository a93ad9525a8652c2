// Package sqlite implements the persistence layer on SQLite via GORM.
package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ternarybob/meridian/internal/common"
	"github.com/ternarybob/meridian/internal/models"
)

// DB manages the SQLite database connection
type DB struct {
	gorm   *gorm.DB
	logger arbor.ILogger
	config *common.StorageConfig
}

// NewDB opens the database, applies pragmas, and migrates the schema.
func NewDB(logger arbor.ILogger, config *common.StorageConfig) (*DB, error) {
	if config.Path != ":memory:" {
		dir := filepath.Dir(config.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	gormDB, err := gorm.Open(sqlite.Open(config.Path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &DB{
		gorm:   gormDB,
		logger: logger,
		config: config,
	}

	if err := d.configure(); err != nil {
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := d.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info().Str("path", config.Path).Msg("SQLite database initialized")
	return d, nil
}

// configure sets up SQLite pragmas
func (d *DB) configure() error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
	}

	for _, pragma := range pragmas {
		if err := d.gorm.Exec(pragma).Error; err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

// migrate creates or updates the schema.
func (d *DB) migrate() error {
	return d.gorm.AutoMigrate(
		&models.ContentItem{},
		&models.Signal{},
		&models.BacktestResult{},
		&models.Theme{},
		&models.Quote{},
		&models.TrackedInstrument{},
	)
}

// Gorm returns the underlying GORM handle
func (d *DB) Gorm() *gorm.DB {
	return d.gorm
}

// Close closes the database connection
func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
