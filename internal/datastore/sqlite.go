package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/logger"
)

// SQLiteStore implements Interface for SQLite.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings.Output.SQLite.Path == "" {
		return errors.Newf("sqlite path must not be empty").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// Open connects to the database file, creating it and its directory if
// needed, and migrates the schema.
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	dir, fileName := filepath.Split(store.Settings.Output.SQLite.Path)
	basePath := conf.GetBasePath(dir)
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return errors.New(fmt.Errorf("failed to create database directory: %w", err)).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("path", basePath).
			Build()
	}
	absoluteFilePath := filepath.Join(basePath, fileName)

	// WAL for concurrent readers, foreign keys for the users references
	dsn := absoluteFilePath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         createGormLogger(),
		TranslateError: true,
	})
	if err != nil {
		return dbError(fmt.Errorf("failed to open SQLite database: %w", err), "open", errors.PriorityCritical,
			"engine", "sqlite")
	}

	// SQLite serializes writers, one connection avoids busy errors
	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open", errors.PriorityCritical, "engine", "sqlite")
	}
	sqlDB.SetMaxOpenConns(1)

	store.DB = db
	GetLogger().Info("SQLite database opened", logger.String("path", absoluteFilePath))
	return performAutoMigration(db, store.Settings.Debug, "SQLite", absoluteFilePath)
}

// Close closes the SQLite connection.
func (store *SQLiteStore) Close() error {
	return store.closeDB("sqlite")
}
