package datastore

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/logger"
)

// DefaultSlowQueryThreshold is the duration after which a query is logged
// as slow.
const DefaultSlowQueryThreshold = 500 * time.Millisecond

// createGormLogger routes GORM logs through the datastore module logger.
func createGormLogger() gormlogger.Interface {
	return logger.NewGormLoggerAdapter(GetLogger(), DefaultSlowQueryThreshold)
}

// performAutoMigration migrates all entities. Users come first so the
// foreign keys of sessions and diagnoses resolve.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	start := time.Now()
	if err := db.AutoMigrate(&User{}, &Session{}, &DiagnosisRecord{}); err != nil {
		return errors.New(fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Priority(errors.PriorityCritical).
			Context("operation", "auto_migrate").
			Context("engine", dbType).
			Build()
	}

	if debug {
		GetLogger().Debug("database schema migrated",
			logger.String("engine", dbType),
			logger.String("location", connectionInfo),
			logger.Duration("elapsed", time.Since(start)))
	}
	return nil
}
