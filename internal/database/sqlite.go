package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	vlog "github.com/codyseavey/vinyl-exchange/internal/logger"
	"github.com/codyseavey/vinyl-exchange/internal/models"
)

// Open connects to the sqlite database at dbPath, migrates the schema and seeds reference data
func Open(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: newGormLogger(zap.NewStdLog(vlog.L())),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	vlog.Infof("Database connected successfully")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	vlog.Infof("Database migration completed")
	return db, nil
}

// newGormLogger reports slow queries and real errors. A missing row is an expected
// lookup result here and is not logged.
func newGormLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Migrate brings the schema up to date
func Migrate(db *gorm.DB) error {
	if err := cleanupDuplicateSnapshots(db); err != nil {
		return fmt.Errorf("failed to clean duplicate snapshots: %w", err)
	}

	err := db.AutoMigrate(
		&models.Release{},
		&models.ConditionTier{},
		&models.MarketSnapshot{},
		&models.PricingPolicy{},
		&models.PolicyConditionDiscount{},
		&models.PricingCalculationAudit{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
