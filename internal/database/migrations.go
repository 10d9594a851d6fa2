package database

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	vlog "github.com/codyseavey/vinyl-exchange/internal/logger"
	"github.com/codyseavey/vinyl-exchange/internal/models"
)

// cleanupDuplicateSnapshots removes duplicate market_snapshots rows before the unique index is added.
// This runs BEFORE AutoMigrate to prevent constraint violations.
func cleanupDuplicateSnapshots(db *gorm.DB) error {
	if !db.Migrator().HasTable("market_snapshots") {
		return nil
	}

	// Keep the most recently fetched row per (release, source)
	result := db.Exec(`
		DELETE FROM market_snapshots
		WHERE rowid NOT IN (
			SELECT rowid FROM (
				SELECT rowid, ROW_NUMBER() OVER (
					PARTITION BY release_id, source ORDER BY fetched_at DESC
				) AS rn
				FROM market_snapshots
			) WHERE rn = 1
		)
	`)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		vlog.Infof("Cleaned up %d duplicate market_snapshots entries", result.RowsAffected)
	}
	return nil
}

// RunMigrations seeds reference data. Safe to run multiple times.
func RunMigrations(db *gorm.DB) error {
	if err := seedConditionTiers(db); err != nil {
		return err
	}
	if err := seedGlobalPolicy(db); err != nil {
		return err
	}
	return nil
}

// seedConditionTiers inserts any default tier that is missing by name; existing rows are left alone
func seedConditionTiers(db *gorm.DB) error {
	for _, tier := range models.DefaultConditionTiers() {
		t := tier
		result := db.Where("name = ?", t.Name).FirstOrCreate(&t)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			vlog.Infof("Seeded condition tier %s", t.Name)
		}
	}
	return nil
}

// seedGlobalPolicy creates the ultimate fallback policy when no active global policy exists
func seedGlobalPolicy(db *gorm.DB) error {
	var count int64
	err := db.Model(&models.PricingPolicy{}).
		Where("scope = ? AND scope_value IS NULL AND is_active = ?", models.PolicyScopeGlobal, true).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	policy := models.DefaultPricingPolicy()
	policy.ID = uuid.NewString()
	policy.Name = "Global default"
	if err := db.Create(&policy).Error; err != nil {
		return err
	}
	vlog.Infof("Seeded global pricing policy %s", policy.ID)
	return nil
}
