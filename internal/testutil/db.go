// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codyseavey/vinyl-exchange/internal/database"
	"github.com/codyseavey/vinyl-exchange/internal/models"
)

// NewTestDB opens a migrated and seeded sqlite database private to the test
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s
func String(s string) *string {
	return &s
}

// CreateRelease stores a release with the given genre
func CreateRelease(t *testing.T, db *gorm.DB, genre string) models.Release {
	t.Helper()
	r := models.Release{
		ID:     uuid.NewString(),
		Title:  "Kind of Blue",
		Artist: "Miles Davis",
		Genre:  genre,
		Year:   1959,
	}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("failed to create release: %v", err)
	}
	return r
}

// CreateSnapshot stores a snapshot for a release and source
func CreateSnapshot(t *testing.T, db *gorm.DB, releaseID string, source models.MarketSource, low, median, high *float64) models.MarketSnapshot {
	t.Helper()
	s := models.MarketSnapshot{
		ID:        uuid.NewString(),
		ReleaseID: releaseID,
		Source:    source,
		MarketStats: models.MarketStats{
			StatLow:    low,
			StatMedian: median,
			StatHigh:   high,
		},
		FetchedAt: time.Now(),
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("failed to create snapshot: %v", err)
	}
	return s
}

// CreatePolicy stores a policy built from the defaults and mutate
func CreatePolicy(t *testing.T, db *gorm.DB, mutate func(p *models.PricingPolicy)) models.PricingPolicy {
	t.Helper()
	p := models.DefaultPricingPolicy()
	p.ID = uuid.NewString()
	p.Name = "Test policy"
	if mutate != nil {
		mutate(&p)
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		t.Fatalf("invalid test policy: %v", err)
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("failed to create policy: %v", err)
	}
	return p
}

// GlobalPolicy returns the seeded global fallback policy
func GlobalPolicy(t *testing.T, db *gorm.DB) models.PricingPolicy {
	t.Helper()
	var p models.PricingPolicy
	if err := db.Where("scope = ? AND scope_value IS NULL", models.PolicyScopeGlobal).First(&p).Error; err != nil {
		t.Fatalf("no global policy seeded: %v", err)
	}
	return p
}
