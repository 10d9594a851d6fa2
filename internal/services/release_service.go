package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/vinyl-exchange/internal/models"
)

// ReleaseService is the catalog lookup used by pricing
type ReleaseService struct {
	db *gorm.DB
}

func NewReleaseService(db *gorm.DB) *ReleaseService {
	return &ReleaseService{db: db}
}

// Get returns a release by id
func (s *ReleaseService) Get(ctx context.Context, id string) (*models.Release, error) {
	var r models.Release
	err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReleaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load release %s: %w", id, err)
	}
	return &r, nil
}

// Save creates a release, or updates its attributes when the id already exists
func (s *ReleaseService) Save(ctx context.Context, req models.CreateReleaseRequest) (*models.Release, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, models.NewValidationError("title", "title is required")
	}
	if strings.TrimSpace(req.Artist) == "" {
		return nil, models.NewValidationError("artist", "artist is required")
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	r := models.Release{
		ID:               id,
		Title:            strings.TrimSpace(req.Title),
		Artist:           strings.TrimSpace(req.Artist),
		Genre:            strings.TrimSpace(req.Genre),
		Label:            req.Label,
		Year:             req.Year,
		CatalogNumber:    req.CatalogNumber,
		DiscogsReleaseID: req.DiscogsReleaseID,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "artist", "genre", "label", "year", "catalog_number", "discogs_release_id", "updated_at"}),
	}).Create(&r).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save release: %w", err)
	}
	return s.Get(ctx, id)
}

// StaleSnapshotReleases returns up to limit release ids whose snapshot for source
// is missing or was fetched before cutoff, oldest first
func (s *ReleaseService) StaleSnapshotReleases(ctx context.Context, source models.MarketSource, cutoff time.Time, limit int) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Table("releases").
		Select("releases.id").
		Joins("LEFT JOIN market_snapshots ON market_snapshots.release_id = releases.id AND market_snapshots.source = ?", source).
		Where("market_snapshots.id IS NULL OR market_snapshots.fetched_at < ?", cutoff).
		Order("market_snapshots.fetched_at ASC").
		Limit(limit).
		Pluck("releases.id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
