package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"

	"github.com/codyseavey/vinyl-exchange/internal/metrics"
	"github.com/codyseavey/vinyl-exchange/internal/models"
)

const (
	defaultConditionCacheSize = 64
	defaultConditionCacheTTL  = 5 * time.Minute
)

// ConditionService looks up condition tiers. Tiers are reference data, so lookups
// are cached for a short TTL.
type ConditionService struct {
	db    *gorm.DB
	cache *expirable.LRU[string, models.ConditionTier]
}

// NewConditionService creates a condition service. Zero size or ttl use defaults.
func NewConditionService(db *gorm.DB, size int, ttl time.Duration) *ConditionService {
	if size <= 0 {
		size = defaultConditionCacheSize
	}
	if ttl <= 0 {
		ttl = defaultConditionCacheTTL
	}
	return &ConditionService{
		db:    db,
		cache: expirable.NewLRU[string, models.ConditionTier](size, nil, ttl),
	}
}

// Lookup returns the tier for a grade name, or nil when the name is unrecognized
func (s *ConditionService) Lookup(ctx context.Context, name string) (*models.ConditionTier, error) {
	canonical := models.NormalizeConditionName(name)
	if canonical == "" {
		return nil, nil
	}
	key := strings.ToLower(canonical)

	if tier, ok := s.cache.Get(key); ok {
		metrics.ConditionCacheLookups.WithLabelValues("hit").Inc()
		return &tier, nil
	}
	metrics.ConditionCacheLookups.WithLabelValues("miss").Inc()

	var tier models.ConditionTier
	err := s.db.WithContext(ctx).Where("LOWER(name) = ?", key).First(&tier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up condition %q: %w", canonical, err)
	}

	s.cache.Add(key, tier)
	return &tier, nil
}

// List returns all tiers ordered best to worst
func (s *ConditionService) List(ctx context.Context) ([]models.ConditionTier, error) {
	var tiers []models.ConditionTier
	if err := s.db.WithContext(ctx).Order("display_order ASC").Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

// ValidateConditions rejects grade names that do not match a tier.
// The engine itself is lenient; route layers call this for strict validation.
func (s *ConditionService) ValidateConditions(ctx context.Context, media, sleeve string) error {
	fields := []struct{ field, name string }{
		{"condition_media", media},
		{"condition_sleeve", sleeve},
	}
	for _, f := range fields {
		tier, err := s.Lookup(ctx, f.name)
		if err != nil {
			return err
		}
		if tier == nil {
			return fmt.Errorf("%w: %w", models.NewValidationError(f.field, fmt.Sprintf("unknown condition %q", f.name)), ErrUnknownCondition)
		}
	}
	return nil
}

// Purge drops all cached tiers
func (s *ConditionService) Purge() {
	s.cache.Purge()
}
