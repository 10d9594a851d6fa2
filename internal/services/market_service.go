package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/vinyl-exchange/internal/logger"
	"github.com/codyseavey/vinyl-exchange/internal/metrics"
	"github.com/codyseavey/vinyl-exchange/internal/models"
)

// MarketPrice is the outcome of resolving a market price for a calculation
type MarketPrice struct {
	Price          *float64
	SnapshotID     *string
	Source         *models.MarketSource // source the price came from, nil when none
	ConfiguredFrom models.MarketSource
	Stat           models.MarketStat
	LiveFetch      bool
}

// MarketService reads and refreshes market snapshots
type MarketService struct {
	db        *gorm.DB
	releases  *ReleaseService
	fetchers  map[models.MarketSource]MarketDataFetcher
	liveFetch bool
}

// NewMarketService creates a market service. liveFetch enables the last-resort
// live lookup from the secondary source during price resolution.
func NewMarketService(db *gorm.DB, releases *ReleaseService, liveFetch bool, fetchers ...MarketDataFetcher) *MarketService {
	s := &MarketService{
		db:        db,
		releases:  releases,
		fetchers:  make(map[models.MarketSource]MarketDataFetcher),
		liveFetch: liveFetch,
	}
	for _, f := range fetchers {
		if f != nil {
			s.fetchers[f.Source()] = f
		}
	}
	return s
}

// Sources returns the snapshot sources that have a configured client
func (s *MarketService) Sources() []models.MarketSource {
	var sources []models.MarketSource
	for _, src := range models.MarketSourceHybrid.Chain() {
		if _, ok := s.fetchers[src]; ok {
			sources = append(sources, src)
		}
	}
	return sources
}

// GetSnapshot returns the cached snapshot for (release, source), or nil
func (s *MarketService) GetSnapshot(ctx context.Context, releaseID string, source models.MarketSource) (*models.MarketSnapshot, error) {
	var snap models.MarketSnapshot
	err := s.db.WithContext(ctx).
		Where("release_id = ? AND source = ?", releaseID, source).
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s snapshot for release %s: %w", source, releaseID, err)
	}
	return &snap, nil
}

// ListSnapshots returns every cached snapshot for a release
func (s *MarketService) ListSnapshots(ctx context.Context, releaseID string) ([]models.MarketSnapshot, error) {
	var snaps []models.MarketSnapshot
	if err := s.db.WithContext(ctx).Where("release_id = ?", releaseID).Order("source ASC").Find(&snaps).Error; err != nil {
		return nil, err
	}
	return snaps, nil
}

// UpsertSnapshot stores the latest stats for (release, source), replacing any previous row
func (s *MarketService) UpsertSnapshot(ctx context.Context, releaseID string, source models.MarketSource, stats models.MarketStats, fetchedAt time.Time) (*models.MarketSnapshot, error) {
	if !source.IsSnapshotSource() {
		return nil, models.NewValidationError("source", "snapshot source must be one of: discogs, ebay")
	}
	if err := stats.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.releases.Get(ctx, releaseID); err != nil {
		return nil, err
	}
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	snap := models.MarketSnapshot{
		ID:          uuid.NewString(),
		ReleaseID:   releaseID,
		Source:      source,
		MarketStats: stats,
		FetchedAt:   fetchedAt,
	}

	// Upsert on the (release_id, source) unique index; the original row id is kept
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "release_id"}, {Name: "source"}},
		DoUpdates: clause.AssignmentColumns([]string{"stat_low", "stat_median", "stat_high", "fetched_at", "updated_at"}),
	}).Create(&snap).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save %s snapshot for release %s: %w", source, releaseID, err)
	}

	return s.GetSnapshot(ctx, releaseID, source)
}

// RefreshSnapshot fetches fresh stats from the source's API and upserts them.
// Unlike price resolution, failures here are returned to the caller.
func (s *MarketService) RefreshSnapshot(ctx context.Context, releaseID string, source models.MarketSource) (*models.MarketSnapshot, error) {
	fetcher, ok := s.fetchers[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFetcher, source)
	}
	release, err := s.releases.Get(ctx, releaseID)
	if err != nil {
		return nil, err
	}

	stats, err := fetcher.FetchStats(ctx, release)
	if err != nil {
		metrics.SnapshotRefreshTotal.WithLabelValues(string(source), "failed").Inc()
		return nil, fmt.Errorf("failed to refresh %s snapshot for release %s: %w", source, releaseID, err)
	}
	if stats == nil {
		stats = &models.MarketStats{}
		metrics.SnapshotRefreshTotal.WithLabelValues(string(source), "empty").Inc()
	} else {
		metrics.SnapshotRefreshTotal.WithLabelValues(string(source), "success").Inc()
	}

	return s.UpsertSnapshot(ctx, releaseID, source, *stats, time.Now())
}

// ResolveMarketPrice finds the base market price for a calculation.
// Cached snapshots are tried along the configured source chain; if none can price
// the request and the chain includes ebay, a live ebay lookup is the last resort.
// A nil Price is not an error: it means no market data exists.
func (s *MarketService) ResolveMarketPrice(ctx context.Context, releaseID string, policy *models.PricingPolicy, calcType models.CalculationType) (*MarketPrice, error) {
	configured := policy.SourceFor(calcType)
	stat := policy.StatFor(calcType)
	result := &MarketPrice{ConfiguredFrom: configured, Stat: stat}

	chain := configured.Chain()
	for _, src := range chain {
		snap, err := s.GetSnapshot(ctx, releaseID, src)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			continue
		}
		if v := snap.Value(stat); v != nil && *v > 0 {
			price := *v
			source := src
			id := snap.ID
			result.Price = &price
			result.Source = &source
			result.SnapshotID = &id
			return result, nil
		}
	}

	if s.liveFetch && chainIncludes(chain, models.MarketSourceEbay) {
		if price := s.livePrice(ctx, releaseID, models.MarketSourceEbay, stat); price != nil {
			source := models.MarketSourceEbay
			result.Price = price
			result.Source = &source
			result.LiveFetch = true
		}
	}

	return result, nil
}

// livePrice performs a live lookup that is not persisted. Any failure degrades to nil.
func (s *MarketService) livePrice(ctx context.Context, releaseID string, source models.MarketSource, stat models.MarketStat) *float64 {
	fetcher, ok := s.fetchers[source]
	if !ok {
		return nil
	}
	release, err := s.releases.Get(ctx, releaseID)
	if err != nil {
		logger.Warnf("Market service: live %s fetch skipped for release %s: %v", source, releaseID, err)
		return nil
	}

	stats, err := fetcher.FetchStats(ctx, release)
	if err != nil {
		metrics.LiveFetchTotal.WithLabelValues(string(source), "failed").Inc()
		logger.Warnf("Market service: live %s fetch failed for release %s: %v", source, releaseID, err)
		return nil
	}
	if stats == nil {
		metrics.LiveFetchTotal.WithLabelValues(string(source), "empty").Inc()
		return nil
	}
	v := stats.Value(stat)
	if v == nil || *v <= 0 {
		metrics.LiveFetchTotal.WithLabelValues(string(source), "empty").Inc()
		return nil
	}

	metrics.LiveFetchTotal.WithLabelValues(string(source), "success").Inc()
	price := *v
	return &price
}

func chainIncludes(chain []models.MarketSource, source models.MarketSource) bool {
	for _, src := range chain {
		if src == source {
			return true
		}
	}
	return false
}
