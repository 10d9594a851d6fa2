package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codyseavey/vinyl-exchange/internal/metrics"
	"github.com/codyseavey/vinyl-exchange/internal/models"
)

// priceTolerance is the largest difference treated as equal when verifying prices
const priceTolerance = 1e-6

// AuditService writes and reads the append-only pricing audit log
type AuditService struct {
	db              *gorm.DB
	defaultPageSize int
	maxPageSize     int
}

func NewAuditService(db *gorm.DB, defaultPageSize, maxPageSize int) *AuditService {
	if defaultPageSize <= 0 {
		defaultPageSize = 50
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = defaultPageSize
	}
	return &AuditService{
		db:              db,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// Record inserts a new audit row for a calculation breakdown
func (s *AuditService) Record(ctx context.Context, releaseID string, b models.PricingBreakdown) (*models.PricingCalculationAudit, error) {
	audit := models.PricingCalculationAudit{
		ID:                   uuid.NewString(),
		ReleaseID:            releaseID,
		PolicyID:             b.PolicyID,
		PolicyVersion:        b.PolicyVersion,
		MarketSnapshotID:     b.MarketSnapshotID,
		CalculationType:      b.CalculationType,
		ConditionMedia:       b.ConditionMedia,
		ConditionSleeve:      b.ConditionSleeve,
		MarketPrice:          b.BaseMarketPrice,
		CalculatedPrice:      b.FinalPrice,
		RequiresManualReview: b.RequiresManualReview,
		Breakdown:            b,
	}
	// Create only: audit rows are never saved over
	if err := s.db.WithContext(ctx).Create(&audit).Error; err != nil {
		return nil, fmt.Errorf("failed to write pricing audit: %w", err)
	}
	metrics.AuditRecordsTotal.WithLabelValues(string(b.CalculationType)).Inc()
	return &audit, nil
}

// Get returns one audit record
func (s *AuditService) Get(ctx context.Context, id string) (*models.PricingCalculationAudit, error) {
	var audit models.PricingCalculationAudit
	err := s.db.WithContext(ctx).First(&audit, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAuditNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load audit %s: %w", id, err)
	}
	return &audit, nil
}

// ListForRelease pages through a release's audit records, newest first
func (s *AuditService) ListForRelease(ctx context.Context, releaseID string, limit, offset int) (*models.AuditPage, error) {
	return s.list(ctx, "release_id = ?", releaseID, limit, offset)
}

// ListForPolicy pages through a policy's audit records, newest first
func (s *AuditService) ListForPolicy(ctx context.Context, policyID string, limit, offset int) (*models.AuditPage, error) {
	return s.list(ctx, "policy_id = ?", policyID, limit, offset)
}

func (s *AuditService) list(ctx context.Context, cond string, arg string, limit, offset int) (*models.AuditPage, error) {
	limit, offset = s.clampPage(limit, offset)

	query := s.db.WithContext(ctx).Model(&models.PricingCalculationAudit{}).Where(cond, arg).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count audits: %w", err)
	}

	items := make([]models.PricingCalculationAudit, 0)
	err := query.Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}

	return &models.AuditPage{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (s *AuditService) clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// AuditFilter selects audits for export; empty fields match everything
type AuditFilter struct {
	ReleaseID string
	PolicyID  string
}

// Find returns every audit matching filter, newest first
func (s *AuditService) Find(ctx context.Context, filter AuditFilter) ([]models.PricingCalculationAudit, error) {
	query := s.db.WithContext(ctx).Model(&models.PricingCalculationAudit{})
	if filter.ReleaseID != "" {
		query = query.Where("release_id = ?", filter.ReleaseID)
	}
	if filter.PolicyID != "" {
		query = query.Where("policy_id = ?", filter.PolicyID)
	}
	var items []models.PricingCalculationAudit
	if err := query.Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load audits: %w", err)
	}
	return items, nil
}

// Verify replays an audit's breakdown and checks it reproduces the stored price
func (s *AuditService) Verify(ctx context.Context, id string) (*models.AuditVerification, error) {
	audit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	recomputed := audit.Breakdown.Recompute()
	return &models.AuditVerification{
		AuditID:         audit.ID,
		StoredPrice:     audit.CalculatedPrice,
		RecomputedPrice: recomputed,
		Matches:         math.Abs(recomputed-audit.CalculatedPrice) <= priceTolerance,
	}, nil
}
