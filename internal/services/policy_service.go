package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codyseavey/vinyl-exchange/internal/logger"
	"github.com/codyseavey/vinyl-exchange/internal/models"
)

// maxUpdateAttempts bounds retries when a concurrent update bumps the version first
const maxUpdateAttempts = 3

var errVersionConflict = errors.New("policy version changed during update")

// PolicyService resolves and administers pricing policies
type PolicyService struct {
	db         *gorm.DB
	conditions *ConditionService
}

func NewPolicyService(db *gorm.DB, conditions *ConditionService) *PolicyService {
	return &PolicyService{
		db:         db,
		conditions: conditions,
	}
}

// ResolvePolicy picks the policy for a calculation.
// An explicit id must exist. Otherwise the fallback order is release -> genre -> global.
func (s *PolicyService) ResolvePolicy(ctx context.Context, explicitID *string, releaseID, genre string) (*models.PricingPolicy, error) {
	if explicitID != nil && strings.TrimSpace(*explicitID) != "" {
		return s.Get(ctx, strings.TrimSpace(*explicitID))
	}

	db := s.db.WithContext(ctx)

	if releaseID != "" {
		p, err := s.findActive(db.Where("scope = ? AND scope_value = ?", models.PolicyScopeRelease, releaseID))
		if err != nil || p != nil {
			return p, err
		}
	}

	if genre = strings.TrimSpace(genre); genre != "" {
		p, err := s.findActive(db.Where("scope = ? AND LOWER(scope_value) = LOWER(?)", models.PolicyScopeGenre, genre))
		if err != nil || p != nil {
			return p, err
		}
	}

	p, err := s.findActive(db.Where("scope = ? AND scope_value IS NULL", models.PolicyScopeGlobal))
	if err != nil {
		return nil, err
	}
	if p == nil {
		logger.Errorf("Policy service: no active global policy, cannot price release %s", releaseID)
		return nil, ErrNoPolicyFound
	}
	return p, nil
}

// findActive returns the newest active policy matching query, or nil
func (s *PolicyService) findActive(query *gorm.DB) (*models.PricingPolicy, error) {
	var p models.PricingPolicy
	err := query.Where("is_active = ?", true).
		Order("version DESC").Order("updated_at DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up policy: %w", err)
	}
	return &p, nil
}

// Get returns a policy by id
func (s *PolicyService) Get(ctx context.Context, id string) (*models.PricingPolicy, error) {
	var p models.PricingPolicy
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load policy %s: %w", id, err)
	}
	return &p, nil
}

// GetDetail returns a policy together with its condition discounts
func (s *PolicyService) GetDetail(ctx context.Context, id string) (*models.PolicyDetail, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	discounts, err := s.Discounts(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.PolicyDetail{PricingPolicy: *p, Discounts: discounts}, nil
}

// List returns policies, optionally only active ones
func (s *PolicyService) List(ctx context.Context, activeOnly bool) ([]models.PricingPolicy, error) {
	query := s.db.WithContext(ctx).Order("scope ASC").Order("name ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var policies []models.PricingPolicy
	if err := query.Find(&policies).Error; err != nil {
		return nil, err
	}
	return policies, nil
}

// Create validates and stores a new policy at version 1
func (s *PolicyService) Create(ctx context.Context, req models.PolicyRequest) (*models.PricingPolicy, error) {
	p := models.DefaultPricingPolicy()
	p.Name = ""
	if err := req.ApplyTo(&p); err != nil {
		return nil, err
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	p.ID = uuid.NewString()
	p.Version = 1
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}

	logger.Infof("Policy service: created policy %s (%s, scope=%s)", p.ID, p.Name, p.Scope)
	return &p, nil
}

// Update applies req to a policy, validates the result and bumps its version
func (s *PolicyService) Update(ctx context.Context, id string, req models.PolicyRequest) (*models.PricingPolicy, error) {
	var updated *models.PricingPolicy
	err := s.withVersionBump(ctx, id, func(tx *gorm.DB, p *models.PricingPolicy) error {
		if err := req.ApplyTo(p); err != nil {
			return err
		}
		p.Normalize()
		if err := p.Validate(); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("Policy service: updated policy %s to version %d", updated.ID, updated.Version)
	return updated, nil
}

// SetDiscounts replaces the per-condition discounts of a policy and bumps its version
func (s *PolicyService) SetDiscounts(ctx context.Context, policyID string, inputs []models.ConditionDiscountInput) ([]models.ConditionDiscountView, error) {
	rows := make([]models.PolicyConditionDiscount, 0, len(inputs))
	seen := make(map[uint]bool)
	for _, in := range inputs {
		tier, err := s.conditions.Lookup(ctx, in.Condition)
		if err != nil {
			return nil, err
		}
		if tier == nil {
			return nil, models.NewValidationError("condition", fmt.Sprintf("unknown condition %q", in.Condition))
		}
		if seen[tier.ID] {
			return nil, models.NewValidationError("condition", fmt.Sprintf("duplicate discount for condition %q", tier.Name))
		}
		seen[tier.ID] = true

		row := models.PolicyConditionDiscount{
			PolicyID:               policyID,
			ConditionTierID:        tier.ID,
			BuyDiscountPercentage:  in.BuyDiscountPercentage,
			SellDiscountPercentage: in.SellDiscountPercentage,
		}
		if err := row.Validate(); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	err := s.withVersionBump(ctx, policyID, func(tx *gorm.DB, p *models.PricingPolicy) error {
		if err := tx.Where("policy_id = ?", policyID).Delete(&models.PolicyConditionDiscount{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	return s.Discounts(ctx, policyID)
}

// withVersionBump loads a policy, lets mutate change it inside a transaction and
// saves it with version+1. The write only lands if nobody else bumped the version first.
func (s *PolicyService) withVersionBump(ctx context.Context, id string, mutate func(tx *gorm.DB, p *models.PricingPolicy) error) error {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var p models.PricingPolicy
			err := tx.First(&p, "id = ?", id).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPolicyNotFound
			}
			if err != nil {
				return err
			}

			previous := p.Version
			if err := mutate(tx, &p); err != nil {
				return err
			}
			p.Version = previous + 1

			result := tx.Model(&models.PricingPolicy{}).
				Where("id = ? AND version = ?", id, previous).
				Select("*").Omit("created_at").
				Updates(&p)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return errVersionConflict
			}
			return nil
		})
		if errors.Is(err, errVersionConflict) {
			logger.Warnf("Policy service: version conflict on policy %s (attempt %d)", id, attempt)
			continue
		}
		return err
	}
	return fmt.Errorf("failed to update policy %s: %w", id, errVersionConflict)
}

// Discounts returns the condition discounts of a policy joined with tier names
func (s *PolicyService) Discounts(ctx context.Context, policyID string) ([]models.ConditionDiscountView, error) {
	var views []models.ConditionDiscountView
	err := s.db.WithContext(ctx).
		Table("policy_condition_discounts").
		Select(`condition_tiers.name AS condition,
			policy_condition_discounts.condition_tier_id,
			policy_condition_discounts.buy_discount_percentage,
			policy_condition_discounts.sell_discount_percentage`).
		Joins("JOIN condition_tiers ON condition_tiers.id = policy_condition_discounts.condition_tier_id").
		Where("policy_condition_discounts.policy_id = ?", policyID).
		Order("condition_tiers.display_order ASC").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load discounts for policy %s: %w", policyID, err)
	}
	return views, nil
}

// DiscountFor returns the discount row for (policy, tier), or nil
func (s *PolicyService) DiscountFor(ctx context.Context, policyID string, tierID uint) (*models.PolicyConditionDiscount, error) {
	var d models.PolicyConditionDiscount
	err := s.db.WithContext(ctx).
		Where("policy_id = ? AND condition_tier_id = ?", policyID, tierID).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load discount: %w", err)
	}
	return &d, nil
}
