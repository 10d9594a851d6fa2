package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codyseavey/vinyl-exchange/internal/logger"
	"github.com/codyseavey/vinyl-exchange/internal/metrics"
	"github.com/codyseavey/vinyl-exchange/internal/models"
)

// DefaultFallbackPrice is the price used when there is no market data and no min cap
const DefaultFallbackPrice = 0.5

// CalculationInput is one request to the pricing engine
type CalculationInput struct {
	ReleaseID       string
	Policy          *models.PricingPolicy
	ConditionMedia  string
	ConditionSleeve string
	CalculationType models.CalculationType
}

// PricingEngine computes buy offers and sell prices and records an audit row for each
type PricingEngine struct {
	market        *MarketService
	conditions    *ConditionService
	policies      *PolicyService
	audits        *AuditService
	fallbackPrice float64
}

// NewPricingEngine creates an engine. A non-positive fallbackPrice uses DefaultFallbackPrice.
func NewPricingEngine(market *MarketService, conditions *ConditionService, policies *PolicyService, audits *AuditService, fallbackPrice float64) *PricingEngine {
	if fallbackPrice <= 0 {
		fallbackPrice = DefaultFallbackPrice
	}
	return &PricingEngine{
		market:        market,
		conditions:    conditions,
		policies:      policies,
		audits:        audits,
		fallbackPrice: fallbackPrice,
	}
}

// CalculatePricing runs one calculation. Exactly one audit row is written per
// successful invocation, including the no-data path.
func (e *PricingEngine) CalculatePricing(ctx context.Context, in CalculationInput) (*models.PricingResult, error) {
	if in.Policy == nil {
		return nil, errors.New("pricing engine: policy is required")
	}
	if in.ReleaseID == "" {
		return nil, models.NewValidationError("release_id", "release_id is required")
	}
	if !in.CalculationType.IsValid() {
		return nil, models.NewValidationError("calculation_type", "calculation_type must be buy_offer or sell_price")
	}

	start := time.Now()
	defer func() {
		metrics.PricingCalculationDuration.Observe(time.Since(start).Seconds())
	}()

	// One copy of the policy is used for the whole calculation
	policy := *in.Policy
	calcType := in.CalculationType

	market, err := e.market.ResolveMarketPrice(ctx, in.ReleaseID, &policy, calcType)
	if err != nil {
		return nil, err
	}

	b := models.PricingBreakdown{
		CalculationType:          calcType,
		PolicyID:                 policy.ID,
		PolicyVersion:            policy.Version,
		MarketSource:             market.ConfiguredFrom,
		ResolvedSource:           market.Source,
		MarketStat:               market.Stat,
		BaseMarketPrice:          market.Price,
		MarketSnapshotID:         market.SnapshotID,
		LiveFetch:                market.LiveFetch,
		FormulaPercentage:        policy.PercentageFor(calcType),
		ConditionMedia:           in.ConditionMedia,
		ConditionSleeve:          in.ConditionSleeve,
		ApplyConditionAdjustment: policy.ApplyConditionAdjustment,
		MediaAdjustment:          1.0,
		SleeveAdjustment:         1.0,
		MediaWeight:              policy.MediaWeight,
		SleeveWeight:             policy.SleeveWeight,
		RoundingIncrement:        policy.RoundingIncrement,
	}
	b.RequiresManualReview = market.Price == nil && policy.RequiresManualReview

	mediaTier, err := e.lookupTier(ctx, in.ConditionMedia, "media", &b)
	if err != nil {
		return nil, err
	}
	sleeveTier, err := e.lookupTier(ctx, in.ConditionSleeve, "sleeve", &b)
	if err != nil {
		return nil, err
	}

	b.ConditionAdjustment = conditionAdjustment(mediaTier, sleeveTier, &policy, &b)

	discount, err := e.policyDiscountMultiplier(ctx, mediaTier, sleeveTier, &policy, calcType)
	if err != nil {
		return nil, err
	}
	b.PolicyDiscount = discount
	multiplier := 1.0
	if discount != nil {
		multiplier = discount.Multiplier
	}
	b.ConditionFactor = b.ConditionAdjustment * multiplier

	minCap, maxCap := policy.CapsFor(calcType)
	priceSource := "snapshot"
	if market.Price != nil && *market.Price > 0 {
		b.PriceBeforeRounding = *market.Price * b.FormulaPercentage * b.ConditionFactor
		if market.LiveFetch {
			priceSource = "live"
		}
	} else {
		fallback := e.fallbackPrice
		if minCap != nil {
			fallback = *minCap
		}
		b.FallbackPrice = &fallback
		b.PriceBeforeRounding = fallback
		priceSource = "fallback"
	}

	b.PriceAfterRounding = models.RoundToIncrement(b.PriceBeforeRounding, b.RoundingIncrement)
	final, appliedMin, appliedMax := models.ApplyCaps(b.PriceAfterRounding, minCap, maxCap)
	b.AppliedCaps = models.AppliedCaps{
		MinCap:         appliedMin,
		MaxCap:         appliedMax,
		PriceAfterCaps: final,
	}
	b.FinalPrice = final

	audit, err := e.audits.Record(ctx, in.ReleaseID, b)
	if err != nil {
		return nil, fmt.Errorf("pricing engine: %w", err)
	}

	metrics.PricingCalculationsTotal.WithLabelValues(string(calcType), priceSource).Inc()
	if b.RequiresManualReview {
		metrics.PricingManualReviewTotal.WithLabelValues(string(calcType)).Inc()
	}
	if appliedMin != nil {
		metrics.PricingCapsAppliedTotal.WithLabelValues("min").Inc()
	}
	if appliedMax != nil {
		metrics.PricingCapsAppliedTotal.WithLabelValues("max").Inc()
	}

	return &models.PricingResult{
		FinalPrice:           final,
		Breakdown:            b,
		AuditLogID:           audit.ID,
		RequiresManualReview: b.RequiresManualReview,
		MarketSnapshotID:     market.SnapshotID,
	}, nil
}

// lookupTier resolves a grade name. An unrecognized name is not an error: it is
// recorded as a warning and treated as a neutral adjustment.
func (e *PricingEngine) lookupTier(ctx context.Context, name, side string, b *models.PricingBreakdown) (*models.ConditionTier, error) {
	tier, err := e.conditions.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		metrics.UnknownConditionsTotal.Inc()
		logger.Warnf("Pricing engine: unknown %s condition %q, using neutral adjustment", side, name)
		b.Warnings = append(b.Warnings, fmt.Sprintf("unknown %s condition %q: adjustment 1.0 used", side, name))
	}
	return tier, nil
}

// conditionAdjustment blends the media and sleeve multipliers by the policy weights.
// It is exactly 1.0 when the policy disables condition adjustment.
func conditionAdjustment(media, sleeve *models.ConditionTier, policy *models.PricingPolicy, b *models.PricingBreakdown) float64 {
	if !policy.ApplyConditionAdjustment {
		return 1.0
	}
	mediaAdj, sleeveAdj := 1.0, 1.0
	if media != nil {
		mediaAdj = media.MediaAdjustment
	}
	if sleeve != nil {
		sleeveAdj = sleeve.SleeveAdjustment
	}
	b.MediaAdjustment = mediaAdj
	b.SleeveAdjustment = sleeveAdj
	return mediaAdj*policy.MediaWeight + sleeveAdj*policy.SleeveWeight
}

// policyDiscountMultiplier folds the per-condition discounts of the media and sleeve
// grades into one multiplier. It returns nil when neither grade has a discount row.
func (e *PricingEngine) policyDiscountMultiplier(ctx context.Context, media, sleeve *models.ConditionTier, policy *models.PricingPolicy, calcType models.CalculationType) (*models.PolicyDiscountBreakdown, error) {
	var out models.PolicyDiscountBreakdown
	out.Multiplier = 1.0
	found := false

	for i, tier := range []*models.ConditionTier{media, sleeve} {
		if tier == nil {
			continue
		}
		d, err := e.policies.DiscountFor(ctx, policy.ID, tier.ID)
		if err != nil {
			return nil, err
		}
		if d == nil {
			continue
		}
		pct := d.PercentageFor(calcType)
		out.Multiplier *= 1 - pct/100
		found = true
		if i == 0 {
			out.MediaPercentage = &pct
		} else {
			out.SleevePercentage = &pct
		}
	}

	if !found {
		return nil, nil
	}
	return &out, nil
}
