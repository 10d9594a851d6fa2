package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// PricingBreakdown records every intermediate value of one calculation
type PricingBreakdown struct {
	CalculationType CalculationType `json:"calculation_type"`
	PolicyID        string          `json:"policy_id"`
	PolicyVersion   int             `json:"policy_version"`

	MarketSource     MarketSource  `json:"market_source"`
	ResolvedSource   *MarketSource `json:"resolved_source"`
	MarketStat       MarketStat    `json:"market_stat"`
	BaseMarketPrice  *float64      `json:"base_market_price"`
	MarketSnapshotID *string       `json:"market_snapshot_id"`
	LiveFetch        bool          `json:"live_fetch"`

	FormulaPercentage float64 `json:"formula_percentage"`

	ConditionMedia           string  `json:"condition_media"`
	ConditionSleeve          string  `json:"condition_sleeve"`
	ApplyConditionAdjustment bool    `json:"apply_condition_adjustment"`
	MediaAdjustment          float64 `json:"media_adjustment"`
	SleeveAdjustment         float64 `json:"sleeve_adjustment"`
	MediaWeight              float64 `json:"media_weight"`
	SleeveWeight             float64 `json:"sleeve_weight"`
	ConditionAdjustment      float64 `json:"condition_adjustment"`

	PolicyDiscount  *PolicyDiscountBreakdown `json:"policy_discount"`
	ConditionFactor float64                  `json:"condition_factor"`

	// FallbackPrice is set when no market price was usable
	FallbackPrice       *float64 `json:"fallback_price"`
	PriceBeforeRounding float64  `json:"price_before_rounding"`
	RoundingIncrement   float64  `json:"rounding_increment"`
	PriceAfterRounding  float64  `json:"price_after_rounding"`

	AppliedCaps AppliedCaps `json:"applied_caps"`
	FinalPrice  float64     `json:"final_price"`

	RequiresManualReview bool     `json:"requires_manual_review"`
	Warnings             []string `json:"warnings,omitempty"`
}

// PolicyDiscountBreakdown shows which per-condition discounts fed the multiplier
type PolicyDiscountBreakdown struct {
	MediaPercentage  *float64 `json:"media_percentage"`
	SleevePercentage *float64 `json:"sleeve_percentage"`
	Multiplier       float64  `json:"multiplier"`
}

// AppliedCaps lists caps that changed the price; PriceAfterCaps is always set
type AppliedCaps struct {
	MinCap         *float64 `json:"min_cap"`
	MaxCap         *float64 `json:"max_cap"`
	PriceAfterCaps float64  `json:"price_after_caps"`
}

// Recompute replays the recorded intermediate values and returns the final price they imply
func (b *PricingBreakdown) Recompute() float64 {
	var before float64
	switch {
	case b.BaseMarketPrice != nil && *b.BaseMarketPrice > 0:
		before = *b.BaseMarketPrice * b.FormulaPercentage * b.ConditionFactor
	case b.FallbackPrice != nil:
		before = *b.FallbackPrice
	}
	price, _, _ := ApplyCaps(RoundToIncrement(before, b.RoundingIncrement), b.AppliedCaps.MinCap, b.AppliedCaps.MaxCap)
	return price
}

// RoundToIncrement rounds half-up to the nearest increment. A non-positive increment disables rounding.
func RoundToIncrement(price, increment float64) float64 {
	if increment <= 0 {
		return price
	}
	return trimFloat(math.Round(price/increment) * increment)
}

// ApplyCaps raises to minCap then lowers to maxCap, reporting which cap fired
func ApplyCaps(price float64, minCap, maxCap *float64) (result float64, appliedMin, appliedMax *float64) {
	result = price
	if minCap != nil && result < *minCap {
		result = *minCap
		appliedMin = floatPtr(*minCap)
	}
	if maxCap != nil && result > *maxCap {
		result = *maxCap
		appliedMax = floatPtr(*maxCap)
	}
	return result, appliedMin, appliedMax
}

// trimFloat drops binary noise below a millionth (0.1*3 -> 0.3)
func trimFloat(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// PricingCalculationAudit is the append-only record of one engine invocation
type PricingCalculationAudit struct {
	ID                   string           `json:"id" gorm:"primaryKey"`
	ReleaseID            string           `json:"release_id" gorm:"not null;index"`
	PolicyID             string           `json:"policy_id" gorm:"not null;index"`
	PolicyVersion        int              `json:"policy_version"`
	MarketSnapshotID     *string          `json:"market_snapshot_id"`
	CalculationType      CalculationType  `json:"calculation_type" gorm:"not null"`
	ConditionMedia       string           `json:"condition_media"`
	ConditionSleeve      string           `json:"condition_sleeve"`
	MarketPrice          *float64         `json:"market_price"`
	CalculatedPrice      float64          `json:"calculated_price"`
	RequiresManualReview bool             `json:"requires_manual_review"`
	Breakdown            PricingBreakdown `json:"breakdown" gorm:"serializer:json;type:text"`
	CreatedAt            time.Time        `json:"created_at" gorm:"index"`
}

// BeforeUpdate blocks every update path through gorm
func (a *PricingCalculationAudit) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditImmutable
}

// BeforeDelete blocks every delete path through gorm
func (a *PricingCalculationAudit) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditImmutable
}

// AuditPage is one page of audit records, newest first
type AuditPage struct {
	Items  []PricingCalculationAudit `json:"items"`
	Total  int64                     `json:"total"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

// AuditVerification compares a stored price with a replay of its breakdown
type AuditVerification struct {
	AuditID         string  `json:"audit_id"`
	StoredPrice     float64 `json:"stored_price"`
	RecomputedPrice float64 `json:"recomputed_price"`
	Matches         bool    `json:"matches"`
}
