package models

import (
	"math"
	"strings"
	"time"
)

// PolicyScope is the breadth a pricing policy applies to
type PolicyScope string

const (
	PolicyScopeGlobal  PolicyScope = "global"
	PolicyScopeGenre   PolicyScope = "genre"
	PolicyScopeRelease PolicyScope = "release"
)

// CalculationType selects which side of the trade is priced
type CalculationType string

const (
	CalculationBuyOffer  CalculationType = "buy_offer"
	CalculationSellPrice CalculationType = "sell_price"
)

func (t CalculationType) IsValid() bool {
	return t == CalculationBuyOffer || t == CalculationSellPrice
}

const (
	// weightTolerance is how far media+sleeve weights may drift from 1.0
	weightTolerance = 1e-3

	minSellPercentage = 1.0
	maxSellPercentage = 3.0
)

// PricingPolicy controls every tunable of a price calculation.
// Version increments on every update and is never reset.
type PricingPolicy struct {
	ID          string      `json:"id" gorm:"primaryKey"`
	Name        string      `json:"name" gorm:"not null"`
	Description string      `json:"description"`
	Scope       PolicyScope `json:"scope" gorm:"not null;index:idx_policy_scope"`
	ScopeValue  *string     `json:"scope_value" gorm:"index:idx_policy_scope"`

	BuyMarketSource  MarketSource `json:"buy_market_source" gorm:"not null"`
	SellMarketSource MarketSource `json:"sell_market_source" gorm:"not null"`
	BuyMarketStat    MarketStat   `json:"buy_market_stat" gorm:"not null"`
	SellMarketStat   MarketStat   `json:"sell_market_stat" gorm:"not null"`

	BuyPercentage  float64 `json:"buy_percentage"`
	SellPercentage float64 `json:"sell_percentage"`

	BuyMinCap  *float64 `json:"buy_min_cap"`
	BuyMaxCap  *float64 `json:"buy_max_cap"`
	SellMinCap *float64 `json:"sell_min_cap"`
	SellMaxCap *float64 `json:"sell_max_cap"`

	ApplyConditionAdjustment bool    `json:"apply_condition_adjustment"`
	MediaWeight              float64 `json:"media_weight"`
	SleeveWeight             float64 `json:"sleeve_weight"`

	RoundingIncrement    float64 `json:"rounding_increment"`
	RequiresManualReview bool    `json:"requires_manual_review"`
	Version              int     `json:"version" gorm:"not null"`
	IsActive             bool    `json:"is_active" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultPricingPolicy returns the baseline used for new policies and the seeded global fallback
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		Name:                     "Default",
		Scope:                    PolicyScopeGlobal,
		BuyMarketSource:          MarketSourceHybrid,
		SellMarketSource:         MarketSourceHybrid,
		BuyMarketStat:            MarketStatMedian,
		SellMarketStat:           MarketStatMedian,
		BuyPercentage:            0.55,
		SellPercentage:           1.25,
		ApplyConditionAdjustment: true,
		MediaWeight:              0.6,
		SleeveWeight:             0.4,
		RoundingIncrement:        0.25,
		RequiresManualReview:     true,
		Version:                  1,
		IsActive:                 true,
	}
}

// Normalize trims the scope value and clears it on global policies
func (p *PricingPolicy) Normalize() {
	if p.ScopeValue != nil {
		v := strings.TrimSpace(*p.ScopeValue)
		if v == "" {
			p.ScopeValue = nil
		} else {
			p.ScopeValue = &v
		}
	}
	if p.Scope == PolicyScopeGlobal {
		p.ScopeValue = nil
	}
}

// Validate checks policy constraints
func (p *PricingPolicy) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", "policy name must not be empty")
	}
	switch p.Scope {
	case PolicyScopeGlobal:
	case PolicyScopeGenre, PolicyScopeRelease:
		if p.ScopeValue == nil || strings.TrimSpace(*p.ScopeValue) == "" {
			return NewValidationError("scope_value", "scope value is required for "+string(p.Scope)+" scope")
		}
	default:
		return NewValidationError("scope", "scope must be one of: global, genre, release")
	}

	if !p.BuyMarketSource.IsValid() {
		return NewValidationError("buy_market_source", "market source must be one of: discogs, ebay, hybrid")
	}
	if !p.SellMarketSource.IsValid() {
		return NewValidationError("sell_market_source", "market source must be one of: discogs, ebay, hybrid")
	}
	if !p.BuyMarketStat.IsValid() {
		return NewValidationError("buy_market_stat", "market stat must be one of: low, median, high")
	}
	if !p.SellMarketStat.IsValid() {
		return NewValidationError("sell_market_stat", "market stat must be one of: low, median, high")
	}

	if p.BuyPercentage <= 0 || p.BuyPercentage > 1 {
		return NewValidationError("buy_percentage", "buy percentage must be greater than 0 and at most 1")
	}
	if p.SellPercentage < minSellPercentage || p.SellPercentage > maxSellPercentage {
		return NewValidationError("sell_percentage", "sell percentage must be between 1 and 3")
	}

	if err := validateCaps("buy", p.BuyMinCap, p.BuyMaxCap); err != nil {
		return err
	}
	if err := validateCaps("sell", p.SellMinCap, p.SellMaxCap); err != nil {
		return err
	}

	if p.MediaWeight < 0 || p.SleeveWeight < 0 {
		return NewValidationError("media_weight", "weights must not be negative")
	}
	if math.Abs(p.MediaWeight+p.SleeveWeight-1.0) > weightTolerance {
		return NewValidationError("media_weight", "media weight and sleeve weight must sum to 1.0")
	}

	if p.RoundingIncrement <= 0 {
		return NewValidationError("rounding_increment", "rounding increment must be positive")
	}
	return nil
}

func validateCaps(side string, minCap, maxCap *float64) error {
	if minCap != nil && *minCap < 0 {
		return NewValidationError(side+"_min_cap", "caps must not be negative")
	}
	if maxCap != nil && *maxCap < 0 {
		return NewValidationError(side+"_max_cap", "caps must not be negative")
	}
	if minCap != nil && maxCap != nil && *minCap > *maxCap {
		return NewValidationError(side+"_min_cap", "min cap must not exceed max cap")
	}
	return nil
}

// SourceFor returns the configured market source for a calculation type
func (p *PricingPolicy) SourceFor(t CalculationType) MarketSource {
	if t == CalculationSellPrice {
		return p.SellMarketSource
	}
	return p.BuyMarketSource
}

// StatFor returns the configured market statistic for a calculation type
func (p *PricingPolicy) StatFor(t CalculationType) MarketStat {
	if t == CalculationSellPrice {
		return p.SellMarketStat
	}
	return p.BuyMarketStat
}

// PercentageFor returns the formula multiplier for a calculation type
func (p *PricingPolicy) PercentageFor(t CalculationType) float64 {
	if t == CalculationSellPrice {
		return p.SellPercentage
	}
	return p.BuyPercentage
}

// CapsFor returns the min and max caps for a calculation type
func (p *PricingPolicy) CapsFor(t CalculationType) (minCap, maxCap *float64) {
	if t == CalculationSellPrice {
		return p.SellMinCap, p.SellMaxCap
	}
	return p.BuyMinCap, p.BuyMaxCap
}

// PolicyRequest creates or patches a policy. Nil fields keep the current value.
type PolicyRequest struct {
	Name                     *string       `json:"name"`
	Description              *string       `json:"description"`
	Scope                    *PolicyScope  `json:"scope"`
	ScopeValue               *string       `json:"scope_value"`
	BuyMarketSource          *MarketSource `json:"buy_market_source"`
	SellMarketSource         *MarketSource `json:"sell_market_source"`
	BuyMarketStat            *MarketStat   `json:"buy_market_stat"`
	SellMarketStat           *MarketStat   `json:"sell_market_stat"`
	BuyPercentage            *float64      `json:"buy_percentage"`
	SellPercentage           *float64      `json:"sell_percentage"`
	BuyMinCap                *float64      `json:"buy_min_cap"`
	BuyMaxCap                *float64      `json:"buy_max_cap"`
	SellMinCap               *float64      `json:"sell_min_cap"`
	SellMaxCap               *float64      `json:"sell_max_cap"`
	ApplyConditionAdjustment *bool         `json:"apply_condition_adjustment"`
	MediaWeight              *float64      `json:"media_weight"`
	SleeveWeight             *float64      `json:"sleeve_weight"`
	RoundingIncrement        *float64      `json:"rounding_increment"`
	RequiresManualReview     *bool         `json:"requires_manual_review"`
	IsActive                 *bool         `json:"is_active"`
	// ClearCaps removes caps by name: buy_min_cap, buy_max_cap, sell_min_cap, sell_max_cap
	ClearCaps []string `json:"clear_caps"`
}

// ApplyTo copies every set field onto p
func (r *PolicyRequest) ApplyTo(p *PricingPolicy) error {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Scope != nil {
		p.Scope = *r.Scope
	}
	if r.ScopeValue != nil {
		v := *r.ScopeValue
		p.ScopeValue = &v
	}
	if r.BuyMarketSource != nil {
		p.BuyMarketSource = *r.BuyMarketSource
	}
	if r.SellMarketSource != nil {
		p.SellMarketSource = *r.SellMarketSource
	}
	if r.BuyMarketStat != nil {
		p.BuyMarketStat = *r.BuyMarketStat
	}
	if r.SellMarketStat != nil {
		p.SellMarketStat = *r.SellMarketStat
	}
	if r.BuyPercentage != nil {
		p.BuyPercentage = *r.BuyPercentage
	}
	if r.SellPercentage != nil {
		p.SellPercentage = *r.SellPercentage
	}
	if r.BuyMinCap != nil {
		p.BuyMinCap = floatPtr(*r.BuyMinCap)
	}
	if r.BuyMaxCap != nil {
		p.BuyMaxCap = floatPtr(*r.BuyMaxCap)
	}
	if r.SellMinCap != nil {
		p.SellMinCap = floatPtr(*r.SellMinCap)
	}
	if r.SellMaxCap != nil {
		p.SellMaxCap = floatPtr(*r.SellMaxCap)
	}
	if r.ApplyConditionAdjustment != nil {
		p.ApplyConditionAdjustment = *r.ApplyConditionAdjustment
	}
	if r.MediaWeight != nil {
		p.MediaWeight = *r.MediaWeight
	}
	if r.SleeveWeight != nil {
		p.SleeveWeight = *r.SleeveWeight
	}
	if r.RoundingIncrement != nil {
		p.RoundingIncrement = *r.RoundingIncrement
	}
	if r.RequiresManualReview != nil {
		p.RequiresManualReview = *r.RequiresManualReview
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	for _, name := range r.ClearCaps {
		switch name {
		case "buy_min_cap":
			p.BuyMinCap = nil
		case "buy_max_cap":
			p.BuyMaxCap = nil
		case "sell_min_cap":
			p.SellMinCap = nil
		case "sell_max_cap":
			p.SellMaxCap = nil
		default:
			return NewValidationError("clear_caps", "unknown cap "+name)
		}
	}
	return nil
}

func floatPtr(v float64) *float64 {
	return &v
}
