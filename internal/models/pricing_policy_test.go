package models

import (
	"testing"
)

func strPtr(s string) *string { return &s }

func TestPricingPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *PricingPolicy)
		wantErr bool
		field   string
	}{
		{"default policy is valid", func(p *PricingPolicy) {}, false, ""},
		{"genre scope with value", func(p *PricingPolicy) {
			p.Scope = PolicyScopeGenre
			p.ScopeValue = strPtr("Jazz")
		}, false, ""},
		{"genre scope without value", func(p *PricingPolicy) { p.Scope = PolicyScopeGenre }, true, "scope_value"},
		{"release scope with blank value", func(p *PricingPolicy) {
			p.Scope = PolicyScopeRelease
			p.ScopeValue = strPtr("  ")
		}, true, "scope_value"},
		{"unknown scope", func(p *PricingPolicy) { p.Scope = "label" }, true, "scope"},
		{"unknown buy source", func(p *PricingPolicy) { p.BuyMarketSource = "amazon" }, true, "buy_market_source"},
		{"unknown sell stat", func(p *PricingPolicy) { p.SellMarketStat = "mean" }, true, "sell_market_stat"},
		{"buy percentage zero", func(p *PricingPolicy) { p.BuyPercentage = 0 }, true, "buy_percentage"},
		{"buy percentage one", func(p *PricingPolicy) { p.BuyPercentage = 1 }, false, ""},
		{"buy percentage above one", func(p *PricingPolicy) { p.BuyPercentage = 1.01 }, true, "buy_percentage"},
		{"sell percentage below one", func(p *PricingPolicy) { p.SellPercentage = 0.99 }, true, "sell_percentage"},
		{"sell percentage three", func(p *PricingPolicy) { p.SellPercentage = 3 }, false, ""},
		{"sell percentage above three", func(p *PricingPolicy) { p.SellPercentage = 3.5 }, true, "sell_percentage"},
		{"weights off by more than tolerance", func(p *PricingPolicy) {
			p.MediaWeight = 0.7
			p.SleeveWeight = 0.4
		}, true, "media_weight"},
		{"weights within tolerance", func(p *PricingPolicy) {
			p.MediaWeight = 0.6005
			p.SleeveWeight = 0.4
		}, false, ""},
		{"negative weight", func(p *PricingPolicy) {
			p.MediaWeight = 1.2
			p.SleeveWeight = -0.2
		}, true, "media_weight"},
		{"zero rounding increment", func(p *PricingPolicy) { p.RoundingIncrement = 0 }, true, "rounding_increment"},
		{"min cap above max cap", func(p *PricingPolicy) {
			p.BuyMinCap = floatPtr(10)
			p.BuyMaxCap = floatPtr(5)
		}, true, "buy_min_cap"},
		{"negative sell max cap", func(p *PricingPolicy) { p.SellMaxCap = floatPtr(-1) }, true, "sell_max_cap"},
		{"empty name", func(p *PricingPolicy) { p.Name = "" }, true, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPricingPolicy()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Validate() returned %T, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Validate() field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestPricingPolicyNormalize(t *testing.T) {
	p := DefaultPricingPolicy()
	p.ScopeValue = strPtr("Rock")
	p.Normalize()
	if p.ScopeValue != nil {
		t.Errorf("global policy should have nil scope value, got %q", *p.ScopeValue)
	}

	p.Scope = PolicyScopeGenre
	p.ScopeValue = strPtr("  Jazz ")
	p.Normalize()
	if p.ScopeValue == nil || *p.ScopeValue != "Jazz" {
		t.Errorf("scope value should be trimmed to Jazz, got %v", p.ScopeValue)
	}
}

func TestPricingPolicySelectors(t *testing.T) {
	p := DefaultPricingPolicy()
	p.BuyMarketSource = MarketSourceDiscogs
	p.SellMarketSource = MarketSourceEbay
	p.BuyMarketStat = MarketStatLow
	p.SellMarketStat = MarketStatHigh
	p.BuyMinCap = floatPtr(1)
	p.SellMaxCap = floatPtr(500)

	if p.SourceFor(CalculationBuyOffer) != MarketSourceDiscogs || p.SourceFor(CalculationSellPrice) != MarketSourceEbay {
		t.Error("SourceFor returned the wrong source")
	}
	if p.StatFor(CalculationBuyOffer) != MarketStatLow || p.StatFor(CalculationSellPrice) != MarketStatHigh {
		t.Error("StatFor returned the wrong stat")
	}
	if p.PercentageFor(CalculationBuyOffer) != 0.55 || p.PercentageFor(CalculationSellPrice) != 1.25 {
		t.Error("PercentageFor returned the wrong percentage")
	}
	minCap, maxCap := p.CapsFor(CalculationBuyOffer)
	if minCap == nil || *minCap != 1 || maxCap != nil {
		t.Errorf("CapsFor(buy) = %v, %v", minCap, maxCap)
	}
	minCap, maxCap = p.CapsFor(CalculationSellPrice)
	if minCap != nil || maxCap == nil || *maxCap != 500 {
		t.Errorf("CapsFor(sell) = %v, %v", minCap, maxCap)
	}
}

func TestPolicyRequestApplyTo(t *testing.T) {
	p := DefaultPricingPolicy()
	p.BuyMinCap = floatPtr(2)
	p.SellMaxCap = floatPtr(100)

	pct := 0.4
	active := false
	req := PolicyRequest{
		BuyPercentage: &pct,
		IsActive:      &active,
		ClearCaps:     []string{"buy_min_cap"},
	}
	if err := req.ApplyTo(&p); err != nil {
		t.Fatalf("ApplyTo() error = %v", err)
	}
	if p.BuyPercentage != 0.4 {
		t.Errorf("BuyPercentage = %f, want 0.4", p.BuyPercentage)
	}
	if p.IsActive {
		t.Error("IsActive should be false")
	}
	if p.BuyMinCap != nil {
		t.Error("BuyMinCap should be cleared")
	}
	if p.SellMaxCap == nil || *p.SellMaxCap != 100 {
		t.Error("SellMaxCap should be untouched")
	}

	bad := PolicyRequest{ClearCaps: []string{"everything"}}
	if err := bad.ApplyTo(&p); !IsValidationError(err) {
		t.Errorf("unknown cap should be a validation error, got %v", err)
	}
}

func TestPolicyConditionDiscountValidate(t *testing.T) {
	tests := []struct {
		name    string
		buy     float64
		sell    float64
		wantErr bool
	}{
		{"zero", 0, 0, false},
		{"full", 100, 100, false},
		{"negative buy", -1, 0, true},
		{"sell over 100", 0, 100.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := PolicyConditionDiscount{BuyDiscountPercentage: tt.buy, SellDiscountPercentage: tt.sell}
			if err := d.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
