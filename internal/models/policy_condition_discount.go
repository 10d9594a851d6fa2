package models

// PolicyConditionDiscount layers an extra percentage discount on a policy for one condition tier
type PolicyConditionDiscount struct {
	ID                     uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	PolicyID               string  `json:"policy_id" gorm:"not null;uniqueIndex:idx_policy_tier"`
	ConditionTierID        uint    `json:"condition_tier_id" gorm:"not null;uniqueIndex:idx_policy_tier"`
	BuyDiscountPercentage  float64 `json:"buy_discount_percentage"`
	SellDiscountPercentage float64 `json:"sell_discount_percentage"`
}

// PercentageFor returns the discount percentage for a calculation type
func (d *PolicyConditionDiscount) PercentageFor(t CalculationType) float64 {
	if t == CalculationSellPrice {
		return d.SellDiscountPercentage
	}
	return d.BuyDiscountPercentage
}

// Validate checks both percentages are within [0, 100]
func (d *PolicyConditionDiscount) Validate() error {
	if d.BuyDiscountPercentage < 0 || d.BuyDiscountPercentage > 100 {
		return NewValidationError("buy_discount_percentage", "discount percentage must be between 0 and 100")
	}
	if d.SellDiscountPercentage < 0 || d.SellDiscountPercentage > 100 {
		return NewValidationError("sell_discount_percentage", "discount percentage must be between 0 and 100")
	}
	return nil
}

// ConditionDiscountInput sets a discount for a tier by name
type ConditionDiscountInput struct {
	Condition              string  `json:"condition" binding:"required"`
	BuyDiscountPercentage  float64 `json:"buy_discount_percentage"`
	SellDiscountPercentage float64 `json:"sell_discount_percentage"`
}

type SetDiscountsRequest struct {
	Discounts []ConditionDiscountInput `json:"discounts"`
}

// ConditionDiscountView is a discount joined with its tier name
type ConditionDiscountView struct {
	Condition              string  `json:"condition"`
	ConditionTierID        uint    `json:"condition_tier_id"`
	BuyDiscountPercentage  float64 `json:"buy_discount_percentage"`
	SellDiscountPercentage float64 `json:"sell_discount_percentage"`
}

// PolicyDetail is a policy together with its per-condition discounts
type PolicyDetail struct {
	PricingPolicy
	Discounts []ConditionDiscountView `json:"discounts"`
}
