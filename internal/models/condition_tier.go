package models

import (
	"strings"
)

// ConditionTier is a grading level with separate media and sleeve multipliers.
// Order runs from best (lowest) to worst (highest).
type ConditionTier struct {
	ID               uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	Name             string  `json:"name" gorm:"not null;uniqueIndex"`
	Description      string  `json:"description"`
	Order            int     `json:"order" gorm:"column:display_order;not null"`
	MediaAdjustment  float64 `json:"media_adjustment" gorm:"not null;default:1"`
	SleeveAdjustment float64 `json:"sleeve_adjustment" gorm:"not null;default:1"`
}

// Validate checks tier field constraints
func (t *ConditionTier) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return NewValidationError("name", "condition tier name must not be empty")
	}
	if t.MediaAdjustment <= 0 {
		return NewValidationError("media_adjustment", "media adjustment must be positive")
	}
	if t.SleeveAdjustment <= 0 {
		return NewValidationError("sleeve_adjustment", "sleeve adjustment must be positive")
	}
	return nil
}

// conditionAliases maps common grading shorthands and spellings to tier names
var conditionAliases = map[string]string{
	"m":              "Mint",
	"mint":           "Mint",
	"nm":             "NM",
	"near mint":      "NM",
	"m-":             "NM",
	"vg+":            "VG+",
	"very good plus": "VG+",
	"vg":             "VG",
	"very good":      "VG",
	"g+":             "G+",
	"good plus":      "G+",
	"g":              "G",
	"good":           "G",
	"p":              "Poor",
	"f":              "Poor",
	"fair":           "Poor",
	"poor":           "Poor",
}

// NormalizeConditionName maps a caller-supplied grade to its canonical tier name.
// Unknown names are returned trimmed but otherwise untouched.
func NormalizeConditionName(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if name, ok := conditionAliases[strings.ToLower(trimmed)]; ok {
		return name
	}
	return trimmed
}

// DefaultConditionTiers is the Goldmine-style grading table seeded on first start
func DefaultConditionTiers() []ConditionTier {
	return []ConditionTier{
		{Name: "Mint", Description: "Unplayed, perfect", Order: 1, MediaAdjustment: 1.15, SleeveAdjustment: 1.10},
		{Name: "NM", Description: "Near Mint, nearly perfect", Order: 2, MediaAdjustment: 1.00, SleeveAdjustment: 1.00},
		{Name: "VG+", Description: "Very Good Plus, light signs of play", Order: 3, MediaAdjustment: 0.80, SleeveAdjustment: 0.85},
		{Name: "VG", Description: "Very Good, noticeable surface noise and wear", Order: 4, MediaAdjustment: 0.60, SleeveAdjustment: 0.70},
		{Name: "G+", Description: "Good Plus, plays through with noise", Order: 5, MediaAdjustment: 0.45, SleeveAdjustment: 0.55},
		{Name: "G", Description: "Good, heavy wear", Order: 6, MediaAdjustment: 0.35, SleeveAdjustment: 0.45},
		{Name: "Poor", Description: "Poor or Fair, damaged", Order: 7, MediaAdjustment: 0.30, SleeveAdjustment: 0.30},
	}
}
