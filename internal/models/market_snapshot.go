package models

import (
	"math"
	"time"
)

// MarketSource identifies where market data comes from
type MarketSource string

const (
	MarketSourceDiscogs MarketSource = "discogs"
	MarketSourceEbay    MarketSource = "ebay"
	// MarketSourceHybrid tries discogs first, then ebay. Only valid on policies.
	MarketSourceHybrid MarketSource = "hybrid"
)

// MarketStat selects which observed statistic to price from
type MarketStat string

const (
	MarketStatLow    MarketStat = "low"
	MarketStatMedian MarketStat = "median"
	MarketStatHigh   MarketStat = "high"
)

// IsValid reports whether the source is usable on a policy
func (s MarketSource) IsValid() bool {
	return s == MarketSourceDiscogs || s == MarketSourceEbay || s == MarketSourceHybrid
}

// IsSnapshotSource reports whether a snapshot can be stored under this source
func (s MarketSource) IsSnapshotSource() bool {
	return s == MarketSourceDiscogs || s == MarketSourceEbay
}

// Chain returns the concrete sources to try, in order
func (s MarketSource) Chain() []MarketSource {
	if s == MarketSourceHybrid {
		return []MarketSource{MarketSourceDiscogs, MarketSourceEbay}
	}
	return []MarketSource{s}
}

func (s MarketStat) IsValid() bool {
	return s == MarketStatLow || s == MarketStatMedian || s == MarketStatHigh
}

// MarketStats holds low/median/high observed prices; any may be absent
type MarketStats struct {
	StatLow    *float64 `json:"stat_low"`
	StatMedian *float64 `json:"stat_median"`
	StatHigh   *float64 `json:"stat_high"`
}

// Value returns the requested statistic, or nil when absent
func (m MarketStats) Value(stat MarketStat) *float64 {
	switch stat {
	case MarketStatLow:
		return m.StatLow
	case MarketStatMedian:
		return m.StatMedian
	case MarketStatHigh:
		return m.StatHigh
	default:
		return nil
	}
}

// Validate rejects negative and non-finite prices
func (m MarketStats) Validate() error {
	fields := []struct {
		name  string
		value *float64
	}{
		{"stat_low", m.StatLow},
		{"stat_median", m.StatMedian},
		{"stat_high", m.StatHigh},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if math.IsInf(*f.value, 0) || math.IsNaN(*f.value) {
			return NewValidationError(f.name, "market prices must be finite")
		}
		if *f.value < 0 {
			return NewValidationError(f.name, "market prices must not be negative")
		}
	}
	return nil
}

// MarketSnapshot is the latest cached market summary for a release from one source.
// One row per (release, source); refreshed by upsert.
type MarketSnapshot struct {
	ID        string       `json:"id" gorm:"primaryKey"`
	ReleaseID string       `json:"release_id" gorm:"not null;uniqueIndex:idx_snapshot_release_source"`
	Source    MarketSource `json:"source" gorm:"not null;uniqueIndex:idx_snapshot_release_source"`
	MarketStats
	FetchedAt time.Time `json:"fetched_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertSnapshotRequest is the body for storing a snapshot
type UpsertSnapshotRequest struct {
	StatLow    *float64   `json:"stat_low"`
	StatMedian *float64   `json:"stat_median"`
	StatHigh   *float64   `json:"stat_high"`
	FetchedAt  *time.Time `json:"fetched_at"`
}
