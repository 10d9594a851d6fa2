package models

// CalculateRequest asks for a single buy offer or sell price
type CalculateRequest struct {
	ReleaseID       string          `json:"release_id" binding:"required"`
	PolicyID        *string         `json:"policy_id"`
	ConditionMedia  string          `json:"condition_media" binding:"required"`
	ConditionSleeve string          `json:"condition_sleeve" binding:"required"`
	CalculationType CalculationType `json:"calculation_type" binding:"required"`
}

// QuoteRequest asks for both a buy offer and a sell price
type QuoteRequest struct {
	ReleaseID       string  `json:"release_id" binding:"required"`
	PolicyID        *string `json:"policy_id"`
	ConditionMedia  string  `json:"condition_media" binding:"required"`
	ConditionSleeve string  `json:"condition_sleeve" binding:"required"`
}

// PricingResult is the outcome of one engine invocation
type PricingResult struct {
	FinalPrice           float64          `json:"final_price"`
	Breakdown            PricingBreakdown `json:"breakdown"`
	AuditLogID           string           `json:"audit_log_id"`
	RequiresManualReview bool             `json:"requires_manual_review"`
	MarketSnapshotID     *string          `json:"market_snapshot_id,omitempty"`
}

type QuoteBreakdowns struct {
	Buy  PricingBreakdown `json:"buy"`
	Sell PricingBreakdown `json:"sell"`
}

type QuoteAuditLogs struct {
	Buy  string `json:"buy"`
	Sell string `json:"sell"`
}

// QuoteResponse merges a buy and a sell calculation
type QuoteResponse struct {
	ReleaseID            string          `json:"release_id"`
	PolicyID             string          `json:"policy_id"`
	PolicyVersion        int             `json:"policy_version"`
	BuyOffer             float64         `json:"buy_offer"`
	SellListPrice        float64         `json:"sell_list_price"`
	Breakdown            QuoteBreakdowns `json:"breakdown"`
	RequiresManualReview bool            `json:"requires_manual_review"`
	AuditLogs            QuoteAuditLogs  `json:"audit_logs"`
}
