package services

import (
	"context"
	"fmt"

	"github.com/codyseavey/vinyl-exchange/internal/models"
)

// QuoteService is the entry point for seller quotes and buyer price display
type QuoteService struct {
	releases *ReleaseService
	policies *PolicyService
	engine   *PricingEngine
}

func NewQuoteService(releases *ReleaseService, policies *PolicyService, engine *PricingEngine) *QuoteService {
	return &QuoteService{
		releases: releases,
		policies: policies,
		engine:   engine,
	}
}

// resolve loads the release and picks its policy
func (s *QuoteService) resolve(ctx context.Context, releaseID string, policyID *string) (*models.Release, *models.PricingPolicy, error) {
	release, err := s.releases.Get(ctx, releaseID)
	if err != nil {
		return nil, nil, err
	}
	policy, err := s.policies.ResolvePolicy(ctx, policyID, release.ID, release.Genre)
	if err != nil {
		return nil, nil, err
	}
	return release, policy, nil
}

// Quote prices both sides of a trade for a release
func (s *QuoteService) Quote(ctx context.Context, req models.QuoteRequest) (*models.QuoteResponse, error) {
	release, policy, err := s.resolve(ctx, req.ReleaseID, req.PolicyID)
	if err != nil {
		return nil, err
	}
	return s.GetFullQuote(ctx, release.ID, policy, req.ConditionMedia, req.ConditionSleeve)
}

// Calculate prices a single side of a trade for a release
func (s *QuoteService) Calculate(ctx context.Context, req models.CalculateRequest) (*models.PricingResult, error) {
	if !req.CalculationType.IsValid() {
		return nil, models.NewValidationError("calculation_type", "calculation_type must be buy_offer or sell_price")
	}
	release, policy, err := s.resolve(ctx, req.ReleaseID, req.PolicyID)
	if err != nil {
		return nil, err
	}
	return s.engine.CalculatePricing(ctx, CalculationInput{
		ReleaseID:       release.ID,
		Policy:          policy,
		ConditionMedia:  req.ConditionMedia,
		ConditionSleeve: req.ConditionSleeve,
		CalculationType: req.CalculationType,
	})
}

// GetFullQuote runs the engine once per calculation type and merges the results.
// Every call writes exactly two audit rows.
func (s *QuoteService) GetFullQuote(ctx context.Context, releaseID string, policy *models.PricingPolicy, media, sleeve string) (*models.QuoteResponse, error) {
	buy, err := s.engine.CalculatePricing(ctx, CalculationInput{
		ReleaseID:       releaseID,
		Policy:          policy,
		ConditionMedia:  media,
		ConditionSleeve: sleeve,
		CalculationType: models.CalculationBuyOffer,
	})
	if err != nil {
		return nil, fmt.Errorf("buy offer: %w", err)
	}
	sell, err := s.engine.CalculatePricing(ctx, CalculationInput{
		ReleaseID:       releaseID,
		Policy:          policy,
		ConditionMedia:  media,
		ConditionSleeve: sleeve,
		CalculationType: models.CalculationSellPrice,
	})
	if err != nil {
		return nil, fmt.Errorf("sell price: %w", err)
	}

	return &models.QuoteResponse{
		ReleaseID:     releaseID,
		PolicyID:      policy.ID,
		PolicyVersion: policy.Version,
		BuyOffer:      buy.FinalPrice,
		SellListPrice: sell.FinalPrice,
		Breakdown: models.QuoteBreakdowns{
			Buy:  buy.Breakdown,
			Sell: sell.Breakdown,
		},
		RequiresManualReview: buy.RequiresManualReview || sell.RequiresManualReview,
		AuditLogs: models.QuoteAuditLogs{
			Buy:  buy.AuditLogID,
			Sell: sell.AuditLogID,
		},
	}, nil
}
