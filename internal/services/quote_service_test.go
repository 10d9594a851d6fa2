package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/vinyl-exchange/internal/models"
	"github.com/codyseavey/vinyl-exchange/internal/testutil"
)

func TestQuoteWritesTwoAudits(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	release := testutil.CreateRelease(t, env.db, "Jazz")
	testutil.CreateSnapshot(t, env.db, release.ID, models.MarketSourceDiscogs, nil, testutil.Float(20), nil)
	global := testutil.GlobalPolicy(t, env.db)

	quote, err := env.quotes.Quote(ctx, models.QuoteRequest{
		ReleaseID:       release.ID,
		ConditionMedia:  "NM",
		ConditionSleeve: "NM",
	})
	require.NoError(t, err)

	assert.Equal(t, global.ID, quote.PolicyID)
	assert.InDelta(t, 11.0, quote.BuyOffer, 1e-9)
	assert.InDelta(t, 25.0, quote.SellListPrice, 1e-9)
	assert.False(t, quote.RequiresManualReview)
	assert.Equal(t, models.CalculationBuyOffer, quote.Breakdown.Buy.CalculationType)
	assert.Equal(t, models.CalculationSellPrice, quote.Breakdown.Sell.CalculationType)
	assert.NotEqual(t, quote.AuditLogs.Buy, quote.AuditLogs.Sell)
	assert.Equal(t, int64(2), env.auditCount(t))

	buy, err := env.audits.Get(ctx, quote.AuditLogs.Buy)
	require.NoError(t, err)
	assert.Equal(t, models.CalculationBuyOffer, buy.CalculationType)
	sell, err := env.audits.Get(ctx, quote.AuditLogs.Sell)
	require.NoError(t, err)
	assert.Equal(t, models.CalculationSellPrice, sell.CalculationType)

	_, err = env.quotes.Quote(ctx, models.QuoteRequest{ReleaseID: release.ID, ConditionMedia: "VG", ConditionSleeve: "G"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), env.auditCount(t))
}

func TestQuoteManualReviewIsEitherSide(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	release := testutil.CreateRelease(t, env.db, "Jazz")
	testutil.CreateSnapshot(t, env.db, release.ID, models.MarketSourceDiscogs, nil, testutil.Float(20), nil)
	policy := testutil.CreatePolicy(t, env.db, func(p *models.PricingPolicy) {
		p.Scope = models.PolicyScopeRelease
		p.ScopeValue = testutil.String(release.ID)
		p.BuyMarketSource = models.MarketSourceDiscogs
		p.SellMarketSource = models.MarketSourceEbay
		p.RequiresManualReview = true
	})

	quote, err := env.quotes.Quote(ctx, models.QuoteRequest{ReleaseID: release.ID, ConditionMedia: "NM", ConditionSleeve: "NM"})
	require.NoError(t, err)
	assert.Equal(t, policy.ID, quote.PolicyID)
	assert.False(t, quote.Breakdown.Buy.RequiresManualReview)
	assert.True(t, quote.Breakdown.Sell.RequiresManualReview)
	assert.True(t, quote.RequiresManualReview)
}

func TestQuoteErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	release := testutil.CreateRelease(t, env.db, "Jazz")

	_, err := env.quotes.Quote(ctx, models.QuoteRequest{ReleaseID: "missing", ConditionMedia: "NM", ConditionSleeve: "NM"})
	assert.True(t, errors.Is(err, ErrReleaseNotFound))

	missing := "missing-policy"
	_, err = env.quotes.Quote(ctx, models.QuoteRequest{ReleaseID: release.ID, PolicyID: &missing, ConditionMedia: "NM", ConditionSleeve: "NM"})
	assert.True(t, errors.Is(err, ErrPolicyNotFound))

	assert.Equal(t, int64(0), env.auditCount(t), "failed lookups write no audits")
}

func TestCalculateSingleSide(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	release := testutil.CreateRelease(t, env.db, "Jazz")
	testutil.CreateSnapshot(t, env.db, release.ID, models.MarketSourceDiscogs, nil, testutil.Float(20), nil)

	result, err := env.quotes.Calculate(ctx, models.CalculateRequest{
		ReleaseID:       release.ID,
		ConditionMedia:  "NM",
		ConditionSleeve: "NM",
		CalculationType: models.CalculationSellPrice,
	})
	require.NoError(t, err)
	assert.InDelta(t, 25.0, result.FinalPrice, 1e-9)
	assert.Equal(t, int64(1), env.auditCount(t))

	_, err = env.quotes.Calculate(ctx, models.CalculateRequest{ReleaseID: release.ID, CalculationType: "swap"})
	assert.True(t, models.IsValidationError(err))
}
