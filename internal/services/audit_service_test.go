package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/vinyl-exchange/internal/models"
	"github.com/codyseavey/vinyl-exchange/internal/testutil"
)

func recordAudits(t *testing.T, env *testEnv, releaseID, policyID string, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		price := float64(i + 1)
		audit, err := env.audits.Record(context.Background(), releaseID, models.PricingBreakdown{
			CalculationType:     models.CalculationBuyOffer,
			PolicyID:            policyID,
			PolicyVersion:       1,
			FallbackPrice:       &price,
			PriceBeforeRounding: price,
			PriceAfterRounding:  price,
			AppliedCaps:         models.AppliedCaps{PriceAfterCaps: price},
			FinalPrice:          price,
			ConditionMedia:      fmt.Sprintf("grade-%d", i),
		})
		require.NoError(t, err)
		ids = append(ids, audit.ID)
	}
	return ids
}

func TestListAuditsPaginates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	release := testutil.CreateRelease(t, env.db, "Jazz")
	other := testutil.CreateRelease(t, env.db, "Rock")
	recordAudits(t, env, release.ID, "policy-a", 5)
	recordAudits(t, env, other.ID, "policy-b", 2)

	page, err := env.audits.ListForRelease(ctx, release.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 2, page.Limit)
	require.Len(t, page.Items, 2)
	assert.False(t, page.Items[0].CreatedAt.Before(page.Items[1].CreatedAt), "newest first")

	page, err = env.audits.ListForRelease(ctx, release.ID, 2, 4)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	page, err = env.audits.ListForRelease(ctx, release.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, page.Limit, "zero limit uses the default")
	assert.Len(t, page.Items, 5)

	page, err = env.audits.ListForRelease(ctx, release.ID, 10000, -3)
	require.NoError(t, err)
	assert.Equal(t, 200, page.Limit, "limit is clamped")
	assert.Equal(t, 0, page.Offset)

	page, err = env.audits.ListForPolicy(ctx, "policy-b", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	for _, item := range page.Items {
		assert.Equal(t, other.ID, item.ReleaseID)
	}

	page, err = env.audits.ListForPolicy(ctx, "nobody", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Total)
	assert.NotNil(t, page.Items)
}

func TestAuditsAreImmutable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	release := testutil.CreateRelease(t, env.db, "Jazz")
	ids := recordAudits(t, env, release.ID, "policy-a", 1)

	audit, err := env.audits.Get(ctx, ids[0])
	require.NoError(t, err)

	audit.CalculatedPrice = 999
	assert.True(t, errors.Is(env.db.Save(audit).Error, models.ErrAuditImmutable))
	assert.True(t, errors.Is(env.db.Model(audit).Update("calculated_price", 999).Error, models.ErrAuditImmutable))
	assert.True(t, errors.Is(env.db.Delete(audit).Error, models.ErrAuditImmutable))

	stored, err := env.audits.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 1.0, stored.CalculatedPrice)
}

func TestVerifyAudit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	release := testutil.CreateRelease(t, env.db, "Jazz")
	ids := recordAudits(t, env, release.ID, "policy-a", 2)

	v, err := env.audits.Verify(ctx, ids[1])
	require.NoError(t, err)
	assert.True(t, v.Matches)
	assert.Equal(t, 2.0, v.RecomputedPrice)

	// A breakdown that does not reproduce its price is reported, not hidden
	price := 3.0
	tampered, err := env.audits.Record(ctx, release.ID, models.PricingBreakdown{
		CalculationType: models.CalculationSellPrice,
		PolicyID:        "policy-a",
		FallbackPrice:   &price,
		FinalPrice:      4.0,
	})
	require.NoError(t, err)
	v, err = env.audits.Verify(ctx, tampered.ID)
	require.NoError(t, err)
	assert.False(t, v.Matches)

	_, err = env.audits.Verify(ctx, "missing")
	assert.True(t, errors.Is(err, ErrAuditNotFound))
}
