package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/vinyl-exchange/internal/models"
	"github.com/codyseavey/vinyl-exchange/internal/testutil"
)

func TestUpsertSnapshot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	release := testutil.CreateRelease(t, env.db, "Jazz")

	first, err := env.market.UpsertSnapshot(ctx, release.ID, models.MarketSourceDiscogs,
		models.MarketStats{StatMedian: testutil.Float(20)}, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	second, err := env.market.UpsertSnapshot(ctx, release.ID, models.MarketSourceDiscogs,
		models.MarketStats{StatLow: testutil.Float(12), StatMedian: testutil.Float(22)}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "one row per release and source")
	require.NotNil(t, second.StatMedian)
	assert.Equal(t, 22.0, *second.StatMedian)
	require.NotNil(t, second.StatLow)
	assert.Equal(t, 12.0, *second.StatLow)
	assert.True(t, second.FetchedAt.After(first.FetchedAt))

	snaps, err := env.market.ListSnapshots(ctx, release.ID)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestUpsertSnapshotRejects(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	release := testutil.CreateRelease(t, env.db, "Jazz")

	_, err := env.market.UpsertSnapshot(ctx, release.ID, models.MarketSourceHybrid, models.MarketStats{}, time.Now())
	assert.True(t, models.IsValidationError(err))

	_, err = env.market.UpsertSnapshot(ctx, release.ID, models.MarketSourceEbay,
		models.MarketStats{StatLow: testutil.Float(-1)}, time.Now())
	assert.True(t, models.IsValidationError(err))

	_, err = env.market.UpsertSnapshot(ctx, "missing", models.MarketSourceEbay, models.MarketStats{}, time.Now())
	assert.True(t, errors.Is(err, ErrReleaseNotFound))
}

func TestResolveMarketPriceSkipsNonPositive(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	release := testutil.CreateRelease(t, env.db, "Jazz")
	testutil.CreateSnapshot(t, env.db, release.ID, models.MarketSourceDiscogs, nil, testutil.Float(0), nil)
	ebay := testutil.CreateSnapshot(t, env.db, release.ID, models.MarketSourceEbay, nil, testutil.Float(14), nil)

	policy := models.DefaultPricingPolicy()
	got, err := env.market.ResolveMarketPrice(ctx, release.ID, &policy, models.CalculationSellPrice)
	require.NoError(t, err)
	require.NotNil(t, got.Price)
	assert.Equal(t, 14.0, *got.Price)
	assert.Equal(t, ebay.ID, *got.SnapshotID)
	assert.Equal(t, models.MarketSourceHybrid, got.ConfiguredFrom)
	assert.Equal(t, models.MarketStatMedian, got.Stat)

	policy.SellMarketStat = models.MarketStatHigh
	got, err = env.market.ResolveMarketPrice(ctx, release.ID, &policy, models.CalculationSellPrice)
	require.NoError(t, err)
	assert.Nil(t, got.Price)
	assert.Nil(t, got.SnapshotID)
	assert.Nil(t, got.Source)
}

func TestRefreshSnapshot(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{
		source: models.MarketSourceDiscogs,
		stats:  &models.MarketStats{StatLow: testutil.Float(5), StatMedian: testutil.Float(9), StatHigh: testutil.Float(30)},
	}
	env := newTestEnv(t, fetcher)
	release := testutil.CreateRelease(t, env.db, "Jazz")

	snap, err := env.market.RefreshSnapshot(ctx, release.ID, models.MarketSourceDiscogs)
	require.NoError(t, err)
	assert.Equal(t, 9.0, *snap.StatMedian)
	assert.Equal(t, []models.MarketSource{models.MarketSourceDiscogs}, env.market.Sources())

	stored, err := env.market.GetSnapshot(ctx, release.ID, models.MarketSourceDiscogs)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, snap.ID, stored.ID)

	_, err = env.market.RefreshSnapshot(ctx, release.ID, models.MarketSourceEbay)
	assert.True(t, errors.Is(err, ErrNoFetcher))

	fetcher.err = errors.New("503 from upstream")
	_, err = env.market.RefreshSnapshot(ctx, release.ID, models.MarketSourceDiscogs)
	assert.Error(t, err, "explicit refresh reports failures")

	_, err = env.market.RefreshSnapshot(ctx, "missing", models.MarketSourceDiscogs)
	assert.True(t, errors.Is(err, ErrReleaseNotFound))
}
