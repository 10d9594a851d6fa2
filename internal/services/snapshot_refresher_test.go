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

func TestRefreshBatch(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{
		source: models.MarketSourceDiscogs,
		stats:  &models.MarketStats{StatMedian: testutil.Float(18)},
	}
	env := newTestEnv(t, fetcher)
	first := testutil.CreateRelease(t, env.db, "Jazz")
	second := testutil.CreateRelease(t, env.db, "Rock")

	refresher := NewSnapshotRefresher(env.market, env.releases, RefresherOptions{
		StaleAfter: time.Hour,
		BatchSize:  10,
	})

	updated, err := refresher.RefreshBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, updated, "missing snapshots are refreshed")
	assert.Equal(t, 2, fetcher.callCount())

	for _, id := range []string{first.ID, second.ID} {
		snap, err := env.market.GetSnapshot(ctx, id, models.MarketSourceDiscogs)
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, 18.0, *snap.StatMedian)
	}

	updated, err = refresher.RefreshBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, updated, "fresh snapshots are left alone")

	// Age one snapshot past the cutoff
	require.NoError(t, env.db.Model(&models.MarketSnapshot{}).
		Where("release_id = ?", first.ID).
		Update("fetched_at", time.Now().Add(-2*time.Hour)).Error)
	updated, err = refresher.RefreshBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	assert.Equal(t, 1, refresher.QueueRefresh(second.ID))
	assert.Equal(t, 1, refresher.QueueRefresh(second.ID), "queueing twice keeps one entry")
	updated, err = refresher.RefreshBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated, "queued releases refresh even when fresh")
	assert.Equal(t, 0, refresher.GetQueueSize())

	status := refresher.GetStatus()
	assert.Equal(t, 1, status.LastRunUpdated)
	assert.False(t, status.Running)
	assert.Empty(t, status.Failed)
}

func TestRefreshBatchRecordsFailures(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{source: models.MarketSourceDiscogs, err: errors.New("rate limited")}
	env := newTestEnv(t, fetcher)
	release := testutil.CreateRelease(t, env.db, "Jazz")

	refresher := NewSnapshotRefresher(env.market, env.releases, RefresherOptions{})
	updated, err := refresher.RefreshBatch(ctx)
	require.NoError(t, err, "individual failures do not fail the batch")
	assert.Equal(t, 0, updated)

	status := refresher.GetStatus()
	require.Len(t, status.Failed, 1)
	assert.Equal(t, release.ID, status.Failed[0].ReleaseID)
	assert.Equal(t, models.MarketSourceDiscogs, status.Failed[0].Source)
	assert.Contains(t, status.Failed[0].Reason, "rate limited")
}

func TestRefreshBatchWithoutClients(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateRelease(t, env.db, "Jazz")

	refresher := NewSnapshotRefresher(env.market, env.releases, RefresherOptions{})
	updated, err := refresher.RefreshBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func TestSnapshotRefresherStartRejectsBadSchedule(t *testing.T) {
	env := newTestEnv(t)
	refresher := NewSnapshotRefresher(env.market, env.releases, RefresherOptions{Schedule: "every now and then"})
	assert.Error(t, refresher.Start(context.Background()))
}
