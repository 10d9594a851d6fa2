package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/codyseavey/vinyl-exchange/internal/logger"
	"github.com/codyseavey/vinyl-exchange/internal/metrics"
	"github.com/codyseavey/vinyl-exchange/internal/models"
)

const (
	// defaultRefreshBatchSize is the number of release/source pairs refreshed per run
	defaultRefreshBatchSize = 50
	defaultStaleAfter       = 24 * time.Hour
	defaultRefreshSchedule  = "@every 6h"
)

// FailedRefresh is a release whose snapshot could not be refreshed on the last attempt
type FailedRefresh struct {
	ReleaseID string              `json:"release_id"`
	Source    models.MarketSource `json:"source"`
	Reason    string              `json:"reason"`
	FailedAt  time.Time           `json:"failed_at"`
}

// RefresherOptions configures the snapshot refresher
type RefresherOptions struct {
	Schedule   string
	StaleAfter time.Duration
	BatchSize  int
}

// SnapshotRefresher keeps market snapshots fresh on a cron schedule
type SnapshotRefresher struct {
	market   *MarketService
	releases *ReleaseService

	schedule   string
	staleAfter time.Duration
	batchSize  int

	mu             sync.RWMutex
	lastRunTime    time.Time
	lastRunUpdated int
	running        bool
	failed         []FailedRefresh

	// Releases queued by an operator, refreshed ahead of stale ones
	urgentQueue []string
	urgentMu    sync.Mutex
}

// RefreshStatus reports the refresher's last run
type RefreshStatus struct {
	Schedule       string          `json:"schedule"`
	LastRunTime    time.Time       `json:"last_run_time"`
	LastRunUpdated int             `json:"last_run_updated"`
	BatchSize      int             `json:"batch_size"`
	QueueSize      int             `json:"queue_size"`
	Running        bool            `json:"running"`
	Failed         []FailedRefresh `json:"failed,omitempty"`
}

func NewSnapshotRefresher(market *MarketService, releases *ReleaseService, opts RefresherOptions) *SnapshotRefresher {
	if opts.Schedule == "" {
		opts.Schedule = defaultRefreshSchedule
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = defaultStaleAfter
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultRefreshBatchSize
	}
	return &SnapshotRefresher{
		market:     market,
		releases:   releases,
		schedule:   opts.Schedule,
		staleAfter: opts.StaleAfter,
		batchSize:  opts.BatchSize,
	}
}

// QueueRefresh adds a release to the front of the next run. Returns the queue position.
func (r *SnapshotRefresher) QueueRefresh(releaseID string) int {
	r.urgentMu.Lock()
	defer r.urgentMu.Unlock()

	for i, id := range r.urgentQueue {
		if id == releaseID {
			return i + 1
		}
	}
	r.urgentQueue = append(r.urgentQueue, releaseID)
	logger.Infof("Snapshot refresher: queued release %s (queue size: %d)", releaseID, len(r.urgentQueue))
	return len(r.urgentQueue)
}

// GetQueueSize returns the urgent queue size
func (r *SnapshotRefresher) GetQueueSize() int {
	r.urgentMu.Lock()
	defer r.urgentMu.Unlock()
	return len(r.urgentQueue)
}

// Start runs a batch immediately and then on the cron schedule until ctx is done
func (r *SnapshotRefresher) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(r.schedule, func() {
		if updated, err := r.RefreshBatch(ctx); err != nil {
			logger.Errorf("Snapshot refresher: batch failed: %v", err)
		} else if updated > 0 {
			logger.Infof("Snapshot refresher: refreshed %d snapshots", updated)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", r.schedule, err)
	}

	logger.Infof("Snapshot refresher started: %d snapshots per run, schedule %q, stale after %v",
		r.batchSize, r.schedule, r.staleAfter)

	if updated, err := r.RefreshBatch(ctx); err != nil {
		logger.Errorf("Snapshot refresher: initial batch failed: %v", err)
	} else {
		logger.Infof("Snapshot refresher: initial batch refreshed %d snapshots", updated)
	}

	c.Start()
	<-ctx.Done()
	logger.Infof("Snapshot refresher stopping...")
	<-c.Stop().Done()
	return nil
}

// RefreshBatch refreshes queued releases first, then the stalest snapshots of each
// configured source. Individual failures are recorded and do not stop the batch.
func (r *SnapshotRefresher) RefreshBatch(ctx context.Context) (int, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		logger.Warnf("Snapshot refresher: previous run still in progress, skipping")
		return 0, nil
	}
	r.running = true
	r.mu.Unlock()

	start := time.Now()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		metrics.SnapshotRefreshBatchDuration.Observe(time.Since(start).Seconds())
	}()

	sources := r.market.Sources()
	if len(sources) == 0 {
		logger.Debugf("Snapshot refresher: no market clients configured")
		return 0, nil
	}

	// Priority 1: operator-requested releases
	r.urgentMu.Lock()
	urgent := r.urgentQueue
	if len(urgent) > r.batchSize {
		urgent = urgent[:r.batchSize]
		r.urgentQueue = r.urgentQueue[r.batchSize:]
	} else {
		r.urgentQueue = nil
	}
	r.urgentMu.Unlock()

	type job struct {
		releaseID string
		source    models.MarketSource
	}
	var jobs []job
	for _, id := range urgent {
		for _, src := range sources {
			jobs = append(jobs, job{id, src})
		}
	}

	// Priority 2: missing or stale snapshots, oldest first
	cutoff := time.Now().Add(-r.staleAfter)
	stale := 0
	for _, src := range sources {
		remaining := r.batchSize - len(jobs)
		if remaining <= 0 {
			break
		}
		ids, err := r.releases.StaleSnapshotReleases(ctx, src, cutoff, remaining)
		if err != nil {
			return 0, fmt.Errorf("failed to find stale %s snapshots: %w", src, err)
		}
		stale += len(ids)
		for _, id := range ids {
			jobs = append(jobs, job{id, src})
		}
	}
	metrics.StaleSnapshots.Set(float64(stale))

	if len(jobs) == 0 {
		logger.Debugf("Snapshot refresher: no snapshots to refresh")
		return 0, nil
	}

	updated := 0
	var failed []FailedRefresh
	for _, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		if _, err := r.market.RefreshSnapshot(ctx, j.releaseID, j.source); err != nil {
			logger.Warnf("Snapshot refresher: %s refresh failed for release %s: %v", j.source, j.releaseID, err)
			failed = append(failed, FailedRefresh{
				ReleaseID: j.releaseID,
				Source:    j.source,
				Reason:    err.Error(),
				FailedAt:  time.Now(),
			})
			continue
		}
		updated++
	}

	r.mu.Lock()
	r.lastRunTime = time.Now()
	r.lastRunUpdated = updated
	r.failed = failed
	r.mu.Unlock()

	return updated, nil
}

// GetStatus returns the current status
func (r *SnapshotRefresher) GetStatus() RefreshStatus {
	queueSize := r.GetQueueSize()

	r.mu.RLock()
	defer r.mu.RUnlock()

	return RefreshStatus{
		Schedule:       r.schedule,
		LastRunTime:    r.lastRunTime,
		LastRunUpdated: r.lastRunUpdated,
		BatchSize:      r.batchSize,
		QueueSize:      queueSize,
		Running:        r.running,
		Failed:         r.failed,
	}
}
