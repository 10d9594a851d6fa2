// Package metrics provides Prometheus metrics for the vinyl exchange pricing service.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinyl_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vinyl_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Pricing Engine Metrics
	PricingCalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinyl_pricing_calculations_total",
			Help: "Total number of pricing calculations",
		},
		[]string{"type", "price_source"}, // price_source: "snapshot", "live", "fallback"
	)

	PricingManualReviewTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinyl_pricing_manual_review_total",
			Help: "Calculations flagged for manual review",
		},
		[]string{"type"},
	)

	PricingCalculationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vinyl_pricing_calculation_duration_seconds",
			Help:    "Time taken to compute and audit one price",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	PricingCapsAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinyl_pricing_caps_applied_total",
			Help: "Calculations where a min or max cap changed the price",
		},
		[]string{"cap"}, // "min", "max"
	)

	UnknownConditionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vinyl_unknown_conditions_total",
			Help: "Condition names that matched no tier and fell back to a neutral adjustment",
		},
	)

	ConditionCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinyl_condition_cache_lookups_total",
			Help: "Condition tier cache lookups",
		},
		[]string{"result"}, // "hit", "miss"
	)

	AuditRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinyl_audit_records_total",
			Help: "Pricing audit records written",
		},
		[]string{"type"},
	)

	// Market Data Metrics
	MarketRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinyl_market_requests_total",
			Help: "Requests made to external market data APIs",
		},
		[]string{"source", "result"}, // result: "success", "failed", "empty"
	)

	MarketRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vinyl_market_request_duration_seconds",
			Help:    "External market data API latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"source"},
	)

	LiveFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinyl_market_live_fetch_total",
			Help: "Last-resort live market lookups made during pricing",
		},
		[]string{"source", "result"},
	)

	// Snapshot Refresh Metrics
	SnapshotRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinyl_snapshot_refresh_total",
			Help: "Market snapshot refresh attempts",
		},
		[]string{"source", "result"},
	)

	SnapshotRefreshBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vinyl_snapshot_refresh_batch_duration_seconds",
			Help:    "Time taken to process a snapshot refresh batch",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 300},
		},
	)

	StaleSnapshots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vinyl_stale_snapshots",
			Help: "Release/source pairs with a missing or stale snapshot at the last refresh",
		},
	)
)
