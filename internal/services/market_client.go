package services

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/codyseavey/vinyl-exchange/internal/metrics"
	"github.com/codyseavey/vinyl-exchange/internal/models"
)

const (
	defaultMarketTimeout  = 10 * time.Second
	defaultRetryWaitTime  = 500 * time.Millisecond
	defaultRetryMaxWait   = 5 * time.Second
	defaultRequestsPerSec = 1.0
)

// MarketDataFetcher fetches live market statistics for a release from one source
type MarketDataFetcher interface {
	Source() models.MarketSource
	FetchStats(ctx context.Context, release *models.Release) (*models.MarketStats, error)
}

// MarketClientOptions configures the HTTP behavior shared by market clients
type MarketClientOptions struct {
	BaseURL           string
	Timeout           time.Duration
	RetryCount        int
	RequestsPerSecond float64
}

// marketClient wraps a retrying resty client behind a rate limiter
type marketClient struct {
	source  models.MarketSource
	client  *resty.Client
	limiter *rate.Limiter
}

func newMarketClient(source models.MarketSource, opts MarketClientOptions) *marketClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultMarketTimeout
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSec
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(defaultRetryWaitTime).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "VinylExchangePricing/1.0").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
		})

	return &marketClient{
		source:  source,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// get performs a rate limited GET and decodes the JSON body into result
func (c *marketClient) get(ctx context.Context, path string, query map[string]string, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limiter: %w", c.source, err)
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(result).
		Get(path)
	metrics.MarketRequestDuration.WithLabelValues(string(c.source)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.MarketRequestsTotal.WithLabelValues(string(c.source), "failed").Inc()
		return fmt.Errorf("%s request failed: %w", c.source, err)
	}
	if resp.IsError() {
		metrics.MarketRequestsTotal.WithLabelValues(string(c.source), "failed").Inc()
		return fmt.Errorf("%s API error: status %d", c.source, resp.StatusCode())
	}

	metrics.MarketRequestsTotal.WithLabelValues(string(c.source), "success").Inc()
	return nil
}

// summarizePrices reduces observed prices to low/median/high. Non-positive and non-finite prices are ignored.
func summarizePrices(prices []float64) *models.MarketStats {
	var valid []float64
	for _, p := range prices {
		if p > 0 && !math.IsInf(p, 0) {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sort.Float64s(valid)

	low := valid[0]
	high := valid[len(valid)-1]
	var median float64
	mid := len(valid) / 2
	if len(valid)%2 == 0 {
		median = (valid[mid-1] + valid[mid]) / 2
	} else {
		median = valid[mid]
	}

	return &models.MarketStats{
		StatLow:    &low,
		StatMedian: &median,
		StatHigh:   &high,
	}
}
