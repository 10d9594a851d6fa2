package services

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/codyseavey/vinyl-exchange/internal/models"
	"github.com/codyseavey/vinyl-exchange/internal/testutil"
)

// testEnv is a fully wired service graph on a private database
type testEnv struct {
	db         *gorm.DB
	conditions *ConditionService
	policies   *PolicyService
	releases   *ReleaseService
	market     *MarketService
	audits     *AuditService
	engine     *PricingEngine
	quotes     *QuoteService
}

func newTestEnv(t *testing.T, fetchers ...MarketDataFetcher) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)

	conditions := NewConditionService(db, 0, 0)
	policies := NewPolicyService(db, conditions)
	releases := NewReleaseService(db)
	audits := NewAuditService(db, 50, 200)
	market := NewMarketService(db, releases, true, fetchers...)
	engine := NewPricingEngine(market, conditions, policies, audits, DefaultFallbackPrice)

	return &testEnv{
		db:         db,
		conditions: conditions,
		policies:   policies,
		releases:   releases,
		market:     market,
		audits:     audits,
		engine:     engine,
		quotes:     NewQuoteService(releases, policies, engine),
	}
}

func (e *testEnv) auditCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&models.PricingCalculationAudit{}).Count(&n).Error; err != nil {
		t.Fatalf("count audits: %v", err)
	}
	return n
}

// fakeFetcher returns canned stats and counts calls
type fakeFetcher struct {
	source models.MarketSource
	stats  *models.MarketStats
	err    error

	mu    sync.Mutex
	calls int
}

func (f *fakeFetcher) Source() models.MarketSource {
	return f.source
}

func (f *fakeFetcher) FetchStats(ctx context.Context, release *models.Release) (*models.MarketStats, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.stats, f.err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
