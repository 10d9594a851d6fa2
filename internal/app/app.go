// Package app wires configuration, storage and services into a runnable application.
package app

import (
	"gorm.io/gorm"

	"github.com/codyseavey/vinyl-exchange/internal/api"
	"github.com/codyseavey/vinyl-exchange/internal/config"
	"github.com/codyseavey/vinyl-exchange/internal/logger"
	"github.com/codyseavey/vinyl-exchange/internal/services"
)

// App holds the constructed services
type App struct {
	Conditions *services.ConditionService
	Policies   *services.PolicyService
	Releases   *services.ReleaseService
	Market     *services.MarketService
	Audits     *services.AuditService
	Exporter   *services.AuditExporter
	Engine     *services.PricingEngine
	Quotes     *services.QuoteService
	// Refresher is nil when background refreshing is disabled
	Refresher *services.SnapshotRefresher

	refreshOpts services.RefresherOptions
}

// New builds every service from cfg on top of db
func New(cfg *config.Config, db *gorm.DB) *App {
	conditions := services.NewConditionService(db, cfg.Pricing.ConditionCacheSize, cfg.Pricing.ConditionCacheTTL)
	policies := services.NewPolicyService(db, conditions)
	releases := services.NewReleaseService(db)
	audits := services.NewAuditService(db, cfg.Audit.DefaultPageSize, cfg.Audit.MaxPageSize)

	market := services.NewMarketService(db, releases, cfg.Market.LiveFetch, MarketClients(cfg)...)
	engine := services.NewPricingEngine(market, conditions, policies, audits, cfg.Pricing.FallbackPrice)

	a := &App{
		Conditions: conditions,
		Policies:   policies,
		Releases:   releases,
		Market:     market,
		Audits:     audits,
		Exporter:   services.NewAuditExporter(audits),
		Engine:     engine,
		Quotes:     services.NewQuoteService(releases, policies, engine),
		refreshOpts: services.RefresherOptions{
			Schedule:   cfg.Refresh.Schedule,
			StaleAfter: cfg.Refresh.StaleAfter,
			BatchSize:  cfg.Refresh.BatchSize,
		},
	}
	// Without a running worker nothing would drain the queue, so the API refreshes inline instead
	if cfg.Refresh.Enabled {
		a.Refresher = a.NewRefresher()
	}
	return a
}

// NewRefresher builds a snapshot refresher with the configured options, whether or not
// background refreshing is enabled. Used for one-off batches.
func (a *App) NewRefresher() *services.SnapshotRefresher {
	return services.NewSnapshotRefresher(a.Market, a.Releases, a.refreshOpts)
}

// MarketClients builds the market data clients that have enough configuration to run.
// Discogs statistics are public; eBay needs an application token.
func MarketClients(cfg *config.Config) []services.MarketDataFetcher {
	opts := services.MarketClientOptions{
		Timeout:           cfg.Market.Timeout,
		RetryCount:        cfg.Market.RetryCount,
		RequestsPerSecond: cfg.Market.RequestsPerSecond,
	}

	var clients []services.MarketDataFetcher

	discogsOpts := opts
	discogsOpts.BaseURL = cfg.Market.Discogs.BaseURL
	clients = append(clients, services.NewDiscogsClient(cfg.Market.Discogs.Token, discogsOpts))
	if cfg.Market.Discogs.Token == "" {
		logger.Infof("Discogs token not set: price suggestions disabled, only lowest listing prices are fetched")
	}

	if cfg.Market.Ebay.AppID != "" {
		ebayOpts := opts
		ebayOpts.BaseURL = cfg.Market.Ebay.BaseURL
		clients = append(clients, services.NewEbayClient(cfg.Market.Ebay.AppID, ebayOpts))
	} else {
		logger.Warnf("eBay app id not set: eBay snapshots and live fetch disabled")
	}

	return clients
}

// RouterServices exposes the services used by the HTTP API
func (a *App) RouterServices() api.Services {
	return api.Services{
		Conditions: a.Conditions,
		Policies:   a.Policies,
		Releases:   a.Releases,
		Market:     a.Market,
		Audits:     a.Audits,
		Exporter:   a.Exporter,
		Quotes:     a.Quotes,
		Refresher:  a.Refresher,
	}
}
