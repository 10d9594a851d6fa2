package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/vinyl-exchange/internal/api/handlers"
	"github.com/codyseavey/vinyl-exchange/internal/services"
)

// Services bundles everything the router needs
type Services struct {
	Conditions *services.ConditionService
	Policies   *services.PolicyService
	Releases   *services.ReleaseService
	Market     *services.MarketService
	Audits     *services.AuditService
	Exporter   *services.AuditExporter
	Quotes     *services.QuoteService
	Refresher  *services.SnapshotRefresher // optional
}

func SetupRouter(svc Services, corsOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), metricsMiddleware())

	// CORS configuration - allow configured origins or use defaults
	config := cors.DefaultConfig()
	if origins := cleanOrigins(corsOrigins); len(origins) > 0 {
		config.AllowOrigins = origins
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = false
	router.Use(cors.New(config))

	// Initialize handlers
	pricingHandler := handlers.NewPricingHandler(svc.Quotes, svc.Conditions)
	conditionHandler := handlers.NewConditionHandler(svc.Conditions)
	policyHandler := handlers.NewPolicyHandler(svc.Policies, svc.Audits)
	releaseHandler := handlers.NewReleaseHandler(svc.Releases, svc.Market, svc.Audits, svc.Refresher)
	auditHandler := handlers.NewAuditHandler(svc.Audits, svc.Exporter)

	// API routes
	api := router.Group("/api")
	{
		api.GET("/conditions", conditionHandler.ListConditions)

		api.POST("/quotes", pricingHandler.Quote)
		api.POST("/pricing/calculate", pricingHandler.Calculate)

		// Release routes
		releases := api.Group("/releases")
		{
			releases.POST("", releaseHandler.CreateRelease)
			releases.GET("/:id", releaseHandler.GetRelease)
			releases.GET("/:id/snapshots", releaseHandler.ListSnapshots)
			releases.PUT("/:id/snapshots/:source", releaseHandler.UpsertSnapshot)
			releases.POST("/:id/snapshots/refresh", releaseHandler.RefreshSnapshots)
			releases.GET("/:id/audits", releaseHandler.GetReleaseAudits)
		}

		api.GET("/snapshots/status", releaseHandler.GetRefreshStatus)

		// Policy routes
		policies := api.Group("/policies")
		{
			policies.GET("", policyHandler.ListPolicies)
			policies.POST("", policyHandler.CreatePolicy)
			policies.GET("/:id", policyHandler.GetPolicy)
			policies.PUT("/:id", policyHandler.UpdatePolicy)
			policies.PUT("/:id/discounts", policyHandler.SetDiscounts)
			policies.GET("/:id/audits", policyHandler.GetPolicyAudits)
		}

		// Audit routes
		audits := api.Group("/audits")
		{
			audits.GET("/export", auditHandler.ExportAudits)
			audits.GET("/:id", auditHandler.GetAudit)
			audits.GET("/:id/verify", auditHandler.VerifyAudit)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}

func cleanOrigins(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
