package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/vinyl-exchange/internal/api"
	"github.com/codyseavey/vinyl-exchange/internal/app"
	"github.com/codyseavey/vinyl-exchange/internal/config"
	"github.com/codyseavey/vinyl-exchange/internal/database"
	"github.com/codyseavey/vinyl-exchange/internal/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize services
	application := app.New(cfg, db)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start snapshot refresher in background with panic recovery
	if application.Refresher != nil {
		go func() {
			for {
				func() {
					defer func() {
						if r := recover(); r != nil {
							logger.Errorf("PANIC in snapshot refresher: %v - restarting in 30 seconds", r)
						}
					}()
					if err := application.Refresher.Start(ctx); err != nil {
						logger.Errorf("Snapshot refresher failed to start: %v", err)
						cancel()
					}
				}()

				select {
				case <-ctx.Done():
					return // Graceful shutdown
				case <-time.After(30 * time.Second):
					logger.Infof("Snapshot refresher restarting after panic recovery...")
				}
			}
		}()
	} else {
		logger.Infof("Snapshot refresher disabled")
	}

	// Setup router
	router := api.SetupRouter(application.RouterServices(), cfg.Server.CORSAllowedOrigins)

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	logger.Infof("Shutting down server...")

	// Cancel the context to stop the refresher
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Infof("Server exited")
}
