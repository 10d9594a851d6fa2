package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Market   MarketConfig   `mapstructure:"market"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

type ServerConfig struct {
	Port               string   `mapstructure:"port"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MarketConfig holds external market data API configuration
type MarketConfig struct {
	Discogs           DiscogsConfig `mapstructure:"discogs"`
	Ebay              EbayConfig    `mapstructure:"ebay"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RetryCount        int           `mapstructure:"retry_count"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	// LiveFetch enables the last-resort live lookup when no snapshot can price a request
	LiveFetch bool `mapstructure:"live_fetch"`
}

type DiscogsConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

type EbayConfig struct {
	BaseURL string `mapstructure:"base_url"`
	AppID   string `mapstructure:"app_id"`
}

// RefreshConfig controls the scheduled snapshot refresher
type RefreshConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Schedule   string        `mapstructure:"schedule"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
	BatchSize  int           `mapstructure:"batch_size"`
}

type PricingConfig struct {
	// FallbackPrice is used when no market price and no min cap exist
	FallbackPrice      float64       `mapstructure:"fallback_price"`
	ConditionCacheTTL  time.Duration `mapstructure:"condition_cache_ttl"`
	ConditionCacheSize int           `mapstructure:"condition_cache_size"`
}

type AuditConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
}

// Load reads configuration from an optional file, a .env file and environment variables.
// Environment variables use underscores for nesting: DATABASE_PATH, MARKET_DISCOGS_TOKEN.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Comma separated origins arrive from the environment as a single string
	if len(cfg.Server.CORSAllowedOrigins) == 1 && strings.Contains(cfg.Server.CORSAllowedOrigins[0], ",") {
		cfg.Server.CORSAllowedOrigins = strings.Split(cfg.Server.CORSAllowedOrigins[0], ",")
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})

	v.SetDefault("database.path", "./vinyl_exchange.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("market.discogs.base_url", "https://api.discogs.com")
	v.SetDefault("market.discogs.token", "")
	v.SetDefault("market.ebay.base_url", "https://api.ebay.com")
	v.SetDefault("market.ebay.app_id", "")
	v.SetDefault("market.timeout", "10s")
	v.SetDefault("market.retry_count", 2)
	v.SetDefault("market.requests_per_second", 1.0)
	v.SetDefault("market.live_fetch", true)

	v.SetDefault("refresh.enabled", true)
	v.SetDefault("refresh.schedule", "@every 6h")
	v.SetDefault("refresh.stale_after", "24h")
	v.SetDefault("refresh.batch_size", 50)

	v.SetDefault("pricing.fallback_price", 0.5)
	v.SetDefault("pricing.condition_cache_ttl", "5m")
	v.SetDefault("pricing.condition_cache_size", 64)

	v.SetDefault("audit.default_page_size", 50)
	v.SetDefault("audit.max_page_size", 200)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Market.Timeout <= 0 {
		return fmt.Errorf("market.timeout must be positive")
	}
	if c.Market.RetryCount < 0 || c.Market.RetryCount > 10 {
		return fmt.Errorf("market.retry_count must be between 0 and 10")
	}
	if c.Market.RequestsPerSecond <= 0 {
		return fmt.Errorf("market.requests_per_second must be positive")
	}

	if c.Refresh.Enabled {
		if c.Refresh.Schedule == "" {
			return fmt.Errorf("refresh.schedule is required when refresh is enabled")
		}
		if c.Refresh.StaleAfter < time.Minute {
			return fmt.Errorf("refresh.stale_after must be at least 1 minute")
		}
		if c.Refresh.BatchSize < 1 {
			return fmt.Errorf("refresh.batch_size must be at least 1")
		}
	}

	if c.Pricing.FallbackPrice <= 0 {
		return fmt.Errorf("pricing.fallback_price must be positive")
	}
	if c.Pricing.ConditionCacheSize < 1 {
		return fmt.Errorf("pricing.condition_cache_size must be at least 1")
	}

	if c.Audit.DefaultPageSize < 1 {
		return fmt.Errorf("audit.default_page_size must be at least 1")
	}
	if c.Audit.MaxPageSize < c.Audit.DefaultPageSize {
		return fmt.Errorf("audit.max_page_size must be at least audit.default_page_size")
	}

	return nil
}
