// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	API       APIConfig       `mapstructure:"api"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// APIConfig governs routing and request validation bounds.
type APIConfig struct {
	Prefix  string `mapstructure:"prefix"`
	MinYear int    `mapstructure:"min_year"`
	MaxYear int    `mapstructure:"max_year"`
}

// ScraperConfig configures upstream calendar fetches.
type ScraperConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// CacheConfig sets result memoization behavior.
type CacheConfig struct {
	TTLSeconds           int `mapstructure:"ttl_seconds"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
}

// RateLimitConfig throttles inbound requests per client.
type RateLimitConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	Requests      int  `mapstructure:"requests"`
	WindowSeconds int  `mapstructure:"window_seconds"`
}

// CORSConfig controls cross-origin request handling.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FESTIVALS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("api.prefix", "/api/v1")
	v.SetDefault("api.min_year", 1900)
	v.SetDefault("api.max_year", 2100)
	v.SetDefault("scraper.base_url", "https://panchang.astrosage.com/calendars/indiancalendar")
	v.SetDefault("scraper.timeout_seconds", 30)
	v.SetDefault("scraper.user_agent", "festivals-api/1.0")
	v.SetDefault("cache.ttl_seconds", 3600)
	v.SetDefault("cache.sweep_interval_seconds", 300)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window_seconds", 60)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"*"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if !strings.HasPrefix(c.API.Prefix, "/") {
		return fmt.Errorf("api.prefix must start with /")
	}
	if c.API.MinYear <= 0 || c.API.MaxYear < c.API.MinYear {
		return fmt.Errorf("api year bounds invalid: min %d max %d", c.API.MinYear, c.API.MaxYear)
	}
	if c.Scraper.BaseURL == "" {
		return fmt.Errorf("scraper.base_url must be set")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be > 0")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 {
			return fmt.Errorf("rate_limit.requests must be > 0 when rate limiting is enabled")
		}
		if c.RateLimit.WindowSeconds <= 0 {
			return fmt.Errorf("rate_limit.window_seconds must be > 0 when rate limiting is enabled")
		}
	}
	return nil
}

// ScrapeTimeout converts the scraper timeout into a duration.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// CacheTTL converts the cache TTL into a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// CacheSweepInterval converts the sweep interval into a duration.
// Zero disables the background sweeper.
func (c Config) CacheSweepInterval() time.Duration {
	return time.Duration(c.Cache.SweepIntervalSeconds) * time.Second
}

// RateLimitWindow converts the rate limit window into a duration.
func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}
