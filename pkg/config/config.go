package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for serverdex-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (cache + rate limiter backend)
	Redis RedisConfig `yaml:"redis"`

	// Cache TTLs
	Cache CacheConfig `yaml:"cache"`

	// Rate limit policies
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"serverdex"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"serverdex_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// RedisConfig holds Redis configuration. An empty host disables Redis; the
// cache then treats every lookup as a miss and the rate limiter runs on its
// local fallback store.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// CacheConfig holds TTLs for the cached views, in seconds.
type CacheConfig struct {
	ListTTLSeconds     int `yaml:"list_ttl_seconds" env:"CACHE_LIST_TTL_SECONDS" env-default:"300"`
	CategoryTTLSeconds int `yaml:"category_ttl_seconds" env:"CACHE_CATEGORY_TTL_SECONDS" env-default:"300"`
}

// ListTTL returns the listing cache TTL as a duration.
func (c *CacheConfig) ListTTL() time.Duration {
	return time.Duration(c.ListTTLSeconds) * time.Second
}

// CategoryTTL returns the category-counts cache TTL as a duration.
func (c *CacheConfig) CategoryTTL() time.Duration {
	return time.Duration(c.CategoryTTLSeconds) * time.Second
}

// RateLimitConfig holds the per-action throttling policy. The numbers are
// configuration, not a structural contract.
type RateLimitConfig struct {
	RatingPerMinute     int `yaml:"rating_per_minute" env:"RL_RATING_PER_MINUTE" env-default:"10"`
	ListingPerHour      int `yaml:"listing_per_hour" env:"RL_LISTING_PER_HOUR" env-default:"5"`
	ImagePerHour        int `yaml:"image_per_hour" env:"RL_IMAGE_PER_HOUR" env-default:"10"`
	VotePerMinute       int `yaml:"vote_per_minute" env:"RL_VOTE_PER_MINUTE" env-default:"30"`
	FlagPerHour         int `yaml:"flag_per_hour" env:"RL_FLAG_PER_HOUR" env-default:"10"`
	ResyncPerMinute     int `yaml:"resync_per_minute" env:"RL_RESYNC_PER_MINUTE" env-default:"1"`
	AnonReadPerMinute   int `yaml:"anon_read_per_minute" env:"RL_ANON_READ_PER_MINUTE" env-default:"100"`
	AnonListPerMinute   int `yaml:"anon_list_per_minute" env:"RL_ANON_LIST_PER_MINUTE" env-default:"60"`
	LocalGCIntervalSecs int `yaml:"local_gc_interval_seconds" env:"RL_LOCAL_GC_INTERVAL_SECONDS" env-default:"60"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. Secrets (PGPASSWORD, REDIS_PASSWORD) must come from
// environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
