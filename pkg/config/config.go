package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the dashboard backend
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Storage
	Database DatabaseConfig
	Redis    RedisConfig

	// Market data + analytics defaults
	Market MarketConfig

	// Daily report sink
	Report ReportConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration.
// URL is optional: without it the bar store (collection + fallback) is disabled.
type DatabaseConfig struct {
	URL            string
	MaxConns       int           // bar writes come from one collection job, a small pool is enough
	ConnectTimeout time.Duration // bounds the startup ping
}

// Enabled reports whether a database was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// MarketConfig holds the data adapter and analytics defaults
type MarketConfig struct {
	AssetsFile      string // optional YAML asset registry
	YahooBaseURL    string
	DefaultPeriod   string
	DefaultInterval string
	Retries         int
	Timeout         time.Duration
	CacheTTL        time.Duration
	RiskFreeRate    float64 // annual, decimal (0.02 = 2%)
	PeriodsPerYear  int
	Timezone        string // cron jobs only
}

// ReportConfig holds the daily report generator settings
type ReportConfig struct {
	Dir      string
	Asset    string
	Schedule string // cron spec with seconds
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Market: MarketConfig{
			AssetsFile:      getEnv("ASSETS_FILE", ""),
			YahooBaseURL:    getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			DefaultPeriod:   getEnv("MARKET_PERIOD", "7d"),
			DefaultInterval: getEnv("MARKET_INTERVAL", "5m"),
			Retries:         getEnvAsInt("MARKET_RETRIES", 3),
			Timeout:         getEnvAsDuration("MARKET_TIMEOUT", "10s"),
			CacheTTL:        getEnvAsDuration("MARKET_CACHE_TTL", "5m"),
			RiskFreeRate:    getEnvAsFloat("RISK_FREE_RATE", 0.0),
			PeriodsPerYear:  getEnvAsInt("PERIODS_PER_YEAR", 252),
			Timezone:        getEnv("TIMEZONE", "Europe/Paris"),
		},

		Report: ReportConfig{
			Dir:      getEnv("REPORT_DIR", "reports"),
			Asset:    getEnv("REPORT_ASSET", "BTC"),
			Schedule: getEnv("REPORT_SCHEDULE", "0 0 20 * * *"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks configuration invariants
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Database.Enabled() && c.Database.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}

	if c.Market.Retries < 1 {
		return fmt.Errorf("MARKET_RETRIES must be >= 1, got %d", c.Market.Retries)
	}

	if c.Market.Timeout <= 0 {
		return fmt.Errorf("MARKET_TIMEOUT must be positive")
	}

	if c.Market.PeriodsPerYear <= 0 {
		return fmt.Errorf("PERIODS_PER_YEAR must be positive, got %d", c.Market.PeriodsPerYear)
	}

	if _, err := time.LoadLocation(c.Market.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Market.Timezone, err)
	}

	return nil
}

// Location returns the scheduler timezone (validated in Load)
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Market.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
