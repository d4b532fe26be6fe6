package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration, loaded from the environment with
// an optional .env file.
type Config struct {
	Host        string
	Port        int
	Environment string
	Debug       bool
	LogLevel    string

	CORSOrigins []string

	// CacheTTL is how long a resolved series batch stays valid.
	CacheTTL        time.Duration
	CacheMaxEntries int

	DatabasePath string

	// APITokens maps bearer tokens to user IDs. Empty means development
	// mode: token verification is bypassed.
	APITokens map[string]string

	ProviderEndpoint      string
	FetchTimeout          time.Duration
	MaxConcurrentFetches  int
	MaxRequestsPerMinute  int
	Burst                 int
	MinRequestIntervalSec int
}

// Load reads configuration from environment variables, loading a .env file
// first if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Host:        getEnv("API_HOST", "0.0.0.0"),
		Port:        getEnvAsInt("API_PORT", 8000),
		Environment: getEnv("ENVIRONMENT", "development"),
		Debug:       getEnvAsBool("DEBUG", true),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		CacheTTL:        time.Duration(getEnvAsInt("CACHE_EXPIRE_SECONDS", 300)) * time.Second,
		CacheMaxEntries: getEnvAsInt("CACHE_MAX_ENTRIES", 256),

		DatabasePath: getEnv("DATABASE_PATH", "./data/analytics.db"),

		APITokens: parseTokens(getEnv("API_TOKENS", "")),

		ProviderEndpoint:      getEnv("PROVIDER_ENDPOINT", "https://query1.finance.yahoo.com"),
		FetchTimeout:          time.Duration(getEnvAsInt("FETCH_TIMEOUT_SEC", 5)) * time.Second,
		MaxConcurrentFetches:  getEnvAsInt("MAX_CONCURRENT_FETCHES", 8),
		MaxRequestsPerMinute:  getEnvAsInt("PROVIDER_MAX_RPM", 0),
		Burst:                 getEnvAsInt("PROVIDER_BURST", 1),
		MinRequestIntervalSec: getEnvAsInt("PROVIDER_MIN_INTERVAL_SEC", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("API_PORT out of range: %d", c.Port)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_EXPIRE_SECONDS must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_SEC must be positive")
	}
	return nil
}

// DevMode reports whether the service should bypass token verification.
func (c *Config) DevMode() bool {
	return len(c.APITokens) == 0 && c.Environment == "development"
}

// parseTokens parses "token:uid,token:uid" pairs.
func parseTokens(s string) map[string]string {
	out := map[string]string{}
	for _, pair := range splitCSV(s) {
		token, uid, ok := strings.Cut(pair, ":")
		if !ok || token == "" || uid == "" {
			continue
		}
		out[token] = uid
	}
	return out
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
