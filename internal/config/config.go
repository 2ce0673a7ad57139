// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Tracker authentication
	APIKey string // shared key the storefront tracker sends in X-API-Key

	// Dashboard authentication
	JWTSecret     string
	DashboardUser string
	DashboardPass string

	// Session lifecycle
	SessionTTL    time.Duration // inactivity timeout before eviction
	SweepInterval time.Duration // janitor cadence

	// Intervention policy
	TriggerThreshold int           // risk score that fires an intervention
	Cooldown         time.Duration // suppression window after an intervention

	// Salvage aggregation
	SalvageWindow time.Duration

	// Rate limiting
	RateLimitRPM int

	// Observability
	OTLPEndpoint string
}

// Defaults
const (
	DefaultPort             = "8080"
	DefaultEnv              = "development"
	DefaultLogLevel         = "info"
	DefaultSessionTTL       = 5 * time.Minute
	DefaultSweepInterval    = 10 * time.Second
	DefaultTriggerThreshold = 65
	DefaultCooldown         = 2 * time.Minute
	DefaultSalvageWindow    = time.Hour
	DefaultRateLimit        = 100
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", DefaultPort),
		Env:              getEnv("ENV", DefaultEnv),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
		APIKey:           os.Getenv("API_KEY"), // Required, no default
		JWTSecret:        os.Getenv("JWT_SECRET"),
		DashboardUser:    getEnv("DASHBOARD_USER", "admin"),
		DashboardPass:    os.Getenv("DASHBOARD_PASS"),
		SessionTTL:       getEnvSeconds("SESSION_TTL_SECONDS", DefaultSessionTTL),
		SweepInterval:    getEnvSeconds("SWEEP_INTERVAL_SECONDS", DefaultSweepInterval),
		TriggerThreshold: int(getEnvInt64("INTERVENTION_THRESHOLD", DefaultTriggerThreshold)),
		Cooldown:         getEnvSeconds("COOLDOWN_SECONDS", DefaultCooldown),
		SalvageWindow:    getEnvSeconds("SALVAGE_WINDOW_SECONDS", DefaultSalvageWindow),
		RateLimitRPM:     int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.DashboardPass == "" {
		return fmt.Errorf("DASHBOARD_PASS is required")
	}
	if c.TriggerThreshold < 1 || c.TriggerThreshold > 100 {
		return fmt.Errorf("INTERVENTION_THRESHOLD must be in [1,100]")
	}
	if c.Cooldown > c.SessionTTL {
		return fmt.Errorf("COOLDOWN_SECONDS must not exceed SESSION_TTL_SECONDS")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil && i > 0 {
			return time.Duration(i) * time.Second
		}
	}
	return defaultValue
}
