package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Environment string
	ServerPort  int
	LogLevel    string

	// Control-plane store and database engine defaults. New tenant
	// databases are created on the same engine with these credentials.
	DBHost          string
	DBPort          int
	DBUser          string
	DBPassword      string
	ControlDatabase string
	SSLMode         string

	// RedisURL enables the redis-backed resolution cache when set.
	RedisURL string

	// Local-development overrides applied to connection descriptors at
	// resolution time only, never persisted.
	ResolveHostOverride string
	ResolvePortOverride int

	JWTSecret          string
	RateLimitPerMinute int

	StaleAttemptMinutes    int
	MonitorIntervalMinutes int

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	staleMinutes, err := strconv.Atoi(getEnv("STALE_ATTEMPT_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid STALE_ATTEMPT_MINUTES: %w", err)
	}

	monitorInterval, err := strconv.Atoi(getEnv("MONITOR_INTERVAL_MINUTES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid MONITOR_INTERVAL_MINUTES: %w", err)
	}

	resolvePortOverride := 0
	if v := os.Getenv("RESOLVE_PORT_OVERRIDE"); v != "" {
		resolvePortOverride, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RESOLVE_PORT_OVERRIDE: %w", err)
		}
	}

	return &Config{
		Environment:            getEnv("ENVIRONMENT", "development"),
		ServerPort:             port,
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		DBHost:                 getEnv("DB_HOST", "localhost"),
		DBPort:                 dbPort,
		DBUser:                 getEnv("DB_USER", "postgres"),
		DBPassword:             getEnv("DB_PASSWORD", ""),
		ControlDatabase:        getEnv("CONTROL_DB_NAME", "tenantplane"),
		SSLMode:                getEnv("DB_SSLMODE", "disable"),
		RedisURL:               os.Getenv("REDIS_URL"),
		ResolveHostOverride:    os.Getenv("RESOLVE_HOST_OVERRIDE"),
		ResolvePortOverride:    resolvePortOverride,
		JWTSecret:              os.Getenv("JWT_SECRET"),
		RateLimitPerMinute:     rateLimit,
		StaleAttemptMinutes:    staleMinutes,
		MonitorIntervalMinutes: monitorInterval,
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
	}, nil
}

// TenantDescriptorDefaults returns the connection descriptor template for a
// newly provisioned tenant database.
func (c *Config) TenantDescriptorDefaults() (host string, port int, user, password string) {
	return c.DBHost, c.DBPort, c.DBUser, c.DBPassword
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
