// Package config loads the application configuration from environment
// variables. A .env file in the working directory is read first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every configuration section. Each section is its own struct.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Ingest    IngestConfig
	Email     EmailConfig
	Retention RetentionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string
	Port        int
	Env         string   // "production" hides internal error details
	CORSOrigins []string // comma separated in CORS_ORIGINS
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path               string
	SlowQueryThreshold time.Duration
}

// JWTConfig holds bearer token settings.
type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// RedisConfig is optional. An empty Addr selects the in-process cache store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// IngestConfig guards the machine-to-machine ingestion endpoints.
type IngestConfig struct {
	APIKey string
}

// EmailConfig configures Resend. An empty ResendAPIKey disables outgoing mail.
type EmailConfig struct {
	ResendAPIKey string
	FromEmail    string
	AppURL       string
}

// RetentionConfig controls the background purge of time-series rows.
type RetentionConfig struct {
	MeasurementDays int
	PredictionDays  int
	Interval        time.Duration
}

// Load builds a Config from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "5000"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	slowMs, err := strconv.Atoi(getEnv("SLOW_QUERY_MS", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLOW_QUERY_MS: %w", err)
	}

	jwtDays, err := strconv.Atoi(getEnv("JWT_EXPIRY_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_DAYS: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	measurementDays, err := strconv.Atoi(getEnv("RETENTION_MEASUREMENT_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETENTION_MEASUREMENT_DAYS: %w", err)
	}

	predictionDays, err := strconv.Atoi(getEnv("RETENTION_PREDICTION_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETENTION_PREDICTION_DAYS: %w", err)
	}

	interval, err := time.ParseDuration(getEnv("RETENTION_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETENTION_INTERVAL: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if measurementDays < 1 || predictionDays < 1 {
		return nil, fmt.Errorf("retention days must be at least 1")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        port,
			Env:         getEnv("APP_ENV", "development"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		},
		Database: DatabaseConfig{
			Path:               getEnv("DATABASE_PATH", "./data/directory.db"),
			SlowQueryThreshold: time.Duration(slowMs) * time.Millisecond,
		},
		JWT: JWTConfig{
			Secret: jwtSecret,
			Expiry: time.Duration(jwtDays) * 24 * time.Hour,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Ingest: IngestConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromEmail:    getEnv("EMAIL_FROM", "noreply@localhost"),
			AppURL:       getEnv("APP_URL", "http://localhost:3000"),
		},
		Retention: RetentionConfig{
			MeasurementDays: measurementDays,
			PredictionDays:  predictionDays,
			Interval:        interval,
		},
	}

	return cfg, nil
}

// Addr returns the listen address, e.g. "0.0.0.0:5000".
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether internal error details must be hidden.
func (c *ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
