package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// Back-office API
	APIBaseURL string        `env:"API_BASE_URL" default:"http://localhost:8090/api/v1"`
	APITimeout time.Duration `env:"API_TIMEOUT" default:"10s"`

	// Client-side request throttle (requests per second, burst)
	APIRateLimit float64 `env:"API_RATE_LIMIT" default:"10"`
	APIRateBurst int     `env:"API_RATE_BURST" default:"20"`

	// Push channel
	WSURL             string        `env:"WS_URL" default:"ws://localhost:8090/ws"`
	RoleChannel       string        `env:"ROLE_CHANNEL" default:"admin"`
	ReconnectAttempts int           `env:"RECONNECT_ATTEMPTS" default:"5"`
	ReconnectBackoff  time.Duration `env:"RECONNECT_BACKOFF" default:"3s"`

	// Stub backend (cmd/stubd only)
	StubPort      int           `env:"STUB_PORT" default:"8090"`
	JWTSecret     string        `env:"JWT_SECRET"`
	JWTExpiry     time.Duration `env:"JWT_EXPIRY" default:"24h"`
	RedisURL      string        `env:"REDIS_URL"`
	RedisPassword string        `env:"REDIS_PASSWORD"`

	// Development
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Try to load .env file from project root; absence is fine, system env
	// vars still apply.
	if err := godotenv.Load(".env"); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	config := &Config{}

	if err := loadEnvString(&config.GoEnv, "GO_ENV", "development"); err != nil {
		return nil, err
	}

	// API
	if err := loadEnvString(&config.APIBaseURL, "API_BASE_URL", "http://localhost:8090/api/v1"); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.APITimeout, "API_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if err := loadEnvFloat(&config.APIRateLimit, "API_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.APIRateBurst, "API_RATE_BURST", 20); err != nil {
		return nil, err
	}

	// Push channel
	if err := loadEnvString(&config.WSURL, "WS_URL", "ws://localhost:8090/ws"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RoleChannel, "ROLE_CHANNEL", "admin"); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.ReconnectAttempts, "RECONNECT_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.ReconnectBackoff, "RECONNECT_BACKOFF", 3*time.Second); err != nil {
		return nil, err
	}

	// Stub backend
	if err := loadEnvInt(&config.StubPort, "STUB_PORT", 8090); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.JWTSecret, "JWT_SECRET", "dev-only-secret-change-me-please-32ch"); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.JWTExpiry, "JWT_EXPIRY", 24*time.Hour); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisURL, "REDIS_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisPassword, "REDIS_PASSWORD", ""); err != nil {
		return nil, err
	}

	// Development
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "info"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFormat, "LOG_FORMAT", "text"); err != nil {
		return nil, err
	}

	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvFloat(target *float64, key string, defaultValue float64) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if c.StubPort < 1 || c.StubPort > 65535 {
		errors = append(errors, "STUB_PORT must be between 1 and 65535")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(c.JWTSecret) < 32 {
		errors = append(errors, "JWT_SECRET should be at least 32 characters long")
	}

	if c.APIRateLimit <= 0 {
		errors = append(errors, "API_RATE_LIMIT must be positive")
	}
	if c.ReconnectAttempts < 0 {
		errors = append(errors, "RECONNECT_ATTEMPTS must not be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
