package config

import (
	"fmt"
	"os"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	LogLevel    string
	LogFormat   string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "production"),
		Port:        getEnv("PORT", "3000"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	switch cfg.AppEnv {
	case "production", "development", "debug":
	default:
		return nil, fmt.Errorf("APP_ENV must be production, development or debug, got %q", cfg.AppEnv)
	}

	return cfg, nil
}

// DebugMode reports whether the write endpoints and the admin page are
// exposed. Production keeps the facade read-only.
func (c *Config) DebugMode() bool {
	return c.AppEnv == "debug" || c.AppEnv == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
