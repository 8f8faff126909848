package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port   int
	AppEnv string

	RecordStoreURL     string
	RecordStoreToken   string
	RecordStoreTimeout time.Duration

	SessionSecret   string
	SessionTTL      time.Duration
	SessionStoreURL string
	CookieSecure    bool

	NotionToken string
	NotionDBID  string

	LogLevel slog.Level
}

// Load reads configuration from environment variables and validates required fields.
func Load() (Config, error) {
	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return Config{}, fmt.Errorf("parse PORT: %w", err)
	}

	storeTimeout, err := getEnvDuration("RECORD_STORE_TIMEOUT", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse RECORD_STORE_TIMEOUT: %w", err)
	}

	ttl, err := getEnvDuration("SESSION_TTL", 30*24*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_TTL: %w", err)
	}

	appEnv := getEnv("APP_ENV", "development")

	// Cookies default to Secure in production.
	secure, err := getEnvBool("COOKIE_SECURE", appEnv == "production")
	if err != nil {
		return Config{}, fmt.Errorf("parse COOKIE_SECURE: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}

	storeURL := os.Getenv("RECORD_STORE_URL")
	if storeURL == "" && appEnv != "production" {
		storeURL = "http://localhost:5000"
	}

	cfg := Config{
		Port:               port,
		AppEnv:             appEnv,
		RecordStoreURL:     storeURL,
		RecordStoreToken:   getEnv("RECORD_STORE_TOKEN", ""),
		RecordStoreTimeout: storeTimeout,
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionTTL:         ttl,
		SessionStoreURL:    getEnv("SESSION_STORE_URL", "jobtracker.sqlite"),
		CookieSecure:       secure,
		NotionToken:        getEnv("NOTION_TOKEN", ""),
		NotionDBID:         getEnv("NOTION_DB_ID", ""),
		LogLevel:           level,
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// NotionEnabled reports whether both Notion settings are present.
func (c Config) NotionEnabled() bool {
	return c.NotionToken != "" && c.NotionDBID != ""
}

func (c Config) validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.RecordStoreURL == "" {
		return fmt.Errorf("RECORD_STORE_URL is required in production")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(v)
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return strconv.ParseBool(v)
}
