package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"prdbuilder/internal/service/autosave"
	"prdbuilder/internal/service/builder"
	"prdbuilder/internal/service/highlight"
)

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	TablePrefix string

	// Storage
	StorageBackend string
	DatabaseURL    string
	RedisURL       string

	// Auth. Without a JWKS URL requests run as DevUserID (dev/test only).
	JWKSURL   string
	DevUserID string

	// Editing sessions
	AutoSaveDebounce     time.Duration
	AutoSaveSavedDisplay time.Duration
	AutoSaveEnabled      bool
	HighlightDuration    time.Duration
	SessionIdleTTL       time.Duration

	// Logging
	LogDir      string
	LogMaxFiles int
	Debug       bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StoragePostgres)),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),

		JWKSURL:   getEnv("JWKS_URL", ""),
		DevUserID: getEnv("DEV_USER_ID", "00000000-0000-0000-0000-000000000001"),

		AutoSaveDebounce:     getEnvMillis("AUTOSAVE_DEBOUNCE_MS", autosave.DefaultDebounce),
		AutoSaveSavedDisplay: getEnvMillis("AUTOSAVE_SAVED_DISPLAY_MS", autosave.DefaultSavedDisplay),
		AutoSaveEnabled:      getEnvBool("AUTOSAVE_ENABLED", true),
		HighlightDuration:    getEnvMillis("HIGHLIGHT_DURATION_MS", highlight.DefaultDuration),
		SessionIdleTTL:       getEnvMillis("SESSION_IDLE_TTL_MS", builder.DefaultIdleTTL),

		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getEnvInt("LOG_MAX_FILES", 10),
		// Debug defaults on everywhere but prod
		Debug: getEnvBool("DEBUG", env != "prod"),
	}
}

// SessionOptions returns the editing session options described by the config
func (c *Config) SessionOptions() builder.Options {
	opts := builder.DefaultOptions()
	opts.AutoSave.Debounce = c.AutoSaveDebounce
	opts.AutoSave.SavedDisplay = c.AutoSaveSavedDisplay
	opts.AutoSave.Enabled = c.AutoSaveEnabled
	opts.HighlightDuration = c.HighlightDuration
	opts.IdleTTL = c.SessionIdleTTL
	return opts
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvMillis reads a positive duration in milliseconds
func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	ms := getEnvInt(key, -1)
	if ms <= 0 {
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}
