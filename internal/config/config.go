package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// HTTP Server Configuration
	HTTPPort         string        `yaml:"http_port"`
	HTTPReadTimeout  time.Duration `yaml:"http_read_timeout"`
	HTTPWriteTimeout time.Duration `yaml:"http_write_timeout"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`

	// Logging Configuration
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// CORS Configuration
	CORSAllowedOrigins   string `yaml:"cors_allowed_origins"`
	CORSAllowedMethods   string `yaml:"cors_allowed_methods"`
	CORSAllowedHeaders   string `yaml:"cors_allowed_headers"`
	CORSAllowCredentials bool   `yaml:"cors_allow_credentials"`
	CORSMaxAge           int    `yaml:"cors_max_age"`

	// Generation Configuration
	TotalSteps    int           `yaml:"total_steps"`
	MaxTotalSteps int           `yaml:"max_total_steps"`
	PacingDelay   time.Duration `yaml:"pacing_delay"`
	RandomSeed    uint64        `yaml:"random_seed"`

	// Render Configuration
	RenderWidth  int    `yaml:"render_width"`
	RenderHeight int    `yaml:"render_height"`
	RenderFormat string `yaml:"render_format"`

	// Registry Configuration
	RegistryRetention     time.Duration `yaml:"registry_retention"`
	RegistrySweepSchedule string        `yaml:"registry_sweep_schedule"`

	// MongoDB Configuration, an empty URI disables history
	MongoURI      string        `yaml:"mongo_uri"`
	MongoDatabase string        `yaml:"mongo_database"`
	MongoTimeout  time.Duration `yaml:"mongo_timeout"`

	// Webhook Configuration, an empty URL disables notifications
	CompletionWebhookURL string        `yaml:"completion_webhook_url"`
	WebhookTimeout       time.Duration `yaml:"webhook_timeout"`
	WebhookMaxAttempts   int           `yaml:"webhook_max_attempts"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		HTTPPort:         "8080",
		HTTPReadTimeout:  30 * time.Second,
		HTTPWriteTimeout: 30 * time.Second,
		ShutdownTimeout:  30 * time.Second,

		LogLevel:  "info",
		LogFormat: "json",

		CORSAllowedOrigins:   "*",
		CORSAllowedMethods:   "GET, POST, OPTIONS",
		CORSAllowedHeaders:   "*",
		CORSAllowCredentials: false,
		CORSMaxAge:           3600,

		TotalSteps:    25000,
		MaxTotalSteps: 200000,
		PacingDelay:   10 * time.Millisecond,

		RenderWidth:  640,
		RenderHeight: 480,
		RenderFormat: "png",

		RegistrySweepSchedule: "@every 1m",

		MongoDatabase: "tendril",
		MongoTimeout:  10 * time.Second,

		WebhookTimeout:     10 * time.Second,
		WebhookMaxAttempts: 3,
	}
}

// Load builds the configuration from defaults, the YAML file at path and the
// environment, in that order. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Config file not found, using defaults", "path", path)
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	// HTTP Server
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.HTTPReadTimeout = getDurationEnv("HTTP_READ_TIMEOUT", c.HTTPReadTimeout)
	c.HTTPWriteTimeout = getDurationEnv("HTTP_WRITE_TIMEOUT", c.HTTPWriteTimeout)
	c.ShutdownTimeout = getDurationEnv("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	// Logging
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	// CORS
	c.CORSAllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)
	c.CORSAllowedMethods = getEnv("CORS_ALLOWED_METHODS", c.CORSAllowedMethods)
	c.CORSAllowedHeaders = getEnv("CORS_ALLOWED_HEADERS", c.CORSAllowedHeaders)
	c.CORSAllowCredentials = getBoolEnv("CORS_ALLOW_CREDENTIALS", c.CORSAllowCredentials)
	c.CORSMaxAge = getIntEnv("CORS_MAX_AGE", c.CORSMaxAge)

	// Generation
	c.TotalSteps = getIntEnv("TOTAL_STEPS", c.TotalSteps)
	c.MaxTotalSteps = getIntEnv("MAX_TOTAL_STEPS", c.MaxTotalSteps)
	c.PacingDelay = getDurationEnv("PACING_DELAY", c.PacingDelay)
	c.RandomSeed = getUint64Env("RANDOM_SEED", c.RandomSeed)

	// Render
	c.RenderWidth = getIntEnv("RENDER_WIDTH", c.RenderWidth)
	c.RenderHeight = getIntEnv("RENDER_HEIGHT", c.RenderHeight)
	c.RenderFormat = getEnv("RENDER_FORMAT", c.RenderFormat)

	// Registry
	c.RegistryRetention = getDurationEnv("REGISTRY_RETENTION", c.RegistryRetention)
	c.RegistrySweepSchedule = getEnv("REGISTRY_SWEEP_SCHEDULE", c.RegistrySweepSchedule)

	// MongoDB
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnv("MONGO_DATABASE", c.MongoDatabase)
	c.MongoTimeout = getDurationEnv("MONGO_TIMEOUT", c.MongoTimeout)

	// Webhook
	c.CompletionWebhookURL = getEnv("COMPLETION_WEBHOOK_URL", c.CompletionWebhookURL)
	c.WebhookTimeout = getDurationEnv("WEBHOOK_TIMEOUT", c.WebhookTimeout)
	c.WebhookMaxAttempts = getIntEnv("WEBHOOK_MAX_ATTEMPTS", c.WebhookMaxAttempts)
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	var problems []string

	if c.HTTPPort == "" {
		problems = append(problems, "http_port is required")
	}
	if c.TotalSteps <= 0 {
		problems = append(problems, "total_steps must be positive")
	}
	if c.MaxTotalSteps < c.TotalSteps {
		problems = append(problems, "max_total_steps must not be below total_steps")
	}
	if c.PacingDelay < 0 {
		problems = append(problems, "pacing_delay must not be negative")
	}
	if c.RenderWidth <= 0 || c.RenderHeight <= 0 {
		problems = append(problems, "render size must be positive")
	}
	switch strings.ToLower(c.RenderFormat) {
	case "", "png", "svg":
	default:
		problems = append(problems, fmt.Sprintf("unsupported render_format %q", c.RenderFormat))
	}
	if c.RegistryRetention < 0 {
		problems = append(problems, "registry_retention must not be negative")
	}
	if c.MongoURI != "" && c.MongoDatabase == "" {
		problems = append(problems, "mongo_database is required when mongo_uri is set")
	}
	if c.WebhookMaxAttempts < 1 {
		problems = append(problems, "webhook_max_attempts must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// HistoryEnabled reports whether a MongoDB history store is configured
func (c *Config) HistoryEnabled() bool {
	return c.MongoURI != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := cast.ToIntE(value); err == nil {
			return intVal
		}
		slog.Warn("Invalid integer value, using default", "key", key, "default", defaultValue)
	}
	return defaultValue
}

func getUint64Env(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintVal, err := cast.ToUint64E(value); err == nil {
			return uintVal
		}
		slog.Warn("Invalid unsigned value, using default", "key", key, "default", defaultValue)
	}
	return defaultValue
}

// getDurationEnv accepts Go duration strings such as "250ms" or "1m"
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("Invalid duration value, using default", "key", key, "default", defaultValue)
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := cast.ToBoolE(value); err == nil {
			return boolVal
		}
		slog.Warn("Invalid boolean value, using default", "key", key, "default", defaultValue)
	}
	return defaultValue
}
