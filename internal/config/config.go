package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/whatodo/internal/timeutil"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort  string `yaml:"server_port"`
	BaseURL     string `yaml:"base_url"`
	FrontendURL string `yaml:"frontend_url"`
	EnableHSTS  bool   `yaml:"enable_hsts"`

	OpenAIKey  string        `yaml:"openai_api_key"`
	AIProvider string        `yaml:"ai_provider"`
	AIModel    string        `yaml:"ai_model"`
	AIBaseURL  string        `yaml:"ai_base_url"`
	AITimeout  time.Duration `yaml:"ai_timeout"`

	StorageBackend string `yaml:"storage_backend"`
	RedisURL       string `yaml:"redis_url"`
	DatabaseURL    string `yaml:"database_url"`

	RabbitMQURL      string        `yaml:"rabbitmq_url"`
	RabbitMQPrefetch int           `yaml:"rabbitmq_prefetch"`
	DLQRetention     time.Duration `yaml:"dlq_retention"`
	DLQGCInterval    time.Duration `yaml:"dlq_gc_interval"`

	RateLimit string `yaml:"rate_limit"`

	OTELEnabled  bool   `yaml:"otel_enabled"`
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELInsecure bool   `yaml:"otel_insecure"`

	ServerDebugMode bool   `yaml:"server_debug_mode"`
	WorkerDebugMode bool   `yaml:"worker_debug_mode"`
	LogFormat       string `yaml:"log_format"`
	LogFile         string `yaml:"log_file"`
	LogMaxSizeMB    int    `yaml:"log_max_size_mb"`
	LogMaxBackups   int    `yaml:"log_max_backups"`
	LogMaxAgeDays   int    `yaml:"log_max_age_days"`

	GoogleCalendarName    string `yaml:"google_calendar_name"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`
	GoogleTokenFile       string `yaml:"google_token_file"`
	Timezone              string `yaml:"timezone"`

	DefaultStartTime  string `yaml:"default_start_time"`
	ChatHistoryWindow int    `yaml:"chat_history_window"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		ServerPort:        "8080",
		BaseURL:           "http://localhost:8080",
		FrontendURL:       "http://localhost:3000",
		AIProvider:        "openai",
		AITimeout:         60 * time.Second,
		StorageBackend:    "memory",
		RabbitMQPrefetch:  1,
		DLQRetention:      7 * 24 * time.Hour,
		DLQGCInterval:     time.Hour,
		RateLimit:         "10-M",
		LogFormat:         "json",
		LogMaxSizeMB:      100,
		LogMaxBackups:     3,
		LogMaxAgeDays:     28,
		Timezone:          "Local",
		DefaultStartTime:  timeutil.DefaultStart,
		ChatHistoryWindow: 6,
	}
}

// Load builds configuration from defaults, then the optional YAML file named
// by CONFIG_FILE, then environment variables. Environment always wins.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	cfg.overlayEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.BaseURL = getEnv("BASE_URL", c.BaseURL)
	c.FrontendURL = getEnv("FRONTEND_URL", c.FrontendURL)
	c.EnableHSTS = getEnvBool("ENABLE_HSTS", c.EnableHSTS)

	c.OpenAIKey = getEnv("OPENAI_API_KEY", c.OpenAIKey)
	c.AIProvider = getEnv("AI_PROVIDER", c.AIProvider)
	c.AIModel = getEnv("AI_MODEL", c.AIModel)
	c.AIBaseURL = getEnv("AI_BASE_URL", c.AIBaseURL)
	c.AITimeout = getEnvDuration("AI_TIMEOUT", c.AITimeout)

	c.StorageBackend = strings.ToLower(getEnv("STORAGE_BACKEND", c.StorageBackend))
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)

	c.RabbitMQURL = getEnv("RABBITMQ_URL", c.RabbitMQURL)
	c.RabbitMQPrefetch = getEnvInt("RABBITMQ_PREFETCH", c.RabbitMQPrefetch)
	c.DLQRetention = getEnvDuration("DLQ_RETENTION", c.DLQRetention)
	c.DLQGCInterval = getEnvDuration("DLQ_GC_INTERVAL", c.DLQGCInterval)

	c.RateLimit = getEnv("RATE_LIMIT", c.RateLimit)

	c.OTELEnabled = getEnvBool("OTEL_ENABLED", c.OTELEnabled)
	c.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTELEndpoint)
	c.OTELInsecure = getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", c.OTELInsecure)

	c.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", c.ServerDebugMode)
	c.WorkerDebugMode = getEnvBool("WORKER_DEBUG_MODE", c.WorkerDebugMode)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.LogMaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", c.LogMaxSizeMB)
	c.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", c.LogMaxBackups)
	c.LogMaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", c.LogMaxAgeDays)

	c.GoogleCalendarName = getEnv("GOOGLE_CALENDAR_NAME", c.GoogleCalendarName)
	c.GoogleCredentialsFile = getEnv("GOOGLE_CREDENTIALS_FILE", c.GoogleCredentialsFile)
	c.GoogleTokenFile = getEnv("GOOGLE_TOKEN_FILE", c.GoogleTokenFile)
	c.Timezone = getEnv("TZ_NAME", c.Timezone)

	c.DefaultStartTime = getEnv("DEFAULT_START_TIME", c.DefaultStartTime)
	c.ChatHistoryWindow = getEnvInt("CHAT_HISTORY_WINDOW", c.ChatHistoryWindow)
}

// Validate checks cross-field requirements
func (c *Config) Validate() error {
	var errs []error
	switch c.StorageBackend {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when STORAGE_BACKEND=redis"))
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q (want memory, redis or postgres)", c.StorageBackend))
	}
	if _, err := timeutil.ToMinutes(c.DefaultStartTime); err != nil {
		errs = append(errs, fmt.Errorf("DEFAULT_START_TIME: %w", err))
	}
	if c.AITimeout <= 0 {
		errs = append(errs, errors.New("AI_TIMEOUT must be positive"))
	}
	if c.ChatHistoryWindow <= 0 {
		errs = append(errs, errors.New("CHAT_HISTORY_WINDOW must be positive"))
	}
	if c.RabbitMQPrefetch <= 0 {
		errs = append(errs, errors.New("RABBITMQ_PREFETCH must be positive"))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TZ_NAME: %w", err))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone; invalid names were rejected by Validate
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
