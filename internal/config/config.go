// Package config loads application configuration from the environment and
// implements the interfaces declared in platform/config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueue       string
	AsynqConcurrency int

	StageTablePath       string
	MilestoneCatchUpDays int
	BatchInterval        time.Duration

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	GenAIAPIKey    string
	GenAIModel     string
	ContentTimeout time.Duration
}

// Load reads configuration from the environment (and an optional .env file).
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := boolEnv("CORS_ALLOW_ALL", false)
	for _, origin := range corsOrigins {
		if origin == "*" {
			corsAllowAll = true
		}
	}

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  boolEnv("CORS_ALLOW_CREDENTIALS", true),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: boolEnv("REDIS_TLS_INSECURE", false),
		AsynqQueue:       getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: intEnv("ASYNQ_CONCURRENCY", 10),

		StageTablePath:       getEnv("STAGE_TABLE_PATH", ""),
		MilestoneCatchUpDays: intEnv("MILESTONE_CATCHUP_DAYS", 0),
		BatchInterval:        durationEnv("BATCH_INTERVAL", 24*time.Hour),

		EmailEnabled:     boolEnv("EMAIL_ENABLED", false),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         intEnv("SMTP_PORT", 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "NutriCoach"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),

		GenAIAPIKey:    getEnv("GENAI_API_KEY", ""),
		GenAIModel:     getEnv("GENAI_MODEL", "gemini-2.0-flash"),
		ContentTimeout: durationEnv("CONTENT_TIMEOUT", 45*time.Second),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" && !strings.EqualFold(cfg.Env, "development") {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required outside development")
	}
	if cfg.EmailEnabled && cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP_HOST is required when EMAIL_ENABLED=true")
	}

	return cfg, nil
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueue }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// LifecycleConfig implementation
func (c *Config) GetStageTablePath() string       { return c.StageTablePath }
func (c *Config) GetMilestoneCatchUpDays() int    { return c.MilestoneCatchUpDays }
func (c *Config) GetBatchInterval() time.Duration { return c.BatchInterval }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool      { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string        { return c.SMTPHost }
func (c *Config) GetSMTPPort() int           { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string    { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string    { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string   { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// ContentConfig implementation
func (c *Config) GetGenAIAPIKey() string           { return c.GenAIAPIKey }
func (c *Config) GetGenAIModel() string            { return c.GenAIModel }
func (c *Config) GetContentTimeout() time.Duration { return c.ContentTimeout }
func (c *Config) IsContentEnabled() bool           { return c.GenAIAPIKey != "" }

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	return strings.EqualFold(raw, "true")
}

func intEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
