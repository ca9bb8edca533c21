// Package config provides the configuration interfaces consumed by the
// platform layer and the domain modules. Each module depends only on the
// narrow interface it needs; the concrete implementation lives in
// internal/config.
package config

import "time"

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for the admin middleware.
// Token issuance is handled by an external identity provider; the backend
// only verifies access tokens.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// LifecycleConfig provides settings for the program lifecycle engine.
type LifecycleConfig interface {
	// GetStageTablePath returns the optional YAML file overriding the
	// built-in service-type stage tables. Empty means built-in defaults.
	GetStageTablePath() string
	// GetMilestoneCatchUpDays returns how many days past its exact day a
	// milestone is still considered due. Zero keeps strict exact-day
	// matching.
	GetMilestoneCatchUpDays() int
	// GetBatchInterval returns the cadence of the scheduled batch run.
	GetBatchInterval() time.Duration
}

// EmailConfig provides settings for the SMTP milestone notifier.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// ContentConfig provides settings for the AI content producer.
type ContentConfig interface {
	GetGenAIAPIKey() string
	GetGenAIModel() string
	GetContentTimeout() time.Duration
	IsContentEnabled() bool
}
