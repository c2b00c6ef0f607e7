// Package config defines the configuration surface for the trip guardian
// worker. Configuration is loaded once at process start and is immutable
// thereafter, following 12-Factor principles: OS environment (highest
// priority) over a local .env file.
//
// Any missing required value or invalid format fails the process immediately
// on startup.
package config

import (
	"time"

	"tripguardian/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used for sensitive configuration values.
type SecretString = types.SecretString

// Config is the top-level configuration for the guardian worker process.
// Sub-components receive only the subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Guardian GuardianConfig
	Database DatabaseConfig
	Engine   EngineConfig
	AWS      AWSConfig
	Ops      OpsConfig
}

// GuardianConfig tunes the monitoring worker loop and its feature gates.
type GuardianConfig struct {
	// WorkerEnabled is the master switch for the scheduled loop. The
	// façade (manual triggers included) works regardless.
	WorkerEnabled bool `envconfig:"WORKER_ENABLED" default:"true"`

	// WakeInterval is the loop cadence. Independent of any trip's own
	// monitoring interval.
	WakeInterval time.Duration `envconfig:"WORKER_WAKE_INTERVAL" default:"1m" validate:"min=1s"`

	// BatchSize caps the trips pulled per cycle.
	BatchSize int `envconfig:"WORKER_BATCH_SIZE" default:"25" validate:"min=1"`

	// Per-checker and feature gates.
	WeatherCheckEnabled  bool `envconfig:"CHECK_WEATHER_ENABLED" default:"true"`
	AlertCheckEnabled    bool `envconfig:"CHECK_ALERTS_ENABLED" default:"true"`
	DeltaPlansEnabled    bool `envconfig:"DELTA_PLANS_ENABLED" default:"true"`
	NotificationsEnabled bool `envconfig:"NOTIFICATIONS_ENABLED" default:"true"`

	// AlertLookbackDays is the civil-alert search window sent upstream.
	AlertLookbackDays int `envconfig:"ALERT_LOOKBACK_DAYS" default:"7" validate:"min=1"`

	// HistoryMaxChecks caps embedded monitoring history; older checks are
	// compressed into the archive table.
	HistoryMaxChecks int `envconfig:"HISTORY_MAX_CHECKS" default:"200" validate:"min=10"`
}

// DatabaseConfig holds the persistence store connection settings.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// EngineConfig holds Reasoning Engine client settings.
type EngineConfig struct {
	BaseURL string       `envconfig:"ENGINE_BASE_URL" validate:"required,url"`
	APIKey  SecretString `envconfig:"ENGINE_API_KEY" validate:"required"`

	// Timeout bounds every upstream call, distinct from the worker cadence.
	Timeout time.Duration `envconfig:"ENGINE_TIMEOUT" default:"60s" validate:"min=1s"`
}

// AWSConfig holds AWS resource identifiers for dispatch and metrics.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// NotificationQueue is the SQS fan-out queue consumed by the external
	// push/email/SMS dispatch workers. Empty disables SQS dispatch (the
	// log dispatcher is used instead).
	NotificationQueue string `envconfig:"SQS_NOTIFICATION_QUEUE"`

	// MetricsNamespace for CloudWatch. Empty disables metric emission.
	MetricsNamespace string `envconfig:"METRICS_NAMESPACE" default:"TripGuardian/Monitor"`

	// EndpointURL supports LocalStack in development. Empty in prod.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// OpsConfig holds the worker's process-health surface settings.
type OpsConfig struct {
	HealthPort string `envconfig:"HEALTH_PORT" default:"8090"`
}
