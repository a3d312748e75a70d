package config

import "time"

// Config holds all application configuration parameters.
// It is organized into logical sections for different parts of the application.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`

	// Database contains storage connection settings.
	Database DatabaseConfig `mapstructure:"database"`

	// Gemini contains settings for the Gemini-backed OCR and translation clients.
	Gemini GeminiConfig `mapstructure:"gemini"`

	// Pipeline contains gaze pipeline and per-request timeout settings.
	Pipeline PipelineConfig `mapstructure:"pipeline"`

	// Retention contains tunables for the memory retention model.
	Retention RetentionConfig `mapstructure:"retention"`

	// Task contains background maintenance settings.
	Task TaskConfig `mapstructure:"task"`
}

// ServerConfig contains HTTP server-related configuration.
type ServerConfig struct {
	// Port is the network port the server listens on.
	// Validation requires a value between 1 and 65535.
	Port int `mapstructure:"port" validate:"required,gt=0,lt=65536"`

	// LogLevel controls the application's logging verbosity.
	// Valid values: "debug", "info", "warn", "error".
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains database connection configuration.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. When empty the server runs
	// with the in-memory fragment store, which is intended for local
	// development and tests only.
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// GeminiConfig contains settings for the Google Gemini API clients.
type GeminiConfig struct {
	// APIKey is the API key used to authenticate against the Gemini API.
	APIKey string `mapstructure:"api_key" validate:"required"`

	// OCRModel is the model used for text extraction from frame captures.
	OCRModel string `mapstructure:"ocr_model" validate:"required"`

	// TranslationModel is the model used for fragment translation.
	TranslationModel string `mapstructure:"translation_model" validate:"required"`

	// MaxRetries is the number of retries for transient API failures.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0,lte=10"`

	// RetryDelay is the base delay between retries. Each attempt backs off
	// exponentially from this value.
	RetryDelay time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
}

// PipelineConfig contains gaze pipeline settings shared by new sessions,
// plus the per-stage timeouts enforced by the lookup orchestrator.
type PipelineConfig struct {
	// OCRTimeout bounds a single text extraction call.
	OCRTimeout time.Duration `mapstructure:"ocr_timeout" validate:"required,gt=0"`

	// TranslationTimeout bounds a single translation call.
	TranslationTimeout time.Duration `mapstructure:"translation_timeout" validate:"required,gt=0"`

	// FixationRadiusPx is the default stability radius for fixation
	// detection, in pixels.
	FixationRadiusPx float64 `mapstructure:"fixation_radius_px" validate:"required,gt=0"`

	// FixationMinDuration is the default dwell time required before a
	// fixation fires.
	FixationMinDuration time.Duration `mapstructure:"fixation_min_duration" validate:"required,gt=0"`

	// FixationMinConfidence is the default tracker confidence below which
	// samples are ignored.
	FixationMinConfidence float64 `mapstructure:"fixation_min_confidence" validate:"gte=0,lte=1"`

	// DefaultTargetLang is the target language assigned to sessions that do
	// not specify one.
	DefaultTargetLang string `mapstructure:"default_target_lang" validate:"required"`
}

// RetentionConfig contains tunables for the retention model. Zero values
// fall back to the model's built-in defaults.
type RetentionConfig struct {
	// RememberedThreshold is the retention probability above which a
	// fragment is considered remembered.
	RememberedThreshold float64 `mapstructure:"remembered_threshold" validate:"gte=0,lte=1"`

	// LowSuccessRate is the success-rate band edge below which review
	// intervals step back.
	LowSuccessRate float64 `mapstructure:"low_success_rate" validate:"gte=0,lte=1"`

	// HighSuccessRate is the success-rate band edge above which review
	// intervals step forward.
	HighSuccessRate float64 `mapstructure:"high_success_rate" validate:"gte=0,lte=1"`
}

// TaskConfig contains background maintenance settings.
type TaskConfig struct {
	// WorkerCount is the number of background task workers.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0,lte=32"`

	// QueueSize is the capacity of the background task queue.
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`

	// StuckTaskAge is the age after which an in-flight task is considered
	// abandoned and logged.
	StuckTaskAge time.Duration `mapstructure:"stuck_task_age" validate:"required,gt=0"`

	// PurgeInterval is how often the stale-fragment purge runs.
	PurgeInterval time.Duration `mapstructure:"purge_interval" validate:"required,gt=0"`

	// PurgeHorizon is the minimum age a fragment must reach before it is
	// eligible for purging.
	PurgeHorizon time.Duration `mapstructure:"purge_horizon" validate:"required,gt=0"`

	// PurgeRetentionFloor is the retention probability below which a stale
	// fragment may be purged.
	PurgeRetentionFloor float64 `mapstructure:"purge_retention_floor" validate:"gte=0,lte=1"`
}
