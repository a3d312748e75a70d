package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and optional config
// files, unmarshals it into the Config struct, validates it, and returns it.
//
// Sources are merged in ascending precedence:
//  1. Built-in defaults
//  2. A config.yaml file in the working directory or ./config, if present
//  3. Environment variables prefixed with GLOSSA_ (e.g. GLOSSA_SERVER_PORT,
//     GLOSSA_DATABASE_URL, GLOSSA_GEMINI_API_KEY)
//
// Returns:
//   - *Config: Fully loaded and validated configuration.
//   - error: File read, unmarshal, or validation failure. A missing config
//     file is not an error; environment variables and defaults suffice.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("GLOSSA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers a default for every config key. Viper only surfaces
// environment variables for keys it already knows about, so keys without a
// meaningful default still get registered with a zero value.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.url", "")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.ocr_model", "gemini-2.0-flash")
	v.SetDefault("gemini.translation_model", "gemini-2.0-flash")
	v.SetDefault("gemini.max_retries", 3)
	v.SetDefault("gemini.retry_delay", 2*time.Second)

	v.SetDefault("pipeline.ocr_timeout", 15*time.Second)
	v.SetDefault("pipeline.translation_timeout", 10*time.Second)
	v.SetDefault("pipeline.fixation_radius_px", 50.0)
	v.SetDefault("pipeline.fixation_min_duration", 1500*time.Millisecond)
	v.SetDefault("pipeline.fixation_min_confidence", 0.5)
	v.SetDefault("pipeline.default_target_lang", "en")

	v.SetDefault("retention.remembered_threshold", 0.30)
	v.SetDefault("retention.low_success_rate", 0.6)
	v.SetDefault("retention.high_success_rate", 0.9)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.stuck_task_age", 30*time.Minute)
	v.SetDefault("task.purge_interval", 24*time.Hour)
	v.SetDefault("task.purge_horizon", 30*24*time.Hour)
	v.SetDefault("task.purge_retention_floor", 0.30)
}
