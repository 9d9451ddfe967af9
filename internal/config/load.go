package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over file values and use the WORDBOOK_ prefix with
// underscores for nesting (e.g. WORDBOOK_DATABASE_URL,
// WORDBOOK_LLM_GEMINI_API_KEY).
// Returns a populated Config or an error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("WORDBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers a default for every tunable so that a minimal
// environment (database URL + API key) is enough to start.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 32756)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")

	v.SetDefault("worker.poll_interval_seconds", 5)
	v.SetDefault("worker.error_backoff_seconds", 10)
	v.SetDefault("worker.retry_delay_seconds", 20)
	v.SetDefault("worker.retention_days", 7)
	v.SetDefault("worker.sweep_schedule", "@hourly")

	v.SetDefault("llm.model_name", "gemini-2.0-flash-lite")

	v.SetDefault("downstream.timeout_seconds", 30)
	v.SetDefault("downstream.url", "")

	// Registered empty so AutomaticEnv picks these up during Unmarshal;
	// validation rejects them if they stay empty.
	v.SetDefault("database.url", "")
	v.SetDefault("llm.gemini_api_key", "")
}
