package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Worker     WorkerConfig     `mapstructure:"worker"     validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm"        validate:"required"`
	Downstream DownstreamConfig `mapstructure:"downstream"`
}

// ServerConfig contains all HTTP-server-related configuration settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port"       validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level"  validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json text"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// WorkerConfig contains the job-processing tunables. Durations that the
// original design hard-coded (idle poll, error backoff, retry spacing) are
// exposed here rather than hidden as constants.
type WorkerConfig struct {
	// PollIntervalSeconds is the idle wait between claim attempts when the
	// queue is empty.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" validate:"required,gt=0"`

	// ErrorBackoffSeconds is the longer wait applied after a claim-side
	// failure, to avoid hot-looping against a failing store.
	ErrorBackoffSeconds int `mapstructure:"error_backoff_seconds" validate:"required,gt=0"`

	// RetryDelaySeconds is the fixed wait between analysis retries for a word.
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"required,gt=0"`

	// RetentionDays is how long terminal jobs are kept before the sweep
	// deletes them.
	RetentionDays int `mapstructure:"retention_days" validate:"required,gt=0"`

	// SweepSchedule is the cron spec for the retention and approval sweeps.
	SweepSchedule string `mapstructure:"sweep_schedule" validate:"required"`
}

// LLMConfig contains the word-analyzer integration settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`
}

// DownstreamConfig configures the handoff of finished wordbooks to the main
// application. An empty URL disables the handoff (the job still completes).
type DownstreamConfig struct {
	URL            string `mapstructure:"url"             validate:"omitempty,url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"required,gt=0"`
}

// PollInterval returns the idle claim wait as a duration.
func (c WorkerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ErrorBackoff returns the claim-failure wait as a duration.
func (c WorkerConfig) ErrorBackoff() time.Duration {
	return time.Duration(c.ErrorBackoffSeconds) * time.Second
}

// RetryDelay returns the per-word retry spacing as a duration.
func (c WorkerConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// Retention returns the terminal-job retention window as a duration.
func (c WorkerConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Timeout returns the handoff timeout as a duration.
func (c DownstreamConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
