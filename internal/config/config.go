package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
	Report   ReportConfig   `mapstructure:"report"   validate:"required"`
	Export   ExportConfig   `mapstructure:"export"   validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`
}

// WorkerConfig tunes the background worker loops.
type WorkerConfig struct {
	// PollIntervalSeconds is how long an idle loop sleeps between polls.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" validate:"required,gt=0"`

	// ErrorPauseSeconds is the extra pause after a handler error, to avoid
	// hot-looping on a systemic failure.
	ErrorPauseSeconds int `mapstructure:"error_pause_seconds" validate:"required,gt=0"`

	// MaxAttempts caps retries for pending meal and clarification rows.
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,gt=0"`
}

// ReportConfig tunes report generation and the report cache.
type ReportConfig struct {
	// Timezone is the IANA zone used to compute period starts in the
	// owner's local calendar.
	Timezone string `mapstructure:"timezone" validate:"required"`

	// StaleAfterMinutes is how long a processing report may run before the
	// staleness sweep treats it as abandoned.
	StaleAfterMinutes int `mapstructure:"stale_after_minutes" validate:"required,gt=0"`
}

// ExportConfig configures document export output.
type ExportConfig struct {
	// Dir is the directory rendered documents are written to.
	Dir string `mapstructure:"dir" validate:"required"`
}
