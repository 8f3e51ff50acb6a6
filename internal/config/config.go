package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Batch      BatchConfig      `mapstructure:"batch" validate:"required"`
	Cache      CacheConfig      `mapstructure:"cache" validate:"required"`
	Recruiting RecruitingConfig `mapstructure:"recruiting" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=1"`
}

// Supported language-model providers.
const (
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// LLMConfig contains the language-model provider and the call limits that
// protect it.
type LLMConfig struct {
	Provider           string  `mapstructure:"provider" validate:"required,oneof=openai gemini openrouter"`
	OpenAIAPIKey       string  `mapstructure:"openai_api_key" validate:"required_if=Provider openai"`
	GeminiAPIKey       string  `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`
	OpenRouterAPIKey   string  `mapstructure:"openrouter_api_key" validate:"required_if=Provider openrouter"`
	Model              string  `mapstructure:"model" validate:"required"`
	BaseURL            string  `mapstructure:"base_url" validate:"omitempty,url"`
	CallTimeoutSeconds int     `mapstructure:"call_timeout_seconds" validate:"gt=0"`
	ConcurrencyLimit   int     `mapstructure:"concurrency_limit" validate:"gt=0"`
	RequestsPerSecond  float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	MaxResponseBytes   int     `mapstructure:"max_response_bytes" validate:"gt=0"`
	MaxTokens          int     `mapstructure:"max_tokens" validate:"gt=0"`
	Temperature        float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	PromptTemplatePath string  `mapstructure:"prompt_template_path" validate:"omitempty,file"`
}

// BatchConfig controls the polling scheduler and its recovery sweeps.
type BatchConfig struct {
	Enabled                     bool `mapstructure:"enabled"`
	Size                        int  `mapstructure:"size" validate:"gt=0"`
	IntervalSeconds             int  `mapstructure:"interval_seconds" validate:"gt=0"`
	InitialDelaySeconds         int  `mapstructure:"initial_delay_seconds" validate:"gte=0"`
	RetryDelaySeconds           int  `mapstructure:"retry_delay_seconds" validate:"gt=0"`
	RetryIntervalSeconds        int  `mapstructure:"retry_interval_seconds" validate:"gt=0"`
	TimeoutCheckIntervalSeconds int  `mapstructure:"timeout_check_interval_seconds" validate:"gt=0"`
	ProcessingTimeoutMinutes    int  `mapstructure:"processing_timeout_minutes" validate:"gt=0"`
	MaxRetries                  int  `mapstructure:"max_retries" validate:"gte=0"`
	WaitTimeoutSeconds          int  `mapstructure:"wait_timeout_seconds" validate:"gt=0"`
	WorkerCount                 int  `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize                   int  `mapstructure:"queue_size" validate:"gt=0"`
}

// CacheConfig bounds the in-process result cache.
type CacheConfig struct {
	MaxEntries  int `mapstructure:"max_entries" validate:"gt=0"`
	MaxAgeHours int `mapstructure:"max_age_hours" validate:"gt=0"`
}

// Recruiting window sources.
const (
	WindowSourceDatabase = "database"
	WindowSourceStatic   = "static"
	WindowSourceEvents   = "events"
)

// RecruitingConfig selects how the sweeps decide whether an intake window is open.
type RecruitingConfig struct {
	Source     string `mapstructure:"source" validate:"required,oneof=database static events"`
	StaticOpen bool   `mapstructure:"static_open"`
}
