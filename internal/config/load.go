package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. RECRUIT_BATCH_SIZE.
const EnvPrefix = "RECRUIT"

// ConfigFileEnv names an explicit configuration file to read.
const ConfigFileEnv = EnvPrefix + "_CONFIG_FILE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_minutes", 5)

	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.openrouter_api_key", "")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.call_timeout_seconds", 60)
	v.SetDefault("llm.concurrency_limit", 5)
	v.SetDefault("llm.requests_per_second", 0)
	v.SetDefault("llm.max_response_bytes", 1<<20)
	v.SetDefault("llm.max_tokens", 1500)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.prompt_template_path", "")

	v.SetDefault("batch.enabled", true)
	v.SetDefault("batch.size", 8)
	v.SetDefault("batch.interval_seconds", 5)
	v.SetDefault("batch.initial_delay_seconds", 10)
	v.SetDefault("batch.retry_delay_seconds", 300)
	v.SetDefault("batch.retry_interval_seconds", 300)
	v.SetDefault("batch.timeout_check_interval_seconds", 120)
	v.SetDefault("batch.processing_timeout_minutes", 5)
	v.SetDefault("batch.max_retries", 3)
	v.SetDefault("batch.wait_timeout_seconds", 60)
	v.SetDefault("batch.worker_count", 10)
	v.SetDefault("batch.queue_size", 64)

	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.max_age_hours", 24)

	v.SetDefault("recruiting.source", WindowSourceDatabase)
	v.SetDefault("recruiting.static_open", false)
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// A .env file in the working directory, when present, is loaded into the
// environment first without overriding variables that are already set.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(ConfigFileEnv); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
