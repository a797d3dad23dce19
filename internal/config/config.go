package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cast"
)

type LLMConfig struct {
	Provider      string `toml:"provider" validate:"oneof=deepseek openai ollama claude gemini"`
	Model         string `toml:"model" validate:"required"`
	APIKey        string `toml:"api_key"`
	BaseURL       string `toml:"base_url"`
	MaxTokens     int    `toml:"max_tokens" validate:"min=1"`
	MaxIterations int    `toml:"max_iterations" validate:"min=1"`
}

type RetryConfig struct {
	MaxAttempts       int `toml:"max_attempts" validate:"min=1"`
	InitialIntervalMS int `toml:"initial_interval_ms" validate:"min=0"`
	MaxIntervalMS     int `toml:"max_interval_ms" validate:"min=0"`
}

type SearchConfig struct {
	APIKey         string      `toml:"api_key"`
	Endpoint       string      `toml:"endpoint" validate:"required,http_url"`
	Lang           string      `toml:"lang" validate:"required"`
	TimeoutSeconds float64     `toml:"timeout_seconds" validate:"gt=0"`
	RatePerSecond  float64     `toml:"rate_per_second" validate:"min=0"`
	Retry          RetryConfig `toml:"retry"`
}

type CacheConfig struct {
	TTLSeconds int    `toml:"ttl_seconds" validate:"min=0"`
	File       string `toml:"file"`
	RedisAddr  string `toml:"redis_addr"`
	RedisKey   string `toml:"redis_key"`
	DebounceMS int    `toml:"debounce_ms" validate:"min=0"`
}

type ServerConfig struct {
	Port string `toml:"port" validate:"required"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format" validate:"oneof=json text"`
}

type ConcurrencyConfig struct {
	Batch int `toml:"batch" validate:"min=1"`
}

type Config struct {
	LLM         LLMConfig         `toml:"llm"`
	Search      SearchConfig      `toml:"search"`
	Cache       CacheConfig       `toml:"cache"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:      "deepseek",
			Model:         "deepseek-chat",
			BaseURL:       "https://api.deepseek.com",
			MaxTokens:     2048,
			MaxIterations: 5,
		},
		Search: SearchConfig{
			Endpoint:       "https://api.search.brave.com/res/v1/web/search",
			Lang:           "en",
			TimeoutSeconds: 20,
			Retry: RetryConfig{
				MaxAttempts:       3,
				InitialIntervalMS: 1000,
				MaxIntervalMS:     10000,
			},
		},
		Cache: CacheConfig{
			TTLSeconds: 300,
			RedisKey:   "truthseeker:search-cache",
			DebounceMS: 2000,
		},
		Server:      ServerConfig{Port: "8080"},
		Log:         LogConfig{Level: "info", Format: "json"},
		Concurrency: ConcurrencyConfig{Batch: 3},
	}
}

// Load reads a TOML file on top of the defaults. Keys missing from the file keep their default.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads CONFIG_PATH (or the given fallback path) when it exists, applies environment
// overrides and validates the result.
func LoadFromEnv(fallbackPath string) (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = fallbackPath
	}

	cfg := Default()
	if path != "" {
		loaded, err := Load(path)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, fs.ErrNotExist) && os.Getenv("CONFIG_PATH") == "":
			// optional
		default:
			return nil, err
		}
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := getenv("DEEPSEEK_API_KEY"); v != "" && c.LLM.Provider == "deepseek" {
		c.LLM.APIKey = v
	}
	if v := getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := getenv("BRAVE_API_KEY"); v != "" {
		c.Search.APIKey = v
	}
	if v, err := cast.ToFloat64E(getenv("HTTP_TIMEOUT_SECONDS")); err == nil && v > 0 {
		c.Search.TimeoutSeconds = v
	}
	if v, err := cast.ToIntE(getenv("SEARCH_CACHE_TTL")); err == nil && getenv("SEARCH_CACHE_TTL") != "" {
		c.Cache.TTLSeconds = v
	}
	if v := getenv("SEARCH_CACHE_FILE"); v != "" {
		c.Cache.File = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := getenv("PORT"); v != "" {
		c.Server.Port = v
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Search.TimeoutSeconds * float64(time.Second))
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c *Config) CacheDebounce() time.Duration {
	return time.Duration(c.Cache.DebounceMS) * time.Millisecond
}
