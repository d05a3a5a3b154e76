// Package config provides configuration loading and validation for the CLI and HTTP server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied by MergeWithDefaults when a field is unset.
const (
	DefaultProvider              = "gemini"
	DefaultMinTextLength         = 80
	DefaultMaxUploadBytes        = 10 << 20
	DefaultRequestTimeoutSeconds = 120
	DefaultPort                  = 8080
)

// Environment variables read by ApplyEnv.
const (
	EnvAPIKey      = "GEMINI_API_KEY"
	EnvProvider    = "RESUME_IMPORT_PROVIDER"
	EnvModel       = "RESUME_IMPORT_MODEL"
	EnvBaseURL     = "RESUME_IMPORT_BASE_URL"
	EnvDatabaseURL = "DATABASE_URL"
	EnvMinText     = "RESUME_IMPORT_MIN_TEXT"
)

// Config is the importer configuration. It can be loaded from a JSON file, overlaid with
// environment variables and finally with CLI flags.
type Config struct {
	// Extraction service
	Provider string `json:"provider,omitempty" validate:"omitempty,oneof=gemini openai local rules"`
	APIKey   string `json:"api_key,omitempty"`
	Model    string `json:"model,omitempty"`
	BaseURL  string `json:"base_url,omitempty" validate:"omitempty,url"`

	// Limits
	MinTextLength         int   `json:"min_text_length,omitempty" validate:"gte=0"`
	MaxUploadBytes        int64 `json:"max_upload_bytes,omitempty" validate:"gte=0"`
	RequestTimeoutSeconds int   `json:"request_timeout_seconds,omitempty" validate:"gte=0"`

	// Storage and serving
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	Port        int    `json:"port,omitempty" validate:"gte=0,lte=65535"`

	Verbose bool `json:"verbose,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv fills empty fields from the environment.
func (c *Config) ApplyEnv() error {
	setIfEmpty(&c.APIKey, EnvAPIKey)
	setIfEmpty(&c.Provider, EnvProvider)
	setIfEmpty(&c.Model, EnvModel)
	setIfEmpty(&c.BaseURL, EnvBaseURL)
	setIfEmpty(&c.DatabaseURL, EnvDatabaseURL)

	if c.MinTextLength == 0 {
		if v := os.Getenv(EnvMinText); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config error: %s must be an integer: %w", EnvMinText, err)
			}
			c.MinTextLength = n
		}
	}
	return nil
}

func setIfEmpty(field *string, env string) {
	if *field == "" {
		*field = os.Getenv(env)
	}
}

// Validate checks that the configuration has valid values.
// Required fields are checked by the commands after merging.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults, then
// from the built-in defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Provider == "" {
		result.Provider = firstNonEmpty(defaults.Provider, DefaultProvider)
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.BaseURL == "" {
		result.BaseURL = defaults.BaseURL
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	if result.MinTextLength == 0 {
		result.MinTextLength = firstPositive(defaults.MinTextLength, DefaultMinTextLength)
	}
	if result.MaxUploadBytes == 0 {
		result.MaxUploadBytes = int64(firstPositive(int(defaults.MaxUploadBytes), DefaultMaxUploadBytes))
	}
	if result.RequestTimeoutSeconds == 0 {
		result.RequestTimeoutSeconds = firstPositive(defaults.RequestTimeoutSeconds, DefaultRequestTimeoutSeconds)
	}
	if result.Port == 0 {
		result.Port = firstPositive(defaults.Port, DefaultPort)
	}

	// Bools cannot distinguish unset from false; CLI flags always win
	return result
}

// RequestTimeout returns the extraction service timeout.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return DefaultRequestTimeoutSeconds * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
