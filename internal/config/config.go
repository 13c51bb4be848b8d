// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values
const (
	EnvAPIKey        = "GEMINI_API_KEY"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvMaxConcurrent = "INSIGHTS_MAX_CONCURRENT"
)

// Default values applied by MergeWithDefaults
const (
	DefaultMaxConcurrent     = 5
	DefaultTopN              = 5
	DefaultMinLength         = 5
	DefaultToxicityThreshold = 0.8
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Gemini
	APIKey string `json:"api_key,omitempty" yaml:"api_key"`
	// Model overrides the lite-tier model used for feature extraction
	Model string `json:"model,omitempty" yaml:"model"`
	// RequestsPerSecond paces AI calls; 0 disables rate limiting
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second" validate:"gte=0"`
	// MaxConcurrent caps simultaneous in-flight AI calls
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent" validate:"gte=0,lte=64"`
	// PromptLanguage picks the extraction prompt; empty means English
	PromptLanguage string `json:"prompt_language,omitempty" yaml:"prompt_language" validate:"omitempty,oneof=en ko"`

	// Filtering and selection
	TopN              int      `json:"top_n,omitempty" yaml:"top_n" validate:"gte=0,lte=100"`
	MinLength         int      `json:"min_length,omitempty" yaml:"min_length" validate:"gte=0"`
	SpamKeywords      []string `json:"spam_keywords,omitempty" yaml:"spam_keywords" validate:"dive,required"`
	ToxicityThreshold float64  `json:"toxicity_threshold,omitempty" yaml:"toxicity_threshold" validate:"gte=0,lte=1"`

	// DatabaseURL is the PostgreSQL connection URL for run history
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url"`

	// Verbose prints insight boxes after a run
	Verbose bool `json:"verbose,omitempty" yaml:"verbose"`
}

var validate = validator.New()

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
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
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// ApplyEnv fills empty fields from environment variables
func (c *Config) ApplyEnv() error {
	if c.APIKey == "" {
		c.APIKey = os.Getenv(EnvAPIKey)
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv(EnvDatabaseURL)
	}
	if v := os.Getenv(EnvMaxConcurrent); v != "" && c.MaxConcurrent == 0 {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: %s must be an integer: %w", EnvMaxConcurrent, err)
		}
		c.MaxConcurrent = n
	}
	return nil
}

// Validate checks that the configuration has valid values.
// Required fields are checked by the commands that need them.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: '%s' failed '%s' check (value: %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
// Config file values act as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.PromptLanguage == "" {
		result.PromptLanguage = defaults.PromptLanguage
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if len(result.SpamKeywords) == 0 {
		result.SpamKeywords = defaults.SpamKeywords
	}

	if result.MaxConcurrent == 0 {
		result.MaxConcurrent = firstPositive(defaults.MaxConcurrent, DefaultMaxConcurrent)
	}
	if result.TopN == 0 {
		result.TopN = firstPositive(defaults.TopN, DefaultTopN)
	}
	if result.MinLength == 0 {
		result.MinLength = firstPositive(defaults.MinLength, DefaultMinLength)
	}
	if result.RequestsPerSecond == 0 {
		result.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if result.ToxicityThreshold == 0 {
		if defaults.ToxicityThreshold > 0 {
			result.ToxicityThreshold = defaults.ToxicityThreshold
		} else {
			result.ToxicityThreshold = DefaultToxicityThreshold
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
