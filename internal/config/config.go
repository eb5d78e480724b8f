// Package config provides configuration loading and validation for the service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config represents the service configuration. Values can come from a JSON
// file, from environment variables, or from defaults; environment wins over
// the file, flags win over both.
type Config struct {
	// Server
	Port int `json:"port,omitempty"` // HTTP listen port

	// Backends
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key

	// Model selection
	Model string `json:"model,omitempty"` // Override for the default analysis model

	// Catalog identity
	CatalogNamespace string `json:"catalog_namespace,omitempty"` // Postgres schema holding the catalog
	CatalogTable     string `json:"catalog_table,omitempty"`     // Catalog table name

	// Logging
	LogJSON bool `json:"log_json,omitempty"` // Emit JSON logs instead of console logs
	Debug   bool `json:"debug,omitempty"`    // Enable debug-level logging
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
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

// FromEnv builds a Config from environment variables. Unset variables leave
// their fields at the zero value so MergeWithDefaults can fill them.
func FromEnv() Config {
	cfg := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		APIKey:           os.Getenv("GEMINI_API_KEY"),
		Model:            os.Getenv("ANALYSIS_MODEL"),
		CatalogNamespace: os.Getenv("CATALOG_NAMESPACE"),
		CatalogTable:     os.Getenv("CATALOG_TABLE"),
	}

	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("LOG_JSON"); v != "" {
		cfg.LogJSON, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Debug, _ = strconv.ParseBool(v)
	}

	return cfg
}

// Validate checks that the configuration has valid values.
// Required fields (database URL, API key) are enforced by the serve command
// after merging, not here.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.CatalogNamespace == "" {
		result.CatalogNamespace = defaults.CatalogNamespace
	}
	if result.CatalogTable == "" {
		result.CatalogTable = defaults.CatalogTable
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (environment and flags should always win for bools)

	return result
}
