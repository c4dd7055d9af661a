// Package config provides explicit configuration for the comparable finder.
// Configuration is constructed once at startup and passed to the pipeline
// entry points; there is no process-global client or state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Defaults applied when neither file, env, nor flags set a value.
const (
	DefaultPort           = 8080
	DefaultHistoryFile    = "results_cache/results_history.json"
	DefaultMinResults     = 3
	DefaultMaxResults     = 10
	DefaultScoreThreshold = 6
)

// Config holds runtime configuration. All fields are optional in the JSON
// file; missing values are filled from environment variables and defaults.
type Config struct {
	Port           int    `json:"port,omitempty"`
	APIKey         string `json:"api_key,omitempty"`          // Gemini API key
	DatabaseURL    string `json:"database_url,omitempty"`     // optional PostgreSQL history store
	HistoryFile    string `json:"history_file,omitempty"`     // JSON history file path
	UseBrowser     bool   `json:"use_browser,omitempty"`      // headless browser for SPA sites
	FetchSite      bool   `json:"fetch_site,omitempty"`       // enrich prompts with a website excerpt
	MinResults     int    `json:"min_results,omitempty"`      // minimum validated candidates
	MaxResults     int    `json:"max_results,omitempty"`      // result list cap
	ScoreThreshold int    `json:"score_threshold,omitempty"`  // similarity acceptance bar (0-10)
	Verbose        bool   `json:"verbose,omitempty"`
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
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

// FillFromEnv fills empty fields from environment variables:
// GEMINI_API_KEY, DATABASE_URL, HISTORY_FILE, PORT.
func (c *Config) FillFromEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.HistoryFile == "" {
		c.HistoryFile = os.Getenv("HISTORY_FILE")
	}
	if c.Port == 0 {
		if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
			c.Port = port
		}
	}
}

// ApplyDefaults fills remaining zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.HistoryFile == "" {
		c.HistoryFile = DefaultHistoryFile
	}
	if c.MinResults == 0 {
		c.MinResults = DefaultMinResults
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.ScoreThreshold == 0 {
		c.ScoreThreshold = DefaultScoreThreshold
	}
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("config error: API key is required (set GEMINI_API_KEY)")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: port %d out of range", c.Port)
	}
	if c.MinResults < 1 {
		return fmt.Errorf("config error: 'min_results' must be at least 1")
	}
	if c.MaxResults < c.MinResults {
		return fmt.Errorf("config error: 'max_results' must be >= 'min_results'")
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 10 {
		return fmt.Errorf("config error: 'score_threshold' must be in 0..10")
	}
	return nil
}
