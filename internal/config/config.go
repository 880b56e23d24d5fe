// Package config provides configuration management for suggestd.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the suggestd configuration.
type Config struct {
	Daemon     DaemonConfig      `yaml:"daemon"`
	Manager    ManagerConfig     `yaml:"manager"`
	Components []ComponentConfig `yaml:"components"`
}

// DaemonConfig holds daemon-related settings.
type DaemonConfig struct {
	IdleTimeoutMins int    `yaml:"idle_timeout_mins"` // Auto-shutdown after idle (0 = never)
	SocketPath      string `yaml:"socket_path"`       // Unix socket path (overrides default)
	LogLevel        string `yaml:"log_level"`         // debug, info, warn, error
	LogFile         string `yaml:"log_file"`          // Log file path (overrides default)
}

// ManagerConfig selects the pipeline's top-level components and tunables.
type ManagerConfig struct {
	PrimaryAlgo   string `yaml:"primary_algo"`   // Name of the primary retrieval component
	FallbackAlgo  string `yaml:"fallback_algo"`  // Name of the fallback component (empty = none)
	SecondaryAlgo string `yaml:"secondary_algo"` // Name of the secondary component (empty = none)

	PrimaryTwiddler   string `yaml:"primary_twiddler"`   // Rescorer for the primary flow
	SecondaryTwiddler string `yaml:"secondary_twiddler"` // Rescorer for the secondary flow

	Dedupers []string `yaml:"dedupers"` // Deduper chain, applied in order

	ThreadpoolSize int `yaml:"threadpool_size"` // Worker pool size (0 = NumCPU)

	MaxSuggestionsMultiplier int `yaml:"max_suggestions_multiplier"` // Working set widening before dedupe
	MinSecondarySuggestions  int `yaml:"min_secondary_suggestions"`  // Floor for appended secondary results

	InstantMinFreq          float64 `yaml:"instant_min_freq"`                  // Min top-suggestion frequency for instant
	InstantMinSelectionProb float64 `yaml:"instant_min_selection_probability"` // Min top-score share for instant

	DefaultCountry       string `yaml:"default_country"`        // Country fallback for requests
	DefaultLanguage      string `yaml:"default_language"`       // Language fallback for requests
	NumSuggestionsMobile int    `yaml:"num_suggestions_mobile"` // Default result count on phones
	NumSuggestionsWeb    int    `yaml:"num_suggestions_web"`    // Default result count elsewhere
}

// ComponentConfig binds one named component: a registered kind plus its
// default options blob.
type ComponentConfig struct {
	Name    string         `yaml:"name"`
	Kind    string         `yaml:"kind"`
	Options map[string]any `yaml:"options"`
}

// OptionsJSON renders the options map as the JSON blob handed to the
// component's Configure.
func (c ComponentConfig) OptionsJSON() (json.RawMessage, error) {
	if len(c.Options) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(c.Options)
	if err != nil {
		return nil, fmt.Errorf("component %q: options: %w", c.Name, err)
	}
	return raw, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Daemon: DaemonConfig{
			IdleTimeoutMins: 0, // Never timeout
			SocketPath:      "",
			LogLevel:        "info",
			LogFile:         "",
		},
		Manager: ManagerConfig{
			PrimaryAlgo:              "main",
			PrimaryTwiddler:          "main-twiddler",
			SecondaryTwiddler:        "identity",
			Dedupers:                 []string{"duplicate"},
			ThreadpoolSize:           0,
			MaxSuggestionsMultiplier: 6,
			MinSecondarySuggestions:  6,
			InstantMinFreq:           10,
			InstantMinSelectionProb:  0.4,
			DefaultCountry:           "US",
			DefaultLanguage:          "en",
			NumSuggestionsMobile:     5,
			NumSuggestionsWeb:        10,
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides applies SUGGESTD_* environment variables over the loaded
// configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SUGGESTD_SOCKET_PATH"); v != "" {
		c.Daemon.SocketPath = v
	}
	if v := os.Getenv("SUGGESTD_LOG_LEVEL"); v != "" {
		c.Daemon.LogLevel = v
	}
	if v := os.Getenv("SUGGESTD_IDLE_TIMEOUT_MINS"); v != "" {
		if mins, err := strconv.Atoi(v); err == nil {
			c.Daemon.IdleTimeoutMins = mins
		}
	}
	if v := os.Getenv("SUGGESTD_THREADPOOL_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			c.Manager.ThreadpoolSize = size
		}
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if !isValidLogLevel(c.Daemon.LogLevel) {
		return fmt.Errorf("invalid log level: %s", c.Daemon.LogLevel)
	}
	if c.Manager.PrimaryAlgo == "" {
		return fmt.Errorf("manager.primary_algo is required")
	}
	if c.Manager.ThreadpoolSize < 0 {
		return fmt.Errorf("manager.threadpool_size must be >= 0")
	}
	if c.Manager.InstantMinSelectionProb < 0 || c.Manager.InstantMinSelectionProb > 1 {
		return fmt.Errorf("manager.instant_min_selection_probability must be in [0, 1]")
	}
	seen := make(map[string]bool, len(c.Components))
	for _, comp := range c.Components {
		if comp.Name == "" || comp.Kind == "" {
			return fmt.Errorf("every component needs a name and a kind")
		}
		if seen[comp.Name] {
			return fmt.Errorf("duplicate component name: %s", comp.Name)
		}
		seen[comp.Name] = true
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
