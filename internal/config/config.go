// Package config handles configuration loading and management for flowdeck.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for flowdeck.
type Config struct {
	Providers    ProvidersConfig    `mapstructure:"providers"`
	Portal       PortalConfig       `mapstructure:"portal"`
	Coordination CoordinationConfig `mapstructure:"coordination"`
	State        StateConfig        `mapstructure:"state"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	TUI          TUIConfig          `mapstructure:"tui"`
	// FlowsFile is the path to the YAML flows file. Empty means the
	// built-in default flows.
	FlowsFile string `mapstructure:"flows_file"`
}

// ProvidersConfig holds per-provider API settings.
type ProvidersConfig struct {
	Anthropic ProviderConfig `mapstructure:"anthropic"`
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Gemini    ProviderConfig `mapstructure:"gemini"`
}

// ProviderConfig holds settings for one backend provider.
type ProviderConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// PortalConfig holds auto-routing settings.
type PortalConfig struct {
	DefaultFlow   string   `mapstructure:"default_flow"`
	AutoDetect    bool     `mapstructure:"auto_detect"`
	FallbackChain []string `mapstructure:"fallback_chain"`
	Debug         bool     `mapstructure:"debug"`
}

// CoordinationConfig holds delegation strategy settings.
type CoordinationConfig struct {
	Strategy           string        `mapstructure:"strategy"`
	MaxConcurrentTasks int           `mapstructure:"max_concurrent_tasks"`
	TaskTimeout        time.Duration `mapstructure:"task_timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
	BackoffMultiplier  float64       `mapstructure:"backoff_multiplier"`
	InitialDelay       time.Duration `mapstructure:"initial_delay"`
	PrimaryFlow        string        `mapstructure:"primary_flow"`
	PriorityThreshold  int           `mapstructure:"priority_threshold"`
	Debug              bool          `mapstructure:"debug"`
}

// StateConfig holds delegation-audit database settings.
type StateConfig struct {
	// Path is the SQLite database file. Empty means the XDG data dir.
	Path string `mapstructure:"path"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// TUIConfig holds watch dashboard display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY)
// 2. Project config (.flowdeck.yaml in current directory or parent)
// 3. User config (~/.config/flowdeck/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("")

	v.BindEnv("providers.anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("providers.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("providers.gemini.api_key", "GEMINI_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandProviderKeys(cfg)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandProviderKeys(cfg)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("providers.anthropic.api_key", cfg.Providers.Anthropic.APIKey)
	v.Set("providers.anthropic.model", cfg.Providers.Anthropic.Model)
	v.Set("providers.openai.api_key", cfg.Providers.OpenAI.APIKey)
	v.Set("providers.openai.model", cfg.Providers.OpenAI.Model)
	v.Set("providers.gemini.api_key", cfg.Providers.Gemini.APIKey)
	v.Set("providers.gemini.model", cfg.Providers.Gemini.Model)
	v.Set("portal.default_flow", cfg.Portal.DefaultFlow)
	v.Set("portal.auto_detect", cfg.Portal.AutoDetect)
	v.Set("portal.fallback_chain", cfg.Portal.FallbackChain)
	v.Set("coordination.strategy", cfg.Coordination.Strategy)
	v.Set("coordination.max_concurrent_tasks", cfg.Coordination.MaxConcurrentTasks)
	v.Set("coordination.task_timeout", cfg.Coordination.TaskTimeout.String())
	v.Set("coordination.max_retries", cfg.Coordination.MaxRetries)
	v.Set("coordination.backoff_multiplier", cfg.Coordination.BackoffMultiplier)
	v.Set("coordination.initial_delay", cfg.Coordination.InitialDelay.String())
	v.Set("coordination.primary_flow", cfg.Coordination.PrimaryFlow)
	v.Set("coordination.priority_threshold", cfg.Coordination.PriorityThreshold)
	v.Set("state.path", cfg.State.Path)
	v.Set("metrics.enabled", cfg.Metrics.Enabled)
	v.Set("metrics.listen_addr", cfg.Metrics.ListenAddr)
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())
	v.Set("flows_file", cfg.FlowsFile)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// DefaultStatePath returns the default SQLite database path under the
// XDG data directory.
func DefaultStatePath() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "flowdeck", "flowdeck.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "flowdeck", "flowdeck.db")
	}
	return filepath.Join(home, ".local", "share", "flowdeck", "flowdeck.db")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Provider defaults
	v.SetDefault("providers.anthropic.api_key", "")
	v.SetDefault("providers.anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("providers.openai.api_key", "")
	v.SetDefault("providers.openai.model", "gpt-5.2-thinking")
	v.SetDefault("providers.gemini.api_key", "")
	v.SetDefault("providers.gemini.model", "gemini-2.0-pro")

	// Portal defaults
	v.SetDefault("portal.default_flow", "")
	v.SetDefault("portal.auto_detect", true)
	v.SetDefault("portal.fallback_chain", []string{})
	v.SetDefault("portal.debug", false)

	// Coordination defaults
	v.SetDefault("coordination.strategy", "adaptive")
	v.SetDefault("coordination.max_concurrent_tasks", 10)
	v.SetDefault("coordination.task_timeout", "2m")
	v.SetDefault("coordination.max_retries", 2)
	v.SetDefault("coordination.backoff_multiplier", 2.0)
	v.SetDefault("coordination.initial_delay", "100ms")
	v.SetDefault("coordination.primary_flow", "")
	v.SetDefault("coordination.priority_threshold", 3)
	v.SetDefault("coordination.debug", false)

	// State defaults
	v.SetDefault("state.path", "")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9091")

	// TUI defaults
	v.SetDefault("tui.refresh_rate", "500ms")

	v.SetDefault("flows_file", "")
}

// getUserConfigDir returns the XDG config directory for flowdeck.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "flowdeck")
	}

	// Fall back to ~/.config/flowdeck
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "flowdeck")
	}
	return filepath.Join(home, ".config", "flowdeck")
}

// findProjectConfig searches for .flowdeck.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".flowdeck.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandProviderKeys expands ${VAR} references in API keys.
func expandProviderKeys(cfg *Config) {
	cfg.Providers.Anthropic.APIKey = os.ExpandEnv(cfg.Providers.Anthropic.APIKey)
	cfg.Providers.OpenAI.APIKey = os.ExpandEnv(cfg.Providers.OpenAI.APIKey)
	cfg.Providers.Gemini.APIKey = os.ExpandEnv(cfg.Providers.Gemini.APIKey)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Providers: ProvidersConfig{
			Anthropic: ProviderConfig{Model: "claude-sonnet-4-20250514"},
			OpenAI:    ProviderConfig{Model: "gpt-5.2-thinking"},
			Gemini:    ProviderConfig{Model: "gemini-2.0-pro"},
		},
		Portal: PortalConfig{
			AutoDetect: true,
		},
		Coordination: CoordinationConfig{
			Strategy:           "adaptive",
			MaxConcurrentTasks: 10,
			TaskTimeout:        2 * time.Minute,
			MaxRetries:         2,
			BackoffMultiplier:  2.0,
			InitialDelay:       100 * time.Millisecond,
			PriorityThreshold:  3,
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9091",
		},
		TUI: TUIConfig{
			RefreshRate: 500 * time.Millisecond,
		},
	}
}
