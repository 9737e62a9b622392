package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowdeck/flowdeck/internal/config"
	"github.com/flowdeck/flowdeck/internal/coordinator"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify flowdeck configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/flowdeck/config.yaml
Project-specific overrides can be placed in .flowdeck.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("user config: %s\n", config.GetUserConfigPath())
	if project := config.GetProjectConfigPath(); project != "" {
		fmt.Printf("project config: %s\n", project)
	}
	fmt.Println()

	fmt.Printf("providers.anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Providers.Anthropic.APIKey))
	fmt.Printf("providers.anthropic.model: %s\n", cfg.Providers.Anthropic.Model)
	fmt.Printf("providers.openai.api_key: %s\n", config.MaskAPIKey(cfg.Providers.OpenAI.APIKey))
	fmt.Printf("providers.openai.model: %s\n", cfg.Providers.OpenAI.Model)
	fmt.Printf("providers.gemini.api_key: %s\n", config.MaskAPIKey(cfg.Providers.Gemini.APIKey))
	fmt.Printf("providers.gemini.model: %s\n", cfg.Providers.Gemini.Model)
	fmt.Printf("portal.default_flow: %s\n", cfg.Portal.DefaultFlow)
	fmt.Printf("portal.auto_detect: %t\n", cfg.Portal.AutoDetect)
	fmt.Printf("portal.fallback_chain: %s\n", strings.Join(cfg.Portal.FallbackChain, ","))
	fmt.Printf("coordination.strategy: %s\n", cfg.Coordination.Strategy)
	fmt.Printf("coordination.max_concurrent_tasks: %d\n", cfg.Coordination.MaxConcurrentTasks)
	fmt.Printf("coordination.task_timeout: %s\n", cfg.Coordination.TaskTimeout)
	fmt.Printf("coordination.max_retries: %d\n", cfg.Coordination.MaxRetries)
	fmt.Printf("coordination.backoff_multiplier: %g\n", cfg.Coordination.BackoffMultiplier)
	fmt.Printf("coordination.initial_delay: %s\n", cfg.Coordination.InitialDelay)
	fmt.Printf("coordination.primary_flow: %s\n", cfg.Coordination.PrimaryFlow)
	fmt.Printf("coordination.priority_threshold: %d\n", cfg.Coordination.PriorityThreshold)
	fmt.Printf("state.path: %s\n", cfg.State.Path)
	fmt.Printf("metrics.enabled: %t\n", cfg.Metrics.Enabled)
	fmt.Printf("metrics.listen_addr: %s\n", cfg.Metrics.ListenAddr)
	fmt.Printf("tui.refresh_rate: %s\n", cfg.TUI.RefreshRate)
	fmt.Printf("flows_file: %s\n", cfg.FlowsFile)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "providers.anthropic.api_key":
		return config.MaskAPIKey(cfg.Providers.Anthropic.APIKey), nil
	case "providers.anthropic.model":
		return cfg.Providers.Anthropic.Model, nil
	case "providers.openai.api_key":
		return config.MaskAPIKey(cfg.Providers.OpenAI.APIKey), nil
	case "providers.openai.model":
		return cfg.Providers.OpenAI.Model, nil
	case "providers.gemini.api_key":
		return config.MaskAPIKey(cfg.Providers.Gemini.APIKey), nil
	case "providers.gemini.model":
		return cfg.Providers.Gemini.Model, nil
	case "portal.default_flow":
		return cfg.Portal.DefaultFlow, nil
	case "portal.auto_detect":
		return strconv.FormatBool(cfg.Portal.AutoDetect), nil
	case "portal.fallback_chain":
		return strings.Join(cfg.Portal.FallbackChain, ","), nil
	case "coordination.strategy":
		return cfg.Coordination.Strategy, nil
	case "coordination.max_concurrent_tasks":
		return strconv.Itoa(cfg.Coordination.MaxConcurrentTasks), nil
	case "coordination.task_timeout":
		return cfg.Coordination.TaskTimeout.String(), nil
	case "coordination.max_retries":
		return strconv.Itoa(cfg.Coordination.MaxRetries), nil
	case "coordination.backoff_multiplier":
		return strconv.FormatFloat(cfg.Coordination.BackoffMultiplier, 'g', -1, 64), nil
	case "coordination.initial_delay":
		return cfg.Coordination.InitialDelay.String(), nil
	case "coordination.primary_flow":
		return cfg.Coordination.PrimaryFlow, nil
	case "coordination.priority_threshold":
		return strconv.Itoa(cfg.Coordination.PriorityThreshold), nil
	case "state.path":
		return cfg.State.Path, nil
	case "metrics.enabled":
		return strconv.FormatBool(cfg.Metrics.Enabled), nil
	case "metrics.listen_addr":
		return cfg.Metrics.ListenAddr, nil
	case "tui.refresh_rate":
		return cfg.TUI.RefreshRate.String(), nil
	case "flows_file":
		return cfg.FlowsFile, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "providers.anthropic.api_key":
		cfg.Providers.Anthropic.APIKey = value
	case "providers.anthropic.model":
		cfg.Providers.Anthropic.Model = value
	case "providers.openai.api_key":
		cfg.Providers.OpenAI.APIKey = value
	case "providers.openai.model":
		cfg.Providers.OpenAI.Model = value
	case "providers.gemini.api_key":
		cfg.Providers.Gemini.APIKey = value
	case "providers.gemini.model":
		cfg.Providers.Gemini.Model = value
	case "portal.default_flow":
		cfg.Portal.DefaultFlow = value
	case "portal.auto_detect":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for auto_detect: %w", err)
		}
		cfg.Portal.AutoDetect = b
	case "portal.fallback_chain":
		cfg.Portal.FallbackChain = splitChain(value)
	case "coordination.strategy":
		if !coordinator.Strategy(value).Valid() {
			return fmt.Errorf("unknown strategy: %s", value)
		}
		cfg.Coordination.Strategy = value
	case "coordination.max_concurrent_tasks":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_concurrent_tasks: %w", err)
		}
		cfg.Coordination.MaxConcurrentTasks = n
	case "coordination.task_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for task_timeout: %w", err)
		}
		cfg.Coordination.TaskTimeout = d
	case "coordination.max_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_retries: %w", err)
		}
		cfg.Coordination.MaxRetries = n
	case "coordination.backoff_multiplier":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for backoff_multiplier: %w", err)
		}
		cfg.Coordination.BackoffMultiplier = f
	case "coordination.initial_delay":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for initial_delay: %w", err)
		}
		cfg.Coordination.InitialDelay = d
	case "coordination.primary_flow":
		cfg.Coordination.PrimaryFlow = value
	case "coordination.priority_threshold":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for priority_threshold: %w", err)
		}
		cfg.Coordination.PriorityThreshold = n
	case "state.path":
		cfg.State.Path = value
	case "metrics.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for metrics.enabled: %w", err)
		}
		cfg.Metrics.Enabled = b
	case "metrics.listen_addr":
		cfg.Metrics.ListenAddr = value
	case "tui.refresh_rate":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for refresh_rate: %w", err)
		}
		cfg.TUI.RefreshRate = d
	case "flows_file":
		cfg.FlowsFile = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// splitChain parses a comma-separated flow list, dropping empty entries.
func splitChain(value string) []string {
	var chain []string
	for _, name := range strings.Split(value, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			chain = append(chain, name)
		}
	}
	return chain
}
