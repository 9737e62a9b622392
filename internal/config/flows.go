package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flowdeck/flowdeck/pkg/models"
)

// FlowsConfig holds the flow definitions loaded from the flows file.
type FlowsConfig struct {
	Flows []FlowDef `yaml:"flows"`
}

// FlowDef defines a single flow in the flows file.
type FlowDef struct {
	// Name is the unique registry key for the flow.
	Name string `yaml:"name"`
	// Type tags the backend class (claude, gemini, openai, coordinator,
	// local, mock).
	Type string `yaml:"type"`
	// Capabilities lists the capability tags the flow declares.
	Capabilities []string `yaml:"capabilities,omitempty"`
	// MaxLoad is the concurrent task ceiling.
	MaxLoad int `yaml:"max_load,omitempty"`
	// TimeoutSeconds is the per-task execution deadline in seconds.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
	// RetryAttempts is the number of backend attempts per task.
	RetryAttempts int `yaml:"retry_attempts,omitempty"`
	// RequiresAuth gates task acceptance on prior authentication.
	RequiresAuth bool `yaml:"requires_auth,omitempty"`
	// Model overrides the provider default model for this flow.
	Model string `yaml:"model,omitempty"`
}

// Timeout returns the per-task deadline as a duration.
func (f *FlowDef) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// LoadFlowsConfig reads flow definitions from a YAML file, applies
// defaults, and validates the result.
func LoadFlowsConfig(path string) (*FlowsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg FlowsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing flows file %s: %w", path, err)
	}

	applyFlowDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("flows file %s: %w", path, err)
	}
	return &cfg, nil
}

// DefaultFlowsConfig returns the built-in flow definitions used when no
// flows file is configured.
func DefaultFlowsConfig() *FlowsConfig {
	cfg := &FlowsConfig{
		Flows: []FlowDef{
			{
				Name:         "claude-main",
				Type:         "claude",
				Capabilities: []string{"coding", "analysis", "documentation"},
				RequiresAuth: true,
			},
			{
				Name:         "gemini-research",
				Type:         "gemini",
				Capabilities: []string{"research", "multimodal"},
				RequiresAuth: true,
			},
			{
				Name:         "openai-general",
				Type:         "openai",
				Capabilities: []string{"reasoning", "analysis"},
				RequiresAuth: true,
			},
			{
				Name:         "mock",
				Type:         "mock",
				Capabilities: []string{"coding", "research"},
			},
		},
	}
	applyFlowDefaults(cfg)
	return cfg
}

// applyFlowDefaults fills in zero-valued fields on each flow definition.
func applyFlowDefaults(cfg *FlowsConfig) {
	for i := range cfg.Flows {
		f := &cfg.Flows[i]
		if f.MaxLoad == 0 {
			f.MaxLoad = 3
		}
		if f.TimeoutSeconds == 0 {
			f.TimeoutSeconds = 120
		}
		if f.RetryAttempts == 0 {
			f.RetryAttempts = 2
		}
	}
}

// Validate checks flow definitions for missing names, duplicate names,
// unknown types, and non-positive limits.
func (c *FlowsConfig) Validate() error {
	if len(c.Flows) == 0 {
		return fmt.Errorf("no flows defined")
	}

	seen := make(map[string]bool, len(c.Flows))
	for i, f := range c.Flows {
		if f.Name == "" {
			return fmt.Errorf("flow %d: name is required", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("flow %q: duplicate name", f.Name)
		}
		seen[f.Name] = true

		if !models.FlowType(f.Type).Valid() {
			return fmt.Errorf("flow %q: unknown type %q", f.Name, f.Type)
		}
		if f.MaxLoad <= 0 {
			return fmt.Errorf("flow %q: max_load must be > 0", f.Name)
		}
		if f.TimeoutSeconds <= 0 {
			return fmt.Errorf("flow %q: timeout_seconds must be > 0", f.Name)
		}
	}
	return nil
}
