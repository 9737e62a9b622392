package main

import (
	"strings"
	"testing"
	"time"

	"github.com/flowdeck/flowdeck/internal/config"
)

func TestSetConfigValue(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		check   func(cfg *config.Config) bool
		wantErr string
	}{
		{
			name:  "provider key",
			key:   "providers.anthropic.api_key",
			value: "sk-ant-test",
			check: func(cfg *config.Config) bool { return cfg.Providers.Anthropic.APIKey == "sk-ant-test" },
		},
		{
			name:  "provider model",
			key:   "providers.gemini.model",
			value: "gemini-2.0-flash",
			check: func(cfg *config.Config) bool { return cfg.Providers.Gemini.Model == "gemini-2.0-flash" },
		},
		{
			name:  "strategy",
			key:   "coordination.strategy",
			value: "round-robin",
			check: func(cfg *config.Config) bool { return cfg.Coordination.Strategy == "round-robin" },
		},
		{
			name:    "unknown strategy rejected",
			key:     "coordination.strategy",
			value:   "first-come",
			wantErr: "unknown strategy",
		},
		{
			name:  "task timeout duration",
			key:   "coordination.task_timeout",
			value: "90s",
			check: func(cfg *config.Config) bool { return cfg.Coordination.TaskTimeout == 90*time.Second },
		},
		{
			name:    "bad duration rejected",
			key:     "coordination.task_timeout",
			value:   "soon",
			wantErr: "invalid duration",
		},
		{
			name:  "fallback chain split",
			key:   "portal.fallback_chain",
			value: "claude-main, mock,",
			check: func(cfg *config.Config) bool {
				return len(cfg.Portal.FallbackChain) == 2 &&
					cfg.Portal.FallbackChain[0] == "claude-main" &&
					cfg.Portal.FallbackChain[1] == "mock"
			},
		},
		{
			name:  "auto detect bool",
			key:   "portal.auto_detect",
			value: "false",
			check: func(cfg *config.Config) bool { return !cfg.Portal.AutoDetect },
		},
		{
			name:    "bad bool rejected",
			key:     "metrics.enabled",
			value:   "maybe",
			wantErr: "invalid boolean",
		},
		{
			name:    "unknown key rejected",
			key:     "portal.color",
			value:   "blue",
			wantErr: "unknown configuration key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			err := setConfigValue(cfg, tt.key, tt.value)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("setConfigValue() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("setConfigValue() error = %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("setConfigValue(%q, %q) not applied", tt.key, tt.value)
			}
		})
	}
}

func TestGetConfigValue(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.OpenAI.APIKey = "sk-openai-0123456789abcdef"
	cfg.Coordination.Strategy = "load-balanced"

	tests := []struct {
		key  string
		want string
	}{
		{"coordination.strategy", "load-balanced"},
		{"coordination.max_concurrent_tasks", "10"},
		{"coordination.backoff_multiplier", "2"},
		{"tui.refresh_rate", "500ms"},
		{"portal.auto_detect", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := getConfigValue(cfg, tt.key)
			if err != nil {
				t.Fatalf("getConfigValue(%q) error = %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("getConfigValue(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}

	masked, err := getConfigValue(cfg, "providers.openai.api_key")
	if err != nil {
		t.Fatalf("getConfigValue(api_key) error = %v", err)
	}
	if strings.Contains(masked, "0123456789abcdef") {
		t.Errorf("api_key displayed unmasked: %q", masked)
	}

	if _, err := getConfigValue(cfg, "nope"); err == nil {
		t.Error("getConfigValue(unknown) error = nil, want unknown-key error")
	}
}
