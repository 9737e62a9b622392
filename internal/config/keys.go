package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured for a provider.
var ErrNoAPIKey = errors.New("no API key configured")

// Provider identifies a backend provider for key lookup.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
)

// EnvVar returns the environment variable holding the provider's API key.
func (p Provider) EnvVar() string {
	switch p {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// GetAPIKey returns the API key for a provider. It checks in order:
// environment variable, config file.
func GetAPIKey(cfg *Config, provider Provider) (string, error) {
	// First check environment variable directly
	if env := provider.EnvVar(); env != "" {
		if key := os.Getenv(env); key != "" {
			return key, nil
		}
	}

	// Then check config
	if cfg != nil {
		raw := configuredKey(cfg, provider)
		if raw != "" {
			// Expand any remaining env var references
			key := os.ExpandEnv(raw)
			if key != "" && !strings.HasPrefix(key, "${") {
				return key, nil
			}
		}
	}

	return "", fmt.Errorf("%s: %w", provider, ErrNoAPIKey)
}

func configuredKey(cfg *Config, provider Provider) string {
	switch provider {
	case ProviderAnthropic:
		return cfg.Providers.Anthropic.APIKey
	case ProviderOpenAI:
		return cfg.Providers.OpenAI.APIKey
	case ProviderGemini:
		return cfg.Providers.Gemini.APIKey
	default:
		return ""
	}
}

// MaskAPIKey returns a masked version of an API key for display.
// Shows the first 7 characters and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// GetAPIKeySource returns where the provider's API key was sourced from.
func GetAPIKeySource(cfg *Config, provider Provider) KeySource {
	if env := provider.EnvVar(); env != "" && os.Getenv(env) != "" {
		return KeySourceEnv
	}
	if cfg != nil && configuredKey(cfg, provider) != "" {
		return KeySourceConfig
	}
	return KeySourceNone
}
