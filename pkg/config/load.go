package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TokenEnvVar overrides the configured platform token when set, so the
// token can stay out of the config file.
const TokenEnvVar = "LAKEWATCH_PLATFORM_TOKEN"

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if token := os.Getenv(TokenEnvVar); token != "" {
		cfg.Platform.Token = token
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
