// Package config loads the application configuration: built-in defaults,
// then an optional TOML file, then COMMENTPILOT_ environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	General struct {
		LogLevel    string `koanf:"log_level"`
		DefaultTone string `koanf:"default_tone"`
	} `koanf:"general"`

	Remote struct {
		Endpoint         string `koanf:"endpoint"`
		ModelKey         string `koanf:"model_key"`
		MaxRetries       int    `koanf:"max_retries"`
		AttemptTimeoutMs int    `koanf:"attempt_timeout_ms"`
		BaseDelayMs      int    `koanf:"base_delay_ms"`
	} `koanf:"remote"`

	Agent struct {
		BaseURL string `koanf:"base_url"`
	} `koanf:"agent"`

	Dispatcher struct {
		Listen               string `koanf:"listen"`
		GenerationsPerMinute int    `koanf:"generations_per_minute"`
	} `koanf:"dispatcher"`
}

// LoadConfig loads the configuration from a file, falling back to default
// locations when configPath is empty.
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"general.log_level":                 "info",
		"general.default_tone":              "professional",
		"remote.model_key":                  "prompt",
		"remote.max_retries":                2,
		"remote.attempt_timeout_ms":         10000,
		"remote.base_delay_ms":              1000,
		"dispatcher.listen":                 ":8787",
		"dispatcher.generations_per_minute": 0,
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./commentpilot.toml", "$HOME/.commentpilot.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix COMMENTPILOT_
	k.Load(env.Provider("COMMENTPILOT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "COMMENTPILOT_")), "_", ".", -1)
	}), nil)

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# commentpilot configuration

[general]
log_level = "info"
default_tone = "professional"

[remote]
endpoint = "http://localhost:11434/api/generate"
model_key = "prompt"
max_retries = 2
attempt_timeout_ms = 10000
base_delay_ms = 1000

[agent]
base_url = "http://localhost:8686"

[dispatcher]
listen = ":8787"
generations_per_minute = 0
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.Remote.Endpoint == "" {
		return fmt.Errorf("remote endpoint is required")
	}

	if config.Remote.ModelKey == "" {
		return fmt.Errorf("remote model_key is required")
	}

	if config.Remote.MaxRetries < 0 {
		return fmt.Errorf("remote max_retries must not be negative")
	}

	if config.Remote.AttemptTimeoutMs <= 0 {
		return fmt.Errorf("remote attempt_timeout_ms must be positive")
	}

	return nil
}
