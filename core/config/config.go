// Package config reads the agent configuration file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvLLMAPIURL = "LOCALCRAFT_LLM_API_URL"
	EnvLLMAPIKey = "LOCALCRAFT_LLM_API_KEY"
	EnvModel     = "LOCALCRAFT_MODEL"
)

// Config is the top-level structure of the YAML file.
type Config struct {
	LLM     LLMConfig               `yaml:"llm"`
	Journal JournalConfig           `yaml:"journal"`
	Modules map[string]ModuleConfig `yaml:"modules"`
}

// LLMConfig points at an OpenAI compatible endpoint. An empty APIURL
// means no language model is used and the agent idles.
type LLMConfig struct {
	APIURL  string `yaml:"api_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// JournalConfig controls decision log checkpoints.
type JournalConfig struct {
	Path     string `yaml:"path"`
	Schedule string `yaml:"schedule"` // cron spec, e.g. "@every 30s"
}

// ModuleConfig is the per-module section. UpdateInterval is in milliseconds.
type ModuleConfig struct {
	UpdateInterval int64          `yaml:"update_interval"`
	Options        map[string]any `yaml:",inline"`
}

// ConfigError is returned when a module cannot be built from the configuration.
type ConfigError struct {
	Module string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for module %q: %s", e.Module, e.Reason)
}

// Read loads and parses the YAML file at path, then applies environment overrides.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// Parse decodes YAML configuration.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Modules == nil {
		cfg.Modules = map[string]ModuleConfig{}
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLLMAPIURL); v != "" {
		c.LLM.APIURL = v
	}
	if v := os.Getenv(EnvLLMAPIKey); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.LLM.Model = v
	}
}

// Module returns the section for name. A missing section or a non-positive
// interval is a *ConfigError.
func (c *Config) Module(name string) (ModuleConfig, error) {
	if c == nil {
		return ModuleConfig{}, &ConfigError{Module: name, Reason: "no configuration"}
	}
	m, ok := c.Modules[name]
	if !ok {
		return ModuleConfig{}, &ConfigError{Module: name, Reason: "missing configuration entry"}
	}
	if m.UpdateInterval <= 0 {
		return ModuleConfig{}, &ConfigError{
			Module: name,
			Reason: fmt.Sprintf("update_interval must be positive, got %d", m.UpdateInterval),
		}
	}
	return m, nil
}

// Interval returns the update interval as a duration.
func (m ModuleConfig) Interval() time.Duration {
	return time.Duration(m.UpdateInterval) * time.Millisecond
}

// Int returns an integer option, or def when absent or not numeric.
func (m ModuleConfig) Int(key string, def int) int {
	v, ok := m.Options[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

// String returns a string option, or def when absent.
func (m ModuleConfig) String(key string, def string) string {
	v, ok := m.Options[key]
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// TimeoutDuration parses Timeout, falling back to 150s like the client does.
func (l LLMConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(l.Timeout)
	if err != nil || d <= 0 {
		return 150 * time.Second
	}
	return d
}
