package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all chuck configuration.
type Config struct {
	// Core settings
	Name string `yaml:"name"`
	Goal string `yaml:"goal"`

	// ContextFile, when set, is read at startup and handed to every worker
	// and helper as shared background information.
	ContextFile string `yaml:"context_file"`

	// Completion service
	LLM     LLMConfig     `yaml:"llm"`
	Gateway GatewayConfig `yaml:"gateway"`

	// Manager-owned tables
	Registers RegistersConfig `yaml:"registers"`
	Angels    AngelsConfig    `yaml:"angels"`

	Tracing TracingConfig `yaml:"tracing"`
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig selects and authenticates the completion provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"` // per call
}

// GatewayConfig bounds concurrency and retries of completion calls.
type GatewayConfig struct {
	MaxConcurrent    int    `yaml:"max_concurrent"`
	MaxRetries       int    `yaml:"max_retries"`
	RetryBackoffBase string `yaml:"retry_backoff_base"`
	RetryBackoffMax  string `yaml:"retry_backoff_max"`
}

// RegistersConfig configures register defaults.
type RegistersConfig struct {
	DefaultCapacity int `yaml:"default_capacity"`
}

// AngelsConfig configures worker defaults.
type AngelsConfig struct {
	ThoughtDepth int `yaml:"thought_depth"`
	InboxSize    int `yaml:"inbox_size"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // none, stdout, otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
	ServiceName  string  `yaml:"service_name"`
}

// LoggingConfig configures log encoding. The level comes from --log-level.
type LoggingConfig struct {
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "chuck",
		Goal: "Create a new fitness app.",

		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-1.5-flash",
			Timeout:  "120s",
		},

		Gateway: GatewayConfig{
			MaxConcurrent:    5,
			MaxRetries:       3,
			RetryBackoffBase: "1s",
			RetryBackoffMax:  "30s",
		},

		Registers: RegistersConfig{
			DefaultCapacity: 1000,
		},

		Angels: AngelsConfig{
			ThoughtDepth: 4,
			InboxSize:    10,
		},

		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "stdout",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
			ServiceName:  "chuck",
		},

		Logging: LoggingConfig{
			Format: "console",
		},
	}
}

// DefaultConfigPath returns the config path from CHUCK_CONFIG, or chuck.yaml.
func DefaultConfigPath() string {
	if path := os.Getenv("CHUCK_CONFIG"); path != "" {
		return path
	}
	return "chuck.yaml"
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// GEMINI_API_KEY wins over the generic Google key
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if c.LLM.APIKey != "" && c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
	}

	if model := os.Getenv("CHUCK_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if goal := os.Getenv("CHUCK_GOAL"); goal != "" {
		c.Goal = goal
	}
}

// LoadContext returns the contents of ContextFile, or "" when unset.
func (c *Config) LoadContext() (string, error) {
	if c.ContextFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.ContextFile)
	if err != nil {
		return "", fmt.Errorf("failed to read context file: %w", err)
	}
	return string(data), nil
}

// GetLLMTimeout returns the per-call timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 120*time.Second)
}

// GetRetryBackoffBase returns the first retry delay.
func (c *Config) GetRetryBackoffBase() time.Duration {
	return parseDuration(c.Gateway.RetryBackoffBase, time.Second)
}

// GetRetryBackoffMax returns the retry delay ceiling.
func (c *Config) GetRetryBackoffMax() time.Duration {
	return parseDuration(c.Gateway.RetryBackoffMax, 30*time.Second)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"gemini"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set GEMINI_API_KEY or llm.api_key)")
	}

	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.Goal == "" {
		return fmt.Errorf("goal must not be empty")
	}
	if c.Registers.DefaultCapacity <= 0 {
		return fmt.Errorf("registers.default_capacity must be positive, got %d", c.Registers.DefaultCapacity)
	}
	if c.Angels.ThoughtDepth <= 0 {
		return fmt.Errorf("angels.thought_depth must be positive, got %d", c.Angels.ThoughtDepth)
	}
	if c.Angels.InboxSize <= 0 {
		return fmt.Errorf("angels.inbox_size must be positive, got %d", c.Angels.InboxSize)
	}
	if c.Gateway.MaxConcurrent <= 0 {
		return fmt.Errorf("gateway.max_concurrent must be positive, got %d", c.Gateway.MaxConcurrent)
	}
	if c.Gateway.MaxRetries < 0 {
		return fmt.Errorf("gateway.max_retries must not be negative, got %d", c.Gateway.MaxRetries)
	}

	return nil
}
