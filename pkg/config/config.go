// Package config provides configuration structures and loading logic for the
// Omnis service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/polisai/omnis/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Config holds the global configuration for the service.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Attachments AttachmentsConfig `yaml:"attachments"`
	Simulator   SimulatorConfig   `yaml:"simulator"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Sessions    SessionsConfig    `yaml:"sessions"`
	Intent      IntentConfig      `yaml:"intent"`
	Limits      LimitsConfig      `yaml:"limits"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	TLS          *TLSConfig    `yaml:"tls,omitempty"`
}

// TLSConfig enables HTTPS on the server listener.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// TelemetryConfig holds configuration for OpenTelemetry.
type TelemetryConfig struct {
	ServiceName string            `yaml:"service_name"`
	Endpoint    string            `yaml:"endpoint"`
	Insecure    bool              `yaml:"insecure"`
	Environment string            `yaml:"environment"`
	Headers     map[string]string `yaml:"headers,omitempty"`
}

// AttachmentsConfig overrides the upload policy.
type AttachmentsConfig struct {
	MaxSizeBytes int64    `yaml:"max_size_bytes"`
	AllowedTypes []string `yaml:"allowed_types,omitempty"`
}

// SimulatorConfig tunes the simulated execution. A non-zero Seed makes
// narrative choice and delays reproducible.
type SimulatorConfig struct {
	MinDelay      time.Duration `yaml:"min_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	Seed          uint64        `yaml:"seed"`
	FrameworkName string        `yaml:"framework_name"`
}

// CatalogConfig points at an optional agent roster file.
type CatalogConfig struct {
	AgentsFile string `yaml:"agents_file"`
}

// SessionsConfig holds session defaults.
type SessionsConfig struct {
	DefaultView string `yaml:"default_view"`
}

// IntentConfig adds keyword rules evaluated after the built-in ones.
type IntentConfig struct {
	ExtraRules []RuleConfig `yaml:"extra_rules,omitempty"`
}

// LimitsConfig throttles submissions per caller identity. A zero rate
// disables throttling.
type LimitsConfig struct {
	SubmissionsPerSecond float64 `yaml:"submissions_per_second"`
	Burst                int     `yaml:"burst"`
}

// RuleConfig is one configured keyword rule.
type RuleConfig struct {
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
	Tokens   []string `yaml:"tokens"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "omnis",
		},
		Attachments: AttachmentsConfig{
			MaxSizeBytes: 10 * 1024 * 1024,
		},
		Simulator: SimulatorConfig{
			MinDelay:      500 * time.Millisecond,
			MaxDelay:      1500 * time.Millisecond,
			FrameworkName: "Omnis Agentic Framework",
		},
		Sessions: SessionsConfig{
			DefaultView: string(domain.ViewDAG),
		},
	}
}

// Load reads configuration from a file, expanding ${VAR} references before
// parsing, and applies environment variable overrides. An empty path yields
// the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // Config file path is controlled by admin/operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse expands environment variables in data and decodes it over cfg.
func Parse(data []byte, cfg *Config) error {
	expanded := []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return err
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("OMNIS_ADDR"); val != "" {
		cfg.Server.Addr = val
	}
	if val := os.Getenv("OMNIS_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("OMNIS_OTLP_ENDPOINT"); val != "" {
		cfg.Telemetry.Endpoint = val
	}
	if val := os.Getenv("OMNIS_OTLP_INSECURE"); val == "true" {
		cfg.Telemetry.Insecure = true
	}
	if val := os.Getenv("OMNIS_AGENTS_FILE"); val != "" {
		cfg.Catalog.AgentsFile = val
	}
}

// Validate performs validation of the entire configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server configuration: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging configuration: %w", err)
	}

	if err := c.Attachments.Validate(); err != nil {
		return fmt.Errorf("attachments configuration: %w", err)
	}

	if err := c.Simulator.Validate(); err != nil {
		return fmt.Errorf("simulator configuration: %w", err)
	}

	if err := c.Sessions.Validate(); err != nil {
		return fmt.Errorf("sessions configuration: %w", err)
	}

	if err := c.Intent.Validate(); err != nil {
		return fmt.Errorf("intent configuration: %w", err)
	}

	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("limits configuration: %w", err)
	}

	return nil
}

// Validate performs validation of server configuration.
func (c *ServerConfig) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.TLS != nil && (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return errors.New("tls requires both cert_file and key_file")
	}
	return nil
}

// Validate performs validation of logging configuration.
func (c *LoggingConfig) Validate() error {
	if strings.TrimSpace(c.Level) == "" {
		c.Level = "info"
	}

	level := strings.TrimSpace(strings.ToLower(c.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Level = level
		return nil
	default:
		return fmt.Errorf("invalid log level %q, supported levels: debug, info, warn, error", c.Level)
	}
}

// Validate performs validation of the upload policy.
func (c *AttachmentsConfig) Validate() error {
	if c.MaxSizeBytes <= 0 {
		return fmt.Errorf("max_size_bytes must be positive, got %d", c.MaxSizeBytes)
	}
	for i, t := range c.AllowedTypes {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("allowed_types[%d] is blank", i)
		}
	}
	return nil
}

// Validate performs validation of the simulator bounds.
func (c *SimulatorConfig) Validate() error {
	if c.MinDelay < 0 {
		return fmt.Errorf("min_delay must not be negative, got %s", c.MinDelay)
	}
	if c.MaxDelay < c.MinDelay {
		return fmt.Errorf("max_delay %s is below min_delay %s", c.MaxDelay, c.MinDelay)
	}
	return nil
}

// Validate performs validation of session defaults.
func (c *SessionsConfig) Validate() error {
	if strings.TrimSpace(c.DefaultView) == "" {
		c.DefaultView = string(domain.ViewDAG)
	}
	if !domain.View(c.DefaultView).Valid() {
		return fmt.Errorf("unknown default_view %q", c.DefaultView)
	}
	return nil
}

// Validate performs validation of configured keyword rules.
func (c *IntentConfig) Validate() error {
	seen := make(map[string]bool, len(c.ExtraRules))
	for i, r := range c.ExtraRules {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return fmt.Errorf("extra_rules[%d]: name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("extra_rules[%d]: duplicate rule name %q", i, name)
		}
		seen[name] = true
		if !domain.Category(r.Category).Valid() {
			return fmt.Errorf("extra_rules[%d]: unknown category %q", i, r.Category)
		}
		if len(r.Tokens) == 0 {
			return fmt.Errorf("extra_rules[%d]: at least one token is required", i)
		}
	}
	return nil
}

// Validate performs validation of submission limits.
func (c *LimitsConfig) Validate() error {
	if c.SubmissionsPerSecond < 0 {
		return fmt.Errorf("submissions_per_second must not be negative, got %g", c.SubmissionsPerSecond)
	}
	if c.Burst < 0 {
		return fmt.Errorf("burst must not be negative, got %d", c.Burst)
	}
	return nil
}
