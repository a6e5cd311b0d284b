// ABOUTME: Configuration loading and parsing for registre-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load when the corresponding field is absent.
const (
	DefaultSessionMaxEntries = 1000
	DefaultExtractCacheTTL   = time.Hour
	DefaultRegistryTimeout   = 10 * time.Second
)

// Config represents the complete registre-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Auth      AuthConfig      `yaml:"auth"`
	Keystore  KeystoreConfig  `yaml:"keystore"`
	Registry  RegistryConfig  `yaml:"registry"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
}

// AuthConfig holds authentication configuration.
// JWTSecret verifies access tokens minted by the external authorization
// flow (the delegated lane). Static keys are validated via the keystore.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// KeystoreConfig holds the static API key store configuration
type KeystoreConfig struct {
	Path string `yaml:"path"`
}

// RegistryConfig holds the upstream company-register API configuration
type RegistryConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`

	Timeout  time.Duration `yaml:"-"`
	CacheTTL time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	TimeoutRaw  string `yaml:"timeout"`
	CacheTTLRaw string `yaml:"cache_ttl"`
}

// SessionsConfig holds identity-session cache configuration
type SessionsConfig struct {
	// MaxEntries bounds the per-process session cache. The least recently
	// used session is evicted once the bound is reached.
	MaxEntries int `yaml:"max_entries"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in defaults for optional fields left unset.
func (c *Config) applyDefaults() {
	if c.Sessions.MaxEntries <= 0 {
		c.Sessions.MaxEntries = DefaultSessionMaxEntries
	}
	if c.Registry.CacheTTL <= 0 {
		c.Registry.CacheTTL = DefaultExtractCacheTTL
	}
	if c.Registry.Timeout <= 0 {
		c.Registry.Timeout = DefaultRegistryTimeout
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// Server address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	// Tailscale requires a hostname
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Registry.BaseURL == "" {
		return fmt.Errorf("registry.base_url is required")
	}

	if c.Keystore.Path == "" {
		return fmt.Errorf("keystore.path is required")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Registry.TimeoutRaw != "" {
		cfg.Registry.Timeout, err = time.ParseDuration(cfg.Registry.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing registry.timeout %q: %w", cfg.Registry.TimeoutRaw, err)
		}
	}

	if cfg.Registry.CacheTTLRaw != "" {
		cfg.Registry.CacheTTL, err = time.ParseDuration(cfg.Registry.CacheTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing registry.cache_ttl %q: %w", cfg.Registry.CacheTTLRaw, err)
		}
	}

	return nil
}
