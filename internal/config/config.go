// ABOUTME: Configuration loading and parsing for textline-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete textline-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Database DatabaseConfig `yaml:"database"`
	Sessions SessionsConfig `yaml:"sessions"`
	Dedupe   DedupeConfig   `yaml:"dedupe"`
	Admin    AdminConfig    `yaml:"admin"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr    string `yaml:"http_addr"`
	WebhookPath string `yaml:"webhook_path"`

	TurnTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TurnTimeoutRaw string `yaml:"turn_timeout"`
}

// GatewayConfig holds credentials for the upstream messaging gateway.
// The auth token doubles as the webhook signing secret.
type GatewayConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
	APIBaseURL string `yaml:"api_base_url"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SessionsConfig holds session expiry tuning
type SessionsConfig struct {
	Expiry        time.Duration `yaml:"-"`
	SweepInterval time.Duration `yaml:"-"`

	ExpiryRaw        string `yaml:"expiry"`
	SweepIntervalRaw string `yaml:"sweep_interval"`
}

// DedupeConfig holds the inbound message dedupe window tuning
type DedupeConfig struct {
	TTL     time.Duration `yaml:"-"`
	MaxSize int           `yaml:"max_size"`

	TTLRaw string `yaml:"ttl"`
}

// AdminConfig holds admin API authentication configuration
type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults for tuning knobs left unset in the config file. The dedupe window
// and session expiry are operational parameters with no single correct value;
// these are explicit choices.
const (
	DefaultWebhookPath   = "/webhook"
	DefaultTurnTimeout   = 10 * time.Second
	DefaultDedupeTTL     = 10 * time.Minute
	DefaultDedupeMaxSize = 100_000
	DefaultSessionExpiry = 30 * 24 * time.Hour
	DefaultSweepInterval = time.Hour
	DefaultAPIBaseURL    = "https://api.twilio.com"
)

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

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in tuning knobs that were not set in the config file.
func (c *Config) applyDefaults() {
	if c.Server.WebhookPath == "" {
		c.Server.WebhookPath = DefaultWebhookPath
	}
	if c.Server.TurnTimeout == 0 {
		c.Server.TurnTimeout = DefaultTurnTimeout
	}
	if c.Gateway.APIBaseURL == "" {
		c.Gateway.APIBaseURL = DefaultAPIBaseURL
	}
	if c.Dedupe.TTL == 0 {
		c.Dedupe.TTL = DefaultDedupeTTL
	}
	if c.Dedupe.MaxSize == 0 {
		c.Dedupe.MaxSize = DefaultDedupeMaxSize
	}
	if c.Sessions.Expiry == 0 {
		c.Sessions.Expiry = DefaultSessionExpiry
	}
	if c.Sessions.SweepInterval == 0 {
		c.Sessions.SweepInterval = DefaultSweepInterval
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Gateway.AccountSID == "" {
		return fmt.Errorf("gateway.account_sid is required")
	}
	if c.Gateway.AuthToken == "" {
		return fmt.Errorf("gateway.auth_token is required")
	}
	if c.Gateway.FromNumber == "" {
		return fmt.Errorf("gateway.from_number is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{cfg.Server.TurnTimeoutRaw, &cfg.Server.TurnTimeout, "server.turn_timeout"},
		{cfg.Sessions.ExpiryRaw, &cfg.Sessions.Expiry, "sessions.expiry"},
		{cfg.Sessions.SweepIntervalRaw, &cfg.Sessions.SweepInterval, "sessions.sweep_interval"},
		{cfg.Dedupe.TTLRaw, &cfg.Dedupe.TTL, "dedupe.ttl"},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
