// ABOUTME: Configuration loading and parsing for trip-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete trip-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Agents   []AgentEntry   `yaml:"agents"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Sessions SessionsConfig `yaml:"sessions"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// AgentEntry is one static registry entry for a specialized service.
// The registry is fixed at startup — no runtime mutation.
type AgentEntry struct {
	Name        string            `yaml:"name"`
	Endpoint    string            `yaml:"endpoint"`
	Description string            `yaml:"description"`
	Parameters  map[string]string `yaml:"parameters"`
}

// WorkflowConfig maps workflow stages to registry agent names and holds
// call timing.
type WorkflowConfig struct {
	ItineraryAgent  string `yaml:"itinerary_agent"`
	WeatherAgent    string `yaml:"weather_agent"`
	RestaurantAgent string `yaml:"restaurant_agent"`
	BudgetAgent     string `yaml:"budget_agent"`

	AgentTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	AgentTimeoutRaw string `yaml:"agent_timeout"`
}

// SessionsConfig holds session lifecycle timing.
type SessionsConfig struct {
	IdleTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	IdleTimeoutRaw string `yaml:"idle_timeout"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults applied when the config leaves fields unset.
const (
	DefaultAgentTimeout = 30 * time.Second
	DefaultIdleTimeout  = 30 * time.Minute
	DefaultMetricsPath  = "/metrics"
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses raw YAML config bytes, expanding environment variables and
// applying defaults and validation.
func Parse(data []byte) (*Config, error) {
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

// applyDefaults fills unset fields with their defaults.
func (c *Config) applyDefaults() {
	if c.Workflow.AgentTimeout == 0 {
		c.Workflow.AgentTimeout = DefaultAgentTimeout
	}
	if c.Sessions.IdleTimeout == 0 {
		c.Sessions.IdleTimeout = DefaultIdleTimeout
	}
	if c.Workflow.ItineraryAgent == "" {
		c.Workflow.ItineraryAgent = "itinerary"
	}
	if c.Workflow.WeatherAgent == "" {
		c.Workflow.WeatherAgent = "weather"
	}
	if c.Workflow.RestaurantAgent == "" {
		c.Workflow.RestaurantAgent = "restaurant"
	}
	if c.Workflow.BudgetAgent == "" {
		c.Workflow.BudgetAgent = "budget"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
// Endpoint URL shape is left to the registry, which fails fast on malformed
// endpoints at construction.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent entry is required")
	}

	seen := make(map[string]bool, len(c.Agents))
	for i, a := range c.Agents {
		if a.Name == "" {
			return fmt.Errorf("agents[%d]: name is required", i)
		}
		if a.Endpoint == "" {
			return fmt.Errorf("agent %q: endpoint is required", a.Name)
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate agent name %q", a.Name)
		}
		seen[a.Name] = true
	}

	for _, w := range []struct{ key, agent string }{
		{"itinerary_agent", c.Workflow.ItineraryAgent},
		{"weather_agent", c.Workflow.WeatherAgent},
		{"restaurant_agent", c.Workflow.RestaurantAgent},
		{"budget_agent", c.Workflow.BudgetAgent},
	} {
		if !seen[w.agent] {
			return fmt.Errorf("workflow.%s references unknown agent %q", w.key, w.agent)
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Workflow.AgentTimeoutRaw != "" {
		cfg.Workflow.AgentTimeout, err = time.ParseDuration(cfg.Workflow.AgentTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing agent_timeout %q: %w", cfg.Workflow.AgentTimeoutRaw, err)
		}
	}

	if cfg.Sessions.IdleTimeoutRaw != "" {
		cfg.Sessions.IdleTimeout, err = time.ParseDuration(cfg.Sessions.IdleTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing idle_timeout %q: %w", cfg.Sessions.IdleTimeoutRaw, err)
		}
	}

	return nil
}
