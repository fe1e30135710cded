// Package config defines the bridge configuration: platform identity,
// broker connection, metrics, logging, and the list of sensors with
// their serial and protocol settings. Configuration files are YAML,
// loaded in layers with environment variable overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Known protocol names for SensorConfig.Protocol.
const (
	ProtocolKsum      = "ksum"
	ProtocolModbusRTU = "modbus-rtu"
)

// Config represents the complete bridge configuration
type Config struct {
	Platform PlatformConfig `yaml:"platform" json:"platform"`
	NATS     NATSConfig     `yaml:"nats" json:"nats"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty" json:"logging,omitempty"`
	Sensors  []SensorConfig `yaml:"sensors" json:"sensors"`
}

// PlatformConfig defines platform identity
type PlatformConfig struct {
	Org         string `yaml:"org" json:"org"`
	ID          string `yaml:"id" json:"id"`
	Environment string `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URL           string   `yaml:"url,omitempty" json:"url,omitempty"`
	MaxReconnects int      `yaml:"max_reconnects,omitempty" json:"max_reconnects,omitempty"`
	ReconnectWait Duration `yaml:"reconnect_wait,omitempty" json:"reconnect_wait,omitempty"`
	Username      string   `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string   `yaml:"password,omitempty" json:"password,omitempty"`
	Token         string   `yaml:"token,omitempty" json:"token,omitempty"`
}

// MetricsConfig defines the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port,omitempty" json:"port,omitempty"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
}

// LoggingConfig defines structured logging settings
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// UnitConfig names the physical unit a sensor reports.
type UnitConfig struct {
	Name   string `yaml:"name" json:"name"`
	Symbol string `yaml:"symbol,omitempty" json:"symbol,omitempty"`
}

// SensorConfig describes one sensor: which port it hangs off, how its
// frames are decoded, and where its readings go.
type SensorConfig struct {
	Name        string             `yaml:"name" json:"name"`
	Protocol    string             `yaml:"protocol,omitempty" json:"protocol,omitempty"`
	Subject     string             `yaml:"subject,omitempty" json:"subject,omitempty"`
	Device      string             `yaml:"device" json:"device"`
	Baud        int                `yaml:"baud" json:"baud"`
	DataBits    int                `yaml:"data_bits,omitempty" json:"data_bits,omitempty"`
	Parity      string             `yaml:"parity,omitempty" json:"parity,omitempty"`
	StopBits    int                `yaml:"stop_bits,omitempty" json:"stop_bits,omitempty"`
	ReadTimeout Duration           `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`
	Delay       Duration           `yaml:"delay,omitempty" json:"delay,omitempty"`
	DelayBefore bool               `yaml:"delay_before,omitempty" json:"delay_before,omitempty"`
	Unit        UnitConfig         `yaml:"unit,omitempty" json:"unit,omitempty"`
	Markers     map[string]float64 `yaml:"markers,omitempty" json:"markers,omitempty"`
	MaxBuffer   int                `yaml:"max_buffer,omitempty" json:"max_buffer,omitempty"`
}

// Default returns the built-in defaults every loaded config starts
// from.
func Default() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			MaxReconnects: -1,
			ReconnectWait: Duration(2 * time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	// Use JSON marshaling/unmarshaling for deep copy
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}

// Validate checks the config and normalizes derived fields: subjects
// default to "<org>.sensors.<name>", the org is lowercased.
func (c *Config) Validate() error {
	if c.Platform.Org == "" {
		return errors.New("platform.org is required")
	}

	c.Platform.Org = strings.ToLower(c.Platform.Org)

	if !isValidSubjectPart(c.Platform.Org) {
		return fmt.Errorf(
			"platform.org %q is not valid for NATS subjects (must be alphanumeric with dots, dashes, underscores)",
			c.Platform.Org,
		)
	}

	if c.Platform.ID == "" {
		return errors.New("platform.id is required")
	}

	if c.NATS.URL == "" {
		return errors.New("nats.url is required")
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port %d is out of range", c.Metrics.Port)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	if len(c.Sensors) == 0 {
		return errors.New("at least one sensor is required")
	}

	seen := make(map[string]bool, len(c.Sensors))
	for i := range c.Sensors {
		sensor := &c.Sensors[i]
		if err := sensor.validate(); err != nil {
			return fmt.Errorf("sensor %d (%s): %w", i, sensor.Name, err)
		}
		if seen[sensor.Name] {
			return fmt.Errorf("sensor name %q is used twice", sensor.Name)
		}
		seen[sensor.Name] = true

		if sensor.Subject == "" {
			sensor.Subject = fmt.Sprintf("%s.sensors.%s", c.Platform.Org, sensor.Name)
		}
	}

	return nil
}

func (s *SensorConfig) validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if !isValidSubjectPart(s.Name) {
		return fmt.Errorf("name %q is not valid for NATS subjects", s.Name)
	}
	if s.Device == "" {
		return errors.New("device is required")
	}
	if s.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", s.Baud)
	}

	if s.Protocol == "" {
		s.Protocol = ProtocolKsum
	}
	switch s.Protocol {
	case ProtocolKsum, ProtocolModbusRTU:
	default:
		return fmt.Errorf("unknown protocol %q", s.Protocol)
	}

	if s.Delay < 0 {
		return errors.New("delay cannot be negative")
	}
	if s.MaxBuffer < 0 {
		return errors.New("max_buffer cannot be negative")
	}

	return nil
}

// isValidSubjectPart checks if a string is valid for use in NATS
// subjects. Valid characters are alphanumeric, dots, dashes, and
// underscores.
func isValidSubjectPart(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: true,
		envPrefix:  "SERIALBRIDGE",
	}
}

// AddLayer adds a configuration file layer. Later layers override
// earlier ones field by field; sensor lists are replaced whole.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	l.applyEnvOverrides(cfg)

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(l.envPrefix + "_PLATFORM_ORG"); val != "" {
		cfg.Platform.Org = val
	}
	if val := os.Getenv(l.envPrefix + "_PLATFORM_ID"); val != "" {
		cfg.Platform.ID = val
	}

	if val := os.Getenv(l.envPrefix + "_NATS_URL"); val != "" {
		cfg.NATS.URL = val
	}
	if val := os.Getenv(l.envPrefix + "_NATS_USERNAME"); val != "" {
		cfg.NATS.Username = val
	}
	if val := os.Getenv(l.envPrefix + "_NATS_PASSWORD"); val != "" {
		cfg.NATS.Password = val
	}
	if val := os.Getenv(l.envPrefix + "_NATS_TOKEN"); val != "" {
		cfg.NATS.Token = val
	}

	if val := os.Getenv(l.envPrefix + "_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if val := os.Getenv(l.envPrefix + "_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
}

// SaveToFile saves the configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// String returns a YAML representation of the config with credentials
// masked.
func (c *Config) String() string {
	masked := c.Clone()
	if masked.NATS.Password != "" {
		masked.NATS.Password = "***"
	}
	if masked.NATS.Token != "" {
		masked.NATS.Token = "***"
	}
	data, _ := yaml.Marshal(masked)
	return string(data)
}
