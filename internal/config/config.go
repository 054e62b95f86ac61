package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultListenPort = 9433
	DefaultTimeout    = 10 * time.Second
	DefaultLogLevel   = "info"
)

// Stale inverter policies for devices that fail a scrape.
const (
	StaleInvertersKeep  = "keep"
	StaleInvertersClear = "clear"
)

// Config is the exporter configuration.
// Keys match the legacy TOML configuration format so
// existing TOML files load unchanged.
type Config struct {
	// ListenPort is the TCP port the metrics endpoint listens on (all interfaces).
	ListenPort int `yaml:"listen_port" toml:"listen_port"`

	// Timeout bounds each device request, including the digest retry.
	// Devices may override it.
	Timeout Duration `yaml:"timeout" toml:"timeout"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level" toml:"log_level"`

	// StaleInverters decides what happens to a failed device's inverter
	// series: keep (leave last values) | clear (delete them).
	StaleInverters string `yaml:"stale_inverters" toml:"stale_inverters"`

	// Systems is the list of monitored Envoy gateways.
	Systems []Device `yaml:"systems" toml:"systems"`
}

// Device describes one Envoy gateway.
type Device struct {
	// Host is the value of the "host" label.
	Host string `yaml:"host" toml:"host"`

	// URL is the base URL of the device API, e.g. http://envoy.local.
	URL string `yaml:"url" toml:"url"`

	// User and Pass are the digest-auth credentials.
	User string `yaml:"user" toml:"user"`
	Pass string `yaml:"pass" toml:"pass"`

	// SN is the value of the "envoy" label, normally the gateway serial number.
	SN string `yaml:"sn" toml:"sn"`

	// Timeout overrides Config.Timeout for this device when non-zero.
	Timeout Duration `yaml:"timeout" toml:"timeout"`
}

// EffectiveTimeout returns the device timeout, or fallback when unset.
func (d Device) EffectiveTimeout(fallback time.Duration) time.Duration {
	if d.Timeout > 0 {
		return time.Duration(d.Timeout)
	}
	return fallback
}

// Duration is a time.Duration that decodes from strings such as "10s" in
// both YAML and TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler (used by go-toml).
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Load reads and parses the config file at path. Files ending in .toml are
// decoded as TOML, everything else as YAML. Missing optional fields are
// filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: parse toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		ListenPort:     DefaultListenPort,
		Timeout:        Duration(DefaultTimeout),
		LogLevel:       DefaultLogLevel,
		StaleInverters: StaleInvertersKeep,
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.ListenPort <= 0 || cfg.ListenPort > 65535 {
		return fmt.Errorf("listen_port %d is out of range [1, 65535]", cfg.ListenPort)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level %q unknown: want debug|info|warn|error", cfg.LogLevel)
	}
	switch cfg.StaleInverters {
	case StaleInvertersKeep, StaleInvertersClear:
	default:
		return fmt.Errorf("stale_inverters %q unknown: want keep|clear", cfg.StaleInverters)
	}

	seen := make(map[[2]string]int, len(cfg.Systems))
	for i, d := range cfg.Systems {
		if d.Host == "" {
			return fmt.Errorf("systems[%d]: host is required", i)
		}
		if d.URL == "" {
			return fmt.Errorf("systems[%d] %q: url is required", i, d.Host)
		}
		u, err := url.Parse(d.URL)
		if err != nil {
			return fmt.Errorf("systems[%d] %q: invalid url: %w", i, d.Host, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("systems[%d] %q: url %q must be an absolute http(s) URL", i, d.Host, d.URL)
		}
		if d.Timeout < 0 {
			return fmt.Errorf("systems[%d] %q: timeout must not be negative", i, d.Host)
		}
		key := [2]string{d.Host, d.SN}
		if j, dup := seen[key]; dup {
			return fmt.Errorf("systems[%d] %q: duplicates systems[%d] (host and sn must be unique)", i, d.Host, j)
		}
		seen[key] = i
	}
	return nil
}
