package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidYAML(t *testing.T) {
	yaml := `
listen_port: 9500
timeout: 3s
log_level: debug
stale_inverters: clear
systems:
  - host: garage
    url: "http://192.168.1.20"
    user: envoy
    pass: "123456"
    sn: "121700000001"
  - host: barn
    url: "http://192.168.1.21/"
    user: installer
    pass: secret
    sn: "121700000002"
    timeout: 500ms
`
	cfg := loadFromString(t, "config.yaml", yaml)

	assert.Equal(t, 9500, cfg.ListenPort)
	assert.Equal(t, Duration(3*time.Second), cfg.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, StaleInvertersClear, cfg.StaleInverters)
	require.Len(t, cfg.Systems, 2)

	garage := cfg.Systems[0]
	assert.Equal(t, "garage", garage.Host)
	assert.Equal(t, "http://192.168.1.20", garage.URL)
	assert.Equal(t, "envoy", garage.User)
	assert.Equal(t, "123456", garage.Pass)
	assert.Equal(t, "121700000001", garage.SN)
	assert.Equal(t, 3*time.Second, garage.EffectiveTimeout(time.Duration(cfg.Timeout)))

	barn := cfg.Systems[1]
	assert.Equal(t, 500*time.Millisecond, barn.EffectiveTimeout(time.Duration(cfg.Timeout)))
}

func TestLoad_LegacyTOML(t *testing.T) {
	toml := `
listen_port = 9433

[[systems]]
host = "house"
url = "http://envoy.local"
user = "envoy"
pass = "000000"
sn = "121700000003"
timeout = "2s"
`
	cfg := loadFromString(t, "envoy.toml", toml)

	assert.Equal(t, 9433, cfg.ListenPort)
	require.Len(t, cfg.Systems, 1)
	assert.Equal(t, "house", cfg.Systems[0].Host)
	assert.Equal(t, "121700000003", cfg.Systems[0].SN)
	assert.Equal(t, Duration(2*time.Second), cfg.Systems[0].Timeout)
	assert.Equal(t, Duration(DefaultTimeout), cfg.Timeout)
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFromString(t, "config.yaml", `
systems:
  - host: garage
    url: "http://192.168.1.20"
`)

	assert.Equal(t, DefaultListenPort, cfg.ListenPort)
	assert.Equal(t, Duration(DefaultTimeout), cfg.Timeout)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, StaleInvertersKeep, cfg.StaleInverters)
}

func TestLoad_NoSystems(t *testing.T) {
	cfg := loadFromString(t, "config.yaml", "listen_port: 9433\n")
	assert.Empty(t, cfg.Systems)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"port out of range", "listen_port: 70000\n"},
		{"zero timeout", "timeout: 0s\n"},
		{"bad duration", "timeout: soon\n"},
		{"unknown log level", "log_level: chatty\n"},
		{"unknown stale policy", "stale_inverters: forget\n"},
		{"missing host", `
systems:
  - url: "http://192.168.1.20"
`},
		{"missing url", `
systems:
  - host: garage
`},
		{"relative url", `
systems:
  - host: garage
    url: "192.168.1.20"
`},
		{"unsupported scheme", `
systems:
  - host: garage
    url: "ftp://192.168.1.20"
`},
		{"negative device timeout", `
systems:
  - host: garage
    url: "http://192.168.1.20"
    timeout: -1s
`},
		{"duplicate label tuple", `
systems:
  - host: garage
    url: "http://192.168.1.20"
    sn: "1"
  - host: garage
    url: "http://192.168.1.21"
    sn: "1"
`},
		{"malformed yaml", "systems: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadStringErr(t, "config.yaml", tc.yaml)
			assert.Error(t, err)
		})
	}
}

func TestLoad_SameHostDifferentSerial(t *testing.T) {
	cfg := loadFromString(t, "config.yaml", `
systems:
  - host: garage
    url: "http://192.168.1.20"
    sn: "1"
  - host: garage
    url: "http://192.168.1.21"
    sn: "2"
`)
	assert.Len(t, cfg.Systems, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDevice_EffectiveTimeout(t *testing.T) {
	assert.Equal(t, 7*time.Second, Device{}.EffectiveTimeout(7*time.Second))
	assert.Equal(t, time.Second, Device{Timeout: Duration(time.Second)}.EffectiveTimeout(7*time.Second))
}

// loadFromString writes content to a temp file named name and calls Load,
// failing on error.
func loadFromString(t *testing.T, name, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, name, content)
	require.NoError(t, err)
	return cfg
}

// loadStringErr writes content to a temp file named name and calls Load,
// returning any error.
func loadStringErr(t *testing.T, name, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return Load(path)
}
