package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
server:
  port: 7000
database:
  driver: sqlite
  path: /var/lib/fedsdn.sqlite
auth:
  root_username: admin
  root_password: secret
adapters:
  root: /opt/fedsdn/adaptors
  timeout: 30s
monitoring:
  labels:
    region: eu-1
`))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", cfg.Server.Addr())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/opt/fedsdn/adaptors", cfg.Adapters.Root)
	assert.Equal(t, 30*time.Second, cfg.Adapters.Timeout)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "eu-1", cfg.Monitoring.Labels["region"])
	assert.True(t, cfg.Monitoring.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("server:\n  prot: 1\n"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"FEDSDN_PORT":                    "8080",
		"FEDSDN_ROOT_USERNAME":           "root",
		"FEDSDN_ROOT_PASSWORD":           "pw",
		"FEDSDN_DB_DRIVER":               "memory",
		"FEDSDN_ADAPTERS_TIMEOUT":        "5s",
		"FEDSDN_ADAPTERS_MAX_CONCURRENT": "4",
	}
	cfg := Default()
	require.NoError(t, cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "root", cfg.Auth.RootUsername)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Adapters.Timeout)
	assert.Equal(t, int64(4), cfg.Adapters.MaxConcurrent)
	require.NoError(t, cfg.Validate())

	env["FEDSDN_PORT"] = "eighty"
	assert.Error(t, cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Auth.RootUsername = "root"
		cfg.Auth.RootPassword = "pw"
		return cfg
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing root", func(c *Config) { c.Auth.RootPassword = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }},
		{"postgres without host", func(c *Config) { c.Database.Driver = "postgres" }},
		{"negative timeout", func(c *Config) { c.Adapters.Timeout = -time.Second }},
		{"jwt without ttl", func(c *Config) { c.Auth.JWTSecret = "s"; c.Auth.TokenTTL = 0 }},
	}
	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fedsdn.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  root_username: root\n  root_password: pw\n"), 0o600))
	t.Setenv("FEDSDN_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.LevelStr)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoggingConfig(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, LoggingConfig{LevelStr: "warn"}.Level())
	assert.Equal(t, slog.LevelInfo, LoggingConfig{LevelStr: "loud"}.Level())

	var buf bytes.Buffer
	logger := LoggingConfig{LevelStr: "warn", Format: "json"}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
