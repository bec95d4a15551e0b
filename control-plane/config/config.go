// Package config loads the server configuration from YAML with FEDSDN_*
// environment overrides.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/saintparish4/fedsdn/control-plane/database"
)

// ServerConfig configures the REST listener.
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	ProxyPath string `yaml:"proxy_path"`
}

// Addr is the listen address of the server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig selects the entity store backend.
type DatabaseConfig struct {
	// One of bolt, sqlite, postgres or memory.
	Driver string `yaml:"driver"`
	// File of the bolt and sqlite backends.
	Path string `yaml:"path"`

	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Options converts the configuration into store options.
func (c DatabaseConfig) Options() database.Options {
	return database.Options{
		Driver:   c.Driver,
		Path:     c.Path,
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Name,
	}
}

// AuthConfig holds the root administrator and bearer token settings.
type AuthConfig struct {
	RootUsername string `yaml:"root_username"`
	// Plain text or a bcrypt hash.
	RootPassword string `yaml:"root_password"`
	// Bearer tokens are disabled when empty.
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// AdaptersConfig locates and limits the site adapters.
type AdaptersConfig struct {
	Root          string        `yaml:"root"`
	MaxConcurrent int64         `yaml:"max_concurrent"`
	Timeout       time.Duration `yaml:"timeout"`
}

// MonitoringConfig controls the /metrics endpoint.
type MonitoringConfig struct {
	Enabled bool `yaml:"enabled"`
	// The labels to add to all metrics.
	Labels map[string]string `yaml:"labels"`
}

// Config is the complete server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Adapters   AdaptersConfig   `yaml:"adapters"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// Default returns the configuration used for every key a file leaves out.
func Default() Config {
	return Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 6121, ProxyPath: "/"},
		Database: DatabaseConfig{Driver: "bolt", Path: "fedsdn.db"},
		Auth:     AuthConfig{TokenTTL: time.Hour},
		Adapters: AdaptersConfig{Root: "./adaptors"},
		Logging:  LoggingConfig{LevelStr: "info", Format: "text"},
		Monitoring: MonitoringConfig{
			Enabled: true,
			Labels:  map[string]string{},
		},
	}
}

// Load reads the configuration file at path, applies the environment
// overrides and validates the result. An empty path only uses defaults and
// the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to open config: %w", err)
		}
		defer file.Close()
		if cfg, err = Parse(file); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

// applyEnv overrides fields from FEDSDN_* variables.
func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str("FEDSDN_HOST", &c.Server.Host)
	str("FEDSDN_PROXY_PATH", &c.Server.ProxyPath)
	str("FEDSDN_DB_DRIVER", &c.Database.Driver)
	str("FEDSDN_DB_PATH", &c.Database.Path)
	str("FEDSDN_DB_HOST", &c.Database.Host)
	str("FEDSDN_DB_PORT", &c.Database.Port)
	str("FEDSDN_DB_USER", &c.Database.User)
	str("FEDSDN_DB_PASSWORD", &c.Database.Password)
	str("FEDSDN_DB_NAME", &c.Database.Name)
	str("FEDSDN_ROOT_USERNAME", &c.Auth.RootUsername)
	str("FEDSDN_ROOT_PASSWORD", &c.Auth.RootPassword)
	str("FEDSDN_JWT_SECRET", &c.Auth.JWTSecret)
	str("FEDSDN_ADAPTERS_ROOT", &c.Adapters.Root)
	str("FEDSDN_LOG_LEVEL", &c.Logging.LevelStr)
	str("FEDSDN_LOG_FORMAT", &c.Logging.Format)

	if v, ok := lookup("FEDSDN_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FEDSDN_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("FEDSDN_ADAPTERS_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FEDSDN_ADAPTERS_TIMEOUT: %w", err)
		}
		c.Adapters.Timeout = d
	}
	if v, ok := lookup("FEDSDN_ADAPTERS_MAX_CONCURRENT"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("FEDSDN_ADAPTERS_MAX_CONCURRENT: %w", err)
		}
		c.Adapters.MaxConcurrent = n
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.Auth.RootUsername == "" || c.Auth.RootPassword == "" {
		return fmt.Errorf("auth.root_username and auth.root_password are required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	switch strings.ToLower(c.Database.Driver) {
	case "bolt", "sqlite", "sqlite3", "memory":
		if c.Database.Path == "" && c.Database.Driver != "memory" {
			return fmt.Errorf("database.path is required for driver %s", c.Database.Driver)
		}
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required for driver postgres")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if c.Adapters.MaxConcurrent < 0 || c.Adapters.Timeout < 0 {
		return fmt.Errorf("adapters.max_concurrent and adapters.timeout must not be negative")
	}
	if c.Auth.JWTSecret != "" && c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive when bearer tokens are enabled")
	}
	return nil
}
