package config

import (
	"io"
	"log/slog"
	"os"
)

// LoggingConfig selects the level and format of the process logger.
type LoggingConfig struct {
	// The log level to use (debug, info, warn, error).
	LevelStr string `yaml:"level"`
	// The log format to use (json, text).
	Format string `yaml:"format"`
}

// Level implements slog.Leveler.
func (c LoggingConfig) Level() slog.Level {
	switch c.LevelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a logger writing to w.
func (c LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c}
	var handler slog.Handler
	switch c.Format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// SetDefaultLogger installs the configured logger as the slog default and
// returns it.
func (c LoggingConfig) SetDefaultLogger() *slog.Logger {
	logger := c.NewLogger(os.Stdout)
	slog.SetDefault(logger)
	logger.Info("logging: set default logger", "level", c.LevelStr, "format", c.Format)
	return logger
}
