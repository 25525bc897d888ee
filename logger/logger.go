/*
Package logger builds the zerolog root logger for the dues engine.

PURPOSE:
  One place that knows how to turn logging configuration into a
  zerolog.Logger. The logger is returned to the caller and passed down
  explicitly; nothing in this codebase logs through ambient globals, so
  tests can hand components a silenced or captured logger.

USAGE:
  log, err := logger.Setup(cfg.GetLoggerConfig())
  schedLog := logger.WithComponent(log, "scheduler")
*/
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string // trace, debug, info, warn, error, fatal, panic
	Format     string // json, console
	TimeFormat string // RFC3339 or a custom layout
	Output     string // stdout, stderr, or a file path
}

// DefaultConfig returns a sensible default logging configuration.
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		Output:     "stdout",
	}
}

// Setup builds the root logger from the configuration.
func Setup(config LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", config.Level, err)
	}

	var output io.Writer
	switch config.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("open log output: %w", err)
		}
		output = file
	}

	switch strings.ToLower(config.Format) {
	case "json":
		// JSON is zerolog's native format.
	default:
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: config.TimeFormat,
		}
	}

	log := zerolog.New(output).Level(level).With().
		Timestamp().
		Logger()
	return log, nil
}

// WithComponent returns a child logger tagged with a component field.
func WithComponent(log zerolog.Logger, component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
