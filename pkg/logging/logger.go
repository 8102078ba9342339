// Package logging configures the process-wide zerolog logger and hands out
// per-component child loggers.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel names a minimum severity for emitted log events.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration. Zero-value fields fall back to the
// defaults from DefaultConfig when passed to Setup.
type Config struct {
	// Level is the minimum level to emit. Unknown or empty means info.
	Level LogLevel

	// Pretty switches from JSON to human-readable console output.
	Pretty bool

	// Output receives the log stream. Nil means os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the configuration used when nothing is overridden:
// info-level JSON on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger from cfg and returns it.
// Packages obtain their own child via NewLogger afterwards.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger returns a child of the global logger tagged with the component
// name, e.g. "store", "cache", "ratelimit".
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - Invalidation sweeps (pattern, keys removed)
//   - Background write-back completion
//   - Store calls abandoned by a canceled caller
//
// Info: Normal operation events
//   - Store connection established
//   - Cache warm completion
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Store transport errors (fail-open, request continues)
//   - Undecodable cache entries (treated as miss)
//   - Rate limit rejections
//   - Warm fetch failures (entry skipped)
//
// Error: Error conditions requiring attention
//   - Store unreachable after retries (degraded mode entered)
//   - Availability transitions to degraded
//   - Configuration errors
//
// Context Fields:
//   - key: cache or window key
//   - operation: store operation name (get, set, delete, scan, count_window)
//   - identifier: rate-limit identifier (user:<id> or ip:<addr>)
//   - endpoint: logical endpoint name
//   - tier: rate-limit tier name
//   - ttl: cache entry TTL
//   - retry_after: rejection back-off in seconds
