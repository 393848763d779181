// Package logx holds the shared zerolog logger.
package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log is the shared logger used throughout the project.
var Log = log.Logger

// Configure sets the global level and output. Stdio mode keeps stdout free
// for the protocol and stays silent unless the level is debug or lower.
func Configure(level string, stdio bool) {
	lvl := ParseLevel(level)
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if stdio && lvl > zerolog.DebugLevel {
		out = io.Discard
	}
	Log = zerolog.New(out).With().Timestamp().Logger()
}

// ParseLevel converts a string to a zerolog level.
// Accepts: all, trace, debug, info, warn, warning, error, fatal, none.
// Unknown values default to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "all", "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "none", "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel reports whether level is one ParseLevel knows
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "all", "trace", "debug", "info", "warn", "warning", "error", "fatal", "none", "off", "disabled":
		return true
	}
	return false
}
