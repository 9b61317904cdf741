// Package logging builds the process logger.
package logging

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w. debug forces the debug level;
// otherwise level is parsed with ParseLevel.
func New(w io.Writer, level string, debug bool) *log.Logger {
	lvl := ParseLevel(level)
	if debug {
		lvl = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "todo",
		ReportTimestamp: debug,
		Formatter:       log.TextFormatter,
	})
}

// Discard returns a logger that drops everything. Used by tests and by code
// constructed without a logger.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// ParseLevel parses a level name. Unknown names fall back to warn.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning", "":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}
