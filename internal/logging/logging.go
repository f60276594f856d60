// Package logging builds the zerolog logger shared by the CLI, the MCP server
// and the accessibility core. Logs go to stderr; stdout carries command output.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const consoleTimeFormat = "15:04:05.000"

// New returns a logger writing to w at the named level. Terminals get the
// human-readable console writer, everything else gets JSON lines.
func New(level string, w io.Writer) zerolog.Logger {
	zerolog.ErrorFieldName = "err"
	if w == nil {
		w = os.Stderr
	}
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: consoleTimeFormat}
	}
	return zerolog.New(w).Level(ParseLevel(level, zerolog.WarnLevel)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, returning def for unknown
// names. "off" and "disabled" silence the logger.
func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "OFF", "DISABLED":
		return zerolog.Disabled
	default:
		return def
	}
}
