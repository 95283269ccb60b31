// Package logging provides structured logger construction on the standard
// library slog package, with masq-backed redaction so the rate feed API key
// and other credential-like values never reach the log output.
package logging

import (
	"io"
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// apiKeyInlinePattern matches inline "api_key=<value>" or "apikey:<value>"
// strings that may appear in arbitrary fields such as request URLs.
var apiKeyInlinePattern = regexp.MustCompile(`(?i)(api[_\-]?key|apikey)\s*[:=]\s*\S+`)

// New creates a configured *slog.Logger.
//
// The level parameter sets the minimum log level ("debug", "info", "warn",
// "error"; unrecognized values default to info). The format parameter
// selects "text" or "json" output.
func New(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: newRedactAttr(),
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

// newRedactAttr returns a masq-powered ReplaceAttr redacting credential
// fields by name and raw key-like values by regex
func newRedactAttr() func([]string, slog.Attr) slog.Attr {
	return masq.New(
		masq.WithFieldName("api_key"),
		masq.WithFieldName("password"),
		masq.WithFieldName("token"),
		masq.WithRegex(apiKeyInlinePattern),
	)
}

// parseLevel converts a level string to slog.Level, defaulting to info
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
