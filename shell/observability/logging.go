// Package observability wires logging, tracing and metrics for the fakersql service.
package observability

import (
	"io"
	"log/slog"
	"strings"
)

// Log formats accepted by NewLogger.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// NewLogger creates the service logger writing to w. The returned LevelVar allows
// changing the level at runtime.
func NewLogger(w io.Writer, format, level string) (*slog.Logger, *slog.LevelVar) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	SetLevelFromString(levelVar, level)

	options := &slog.HandlerOptions{Level: levelVar}

	var handler slog.Handler
	if strings.EqualFold(format, LogFormatJSON) {
		handler = slog.NewJSONHandler(w, options)
	} else {
		handler = slog.NewTextHandler(w, options)
	}

	return slog.New(NewTraceContextHandler(handler)), levelVar
}

// SetLevelFromString sets the level from "debug", "info", "warn" or "error" in any case.
// Unknown values leave the level unchanged and return false.
func SetLevelFromString(levelVar *slog.LevelVar, level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "info":
		levelVar.Set(slog.LevelInfo)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		return false
	}

	return true
}
