// Package logging configures the slog default logger used during training.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLevel names the environment variable read by ConfigureLogging.
const EnvLevel = "BACKPROP_LOG_LEVEL"

var logLevel = new(slog.LevelVar)

// ConfigureLogging sets up the global default logger with a TextHandler on
// stdout and sets the level from BACKPROP_LOG_LEVEL (DEBUG, INFO, WARN or
// ERROR). It defaults to Info if the variable is unset or unknown.
func ConfigureLogging() {
	logLevel.Set(slog.LevelInfo)
	if lvl, err := ParseLevel(os.Getenv(EnvLevel)); err == nil {
		logLevel.Set(lvl)
	}
	slog.SetDefault(New(os.Stdout, logLevel))
}

// SetLogLevel sets the level of the logger configured by ConfigureLogging.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// Level returns the current level of the logger configured by
// ConfigureLogging.
func Level() slog.Level {
	return logLevel.Level()
}

// New returns a text logger writing to w at level.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// ParseLevel maps a level name to a slog.Level. Names are case-insensitive;
// an empty name is Info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}
