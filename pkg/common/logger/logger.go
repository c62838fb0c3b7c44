package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents the logging level
type LogLevel int

const (
	// DebugLevel logs are typically verbose
	DebugLevel LogLevel = iota
	// InfoLevel is the default logging priority
	InfoLevel
	// WarnLevel logs are warnings
	WarnLevel
	// ErrorLevel logs are high-priority
	ErrorLevel
)

var zlevels = map[LogLevel]zerolog.Level{
	DebugLevel: zerolog.DebugLevel,
	InfoLevel:  zerolog.InfoLevel,
	WarnLevel:  zerolog.WarnLevel,
	ErrorLevel: zerolog.ErrorLevel,
}

var (
	out          io.Writer = os.Stdout
	std                    = newLogger(out, InfoLevel)
	currentLevel           = InfoLevel
)

func newLogger(w io.Writer, level LogLevel) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	return zerolog.New(cw).Level(zlevels[level]).With().Timestamp().Logger()
}

// ParseLevel maps a level name (e.g., "debug", "info", "warn", "error") to a LogLevel.
// Unknown names fall back to InfoLevel.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Initialize sets up the global logger level based on input string (e.g., "debug", "info", "warn", "error")
func Initialize(level string) {
	currentLevel = ParseLevel(level)
	std = newLogger(out, currentLevel)
}

// SetOutput redirects the global logger, keeping the current level.
func SetOutput(w io.Writer) {
	out = w
	std = newLogger(out, currentLevel)
}

// Level returns the active level.
func Level() LogLevel { return currentLevel }

// With returns a child zerolog.Logger carrying the given field, for callers that
// want structured events instead of the printf helpers.
func With(key string, value interface{}) zerolog.Logger {
	return std.With().Interface(key, value).Logger()
}

func log(level LogLevel, format string, v ...interface{}) {
	if level < currentLevel {
		return
	}
	std.WithLevel(zlevels[level]).Msg(fmt.Sprintf(format, v...))
}

// Package-level helpers
func Debug(format string, v ...interface{}) { log(DebugLevel, format, v...) }
func Info(format string, v ...interface{})  { log(InfoLevel, format, v...) }
func Warn(format string, v ...interface{})  { log(WarnLevel, format, v...) }
func Error(format string, v ...interface{}) { log(ErrorLevel, format, v...) }
