// Package logger provides the log sinks used by arath: a console logger for
// stderr, a per-run file logger, and a fan-out over several of them.
//
// Every logger filters by level (trace, debug, info, warn, error) and prefixes
// lines with an [HH:MM:SS] timestamp.
package logger

import (
	"strings"
	"time"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Levels lists the accepted level names, most verbose first.
var Levels = []string{"trace", "debug", "info", "warn", "error"}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	_, ok := levelValues[strings.ToLower(strings.TrimSpace(level))]
	return ok
}

var levelValues = map[string]int{
	"trace": levelTrace,
	"debug": levelDebug,
	"info":  levelInfo,
	"warn":  levelWarn,
	"error": levelError,
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if _, ok := levelValues[normalized]; ok {
		return normalized
	}
	return "info"
}

// enabled reports whether a message at messageLevel passes configuredLevel.
func enabled(configuredLevel, messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(configuredLevel)
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	if v, ok := levelValues[strings.ToLower(level)]; ok {
		return v
	}
	return levelInfo
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Runs are short, so sub-second durations keep millisecond precision.
// Examples: "350ms", "5s", "1m30s"
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
