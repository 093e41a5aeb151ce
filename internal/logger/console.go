package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/arath/internal/report"
)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is enabled when the writer itself is a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
// Only an *os.File attached to a TTY qualifies; NO_COLOR and TERM=dumb disable it.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// paint colors s regardless of color.NoColor, which only tracks stdout.
func paint(attr color.Attribute, s string) string {
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// LogSummary logs the outcome of a run at INFO level.
// Format: "[HH:MM:SS] Run <id>: <n> playbooks, <n> results, <n> reported (<duration>), checkpoint <state>"
func (cl *ConsoleLogger) LogSummary(summary report.Summary) {
	if cl.writer == nil || !enabled(cl.logLevel, "info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	state := checkpointState(summary)
	reported := fmt.Sprintf("%d reported", summary.Reported)
	if cl.colorOutput {
		if summary.Reported > 0 {
			reported = paint(color.FgYellow, reported)
		} else {
			reported = paint(color.FgGreen, reported)
		}
		if summary.Committed {
			state = paint(color.FgGreen, state)
		}
	}

	fmt.Fprintf(cl.writer, "[%s] Run %s: %d playbooks, %d results, %s (%s), checkpoint %s\n",
		timestamp(), summary.RunID, summary.Playbooks, summary.Collected, reported,
		formatDuration(summary.Duration), state)
}

// checkpointState describes what happened to the checkpoint in a run.
func checkpointState(summary report.Summary) string {
	switch {
	case summary.Committed:
		return "advanced to " + summary.Window.Current.UTC().Format("2006-01-02T15:04:05Z07:00")
	case summary.DryRun:
		return "unchanged (dry run)"
	default:
		return "unchanged"
	}
}

// logWithLevel is a helper that logs a message at the specified level if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !enabled(cl.logLevel, strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	if cl.colorOutput {
		fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, colorLevel(level), message)
		return
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, level, message)
}

// colorLevel wraps the level name in its ANSI color.
func colorLevel(level string) string {
	switch level {
	case "TRACE":
		return paint(color.FgHiBlack, level)
	case "DEBUG":
		return paint(color.FgCyan, level)
	case "INFO":
		return paint(color.FgBlue, level)
	case "WARN":
		return paint(color.FgYellow, level)
	case "ERROR":
		return paint(color.FgRed, level)
	default:
		return level
	}
}

// NoOpLogger discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(message string)           {}
func (n *NoOpLogger) LogDebug(message string)           {}
func (n *NoOpLogger) LogInfo(message string)            {}
func (n *NoOpLogger) LogWarn(message string)            {}
func (n *NoOpLogger) LogError(message string)           {}
func (n *NoOpLogger) LogSummary(summary report.Summary) {}
