package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrison/arath/internal/report"
)

// TestFileLoggerCreatesRunLog verifies the log directory, run file and header.
func TestFileLoggerCreatesRunLog(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")

	logger, err := NewFileLogger(logDir, "info")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer logger.Close()

	name := filepath.Base(logger.Path())
	if !strings.HasPrefix(name, "run-") || !strings.HasSuffix(name, ".log") {
		t.Errorf("unexpected run log name %s", name)
	}

	data, err := os.ReadFile(logger.Path())
	if err != nil {
		t.Fatalf("failed to read run log: %v", err)
	}
	if !strings.Contains(string(data), "=== arath run log ===") {
		t.Errorf("missing header in %q", string(data))
	}
}

// TestLatestSymlink verifies latest.log points at the current run
func TestLatestSymlink(t *testing.T) {
	logDir := t.TempDir()

	logger, err := NewFileLogger(logDir, "info")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer logger.Close()

	target, err := os.Readlink(filepath.Join(logDir, "latest.log"))
	if err != nil {
		t.Fatalf("failed to read latest.log symlink: %v", err)
	}
	if target != filepath.Base(logger.Path()) {
		t.Errorf("latest.log -> %s, want %s", target, filepath.Base(logger.Path()))
	}
}

func TestFileLoggerLevelsAndSummary(t *testing.T) {
	logDir := t.TempDir()

	logger, err := NewFileLogger(logDir, "warn")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	logger.LogDebug("debug line")
	logger.LogInfo("info line")
	logger.LogWarn("warn line")
	logger.LogError("error line")
	logger.LogSummary(report.Summary{RunID: "hidden"})

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Writes after Close are dropped.
	logger.LogError("after close")

	data, err := os.ReadFile(logger.Path())
	if err != nil {
		t.Fatalf("failed to read run log: %v", err)
	}
	content := string(data)

	for _, unwanted := range []string{"debug line", "info line", "hidden", "after close"} {
		if strings.Contains(content, unwanted) {
			t.Errorf("run log should not contain %q", unwanted)
		}
	}
	for _, wanted := range []string{"[WARN] warn line", "[ERROR] error line"} {
		if !strings.Contains(content, wanted) {
			t.Errorf("run log missing %q", wanted)
		}
	}
}

func TestFileLoggerSummary(t *testing.T) {
	logger, err := NewFileLogger(t.TempDir(), "info")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	logger.LogSummary(report.Summary{
		RunID:     "abc-123",
		Playbooks: 1,
		Collected: 4,
		Reported:  1,
		Committed: true,
		Window: report.Window{
			Current:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Previous: time.Unix(0, 0),
		},
	})
	logger.Close()

	data, _ := os.ReadFile(logger.Path())
	content := string(data)
	for _, wanted := range []string{
		"=== RUN SUMMARY ===",
		"Run id:       abc-123",
		"Window:       1970-01-01T00:00:00Z .. 2024-01-01T00:00:00Z",
		"Reported:     1",
		"Checkpoint:   advanced to 2024-01-01T00:00:00Z",
	} {
		if !strings.Contains(content, wanted) {
			t.Errorf("run log missing %q:\n%s", wanted, content)
		}
	}
}

func TestNewFileLoggerBadDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileLogger(filepath.Join(blocker, "logs"), "info"); err == nil {
		t.Error("expected error when log dir cannot be created")
	}
}
