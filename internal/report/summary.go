package report

import "time"

// Summary describes a finished run.
type Summary struct {
	RunID     string
	Window    Window
	Playbooks int
	Collected int
	Reported  int
	DryRun    bool
	Committed bool
	Duration  time.Duration
}
