package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/arath/internal/ara"
	"github.com/harrison/arath/internal/checkpoint"
	"github.com/harrison/arath/internal/report"
)

// Logger defines the logging the orchestrator needs.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogSummary(summary report.Summary)
}

// RunOptions tunes a single run.
type RunOptions struct {
	// Ignore lists result statuses left out of the report. Nil uses
	// report.DefaultIgnore.
	Ignore []string

	// DryRun reports as usual but leaves the checkpoint untouched.
	DryRun bool
}

// Orchestrator runs report cycles against one source and checkpoint.
type Orchestrator struct {
	source   ara.Source
	store    *checkpoint.Store
	logger   Logger
	now      func() time.Time
	newRunID func() string
}

// NewOrchestrator creates a new Orchestrator instance.
// The logger parameter is optional and can be nil.
func NewOrchestrator(source ara.Source, store *checkpoint.Store, logger Logger) *Orchestrator {
	if source == nil {
		panic("source cannot be nil")
	}
	if store == nil {
		panic("checkpoint store cannot be nil")
	}

	return &Orchestrator{
		source:   source,
		store:    store,
		logger:   logger,
		now:      time.Now,
		newRunID: func() string { return uuid.New().String() },
	}
}

// Run performs load checkpoint, fetch, collect, filter, emit, and commit, in
// that order. The checkpoint is written only when every earlier step
// succeeded; on error it keeps its previous content.
func (o *Orchestrator) Run(ctx context.Context, reporter report.Reporter, opts RunOptions) (summary report.Summary, err error) {
	if reporter == nil {
		return report.Summary{}, fmt.Errorf("reporter cannot be nil")
	}

	started := o.now()
	summary = report.Summary{RunID: o.newRunID(), DryRun: opts.DryRun}
	defer func() {
		summary.Duration = time.Since(started)
		if o.logger != nil {
			o.logger.LogSummary(summary)
		}
	}()

	if err := o.store.Acquire(); err != nil {
		return summary, err
	}
	defer o.store.Release()

	previous := o.store.Load()
	txn := o.store.Begin(started)
	summary.Window = report.Window{Current: txn.Started(), Previous: previous}
	o.debug(fmt.Sprintf("run %s: window %s .. %s", summary.RunID,
		checkpoint.Format(previous), checkpoint.Format(txn.Started())))

	runs, err := FetchPlaybooks(ctx, o.source, previous)
	if err != nil {
		return summary, err
	}
	summary.Playbooks = len(runs)
	o.info(fmt.Sprintf("run %s: %d playbook runs ended since %s", summary.RunID, len(runs), checkpoint.Format(previous)))

	if err := reporter.Begin(summary.Window); err != nil {
		return summary, fmt.Errorf("failed to write report: %w", err)
	}

	actions, err := Collect(ctx, o.source, runs)
	if err != nil {
		return summary, err
	}
	summary.Collected = len(actions)

	relevant := report.Filter(actions, opts.Ignore)
	for _, action := range relevant {
		if err := reporter.Report(action); err != nil {
			return summary, fmt.Errorf("failed to write report: %w", err)
		}
		summary.Reported++
	}
	if err := reporter.End(); err != nil {
		return summary, fmt.Errorf("failed to write report: %w", err)
	}

	if opts.DryRun {
		o.info(fmt.Sprintf("run %s: dry run, checkpoint stays at %s", summary.RunID, checkpoint.Format(previous)))
		return summary, nil
	}
	if err := txn.Commit(); err != nil {
		return summary, err
	}
	summary.Committed = true
	return summary, nil
}

func (o *Orchestrator) info(message string) {
	if o.logger != nil {
		o.logger.LogInfo(message)
	}
}

func (o *Orchestrator) debug(message string) {
	if o.logger != nil {
		o.logger.LogDebug(message)
	}
}
