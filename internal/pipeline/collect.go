// Package pipeline runs one report cycle: fetch the playbook runs that ended
// since the checkpoint, collect their results as actions, filter and emit them,
// then advance the checkpoint.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/harrison/arath/internal/ara"
	"github.com/harrison/arath/internal/report"
)

// PlaybookStatuses are the lifecycle states of a finished playbook run.
var PlaybookStatuses = []string{ara.PlaybookCompleted, ara.PlaybookFailed}

// FetchPlaybooks lists the finished playbook runs that ended strictly after
// since, oldest first. The source's answer is returned as is.
func FetchPlaybooks(ctx context.Context, src ara.Source, since time.Time) ([]ara.Playbook, error) {
	playbooks, err := src.ListPlaybooks(ctx, ara.PlaybookQuery{
		Statuses:   PlaybookStatuses,
		EndedAfter: since,
		Order:      "ended",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playbooks: %w", err)
	}
	return playbooks, nil
}

// Collect builds one action per result of every run: run order first, then
// result order, both as returned by the source. Any failed lookup aborts the
// whole collection.
func Collect(ctx context.Context, src ara.Source, runs []ara.Playbook) ([]report.Action, error) {
	var actions []report.Action
	for _, run := range runs {
		results, err := src.ListResults(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("playbook %d: failed to fetch results: %w", run.ID, err)
		}

		for _, result := range results {
			task, err := src.GetTask(ctx, result.Task)
			if err != nil {
				return nil, fmt.Errorf("playbook %d result %d: failed to fetch task: %w", run.ID, result.ID, err)
			}
			host, err := src.GetHost(ctx, result.Host)
			if err != nil {
				return nil, fmt.Errorf("playbook %d result %d: failed to fetch host: %w", run.ID, result.ID, err)
			}

			action, err := report.NewAction(result, task, host)
			if err != nil {
				return nil, fmt.Errorf("playbook %d result %d: %w", run.ID, result.ID, err)
			}
			actions = append(actions, action)
		}
	}
	return actions, nil
}
