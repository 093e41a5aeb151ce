package ara

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record looked up by id does not exist.
var ErrNotFound = errors.New("record not found")

// Source is the read-only view of an ARA server needed to build a report.
type Source interface {
	// ListPlaybooks lists playbook runs matching the query.
	ListPlaybooks(ctx context.Context, q PlaybookQuery) ([]Playbook, error)

	// ListResults lists the results recorded for one playbook run.
	ListResults(ctx context.Context, playbookID int64) ([]Result, error)

	// GetTask fetches a task by id.
	GetTask(ctx context.Context, id int64) (Task, error)

	// GetHost fetches a host by id.
	GetHost(ctx context.Context, id int64) (Host, error)
}
