// Package aratest provides an in-memory ara.Source for tests.
package aratest

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/harrison/arath/internal/ara"
)

// Call records one Source invocation.
type Call struct {
	Method string
	ID     int64
}

// MemorySource serves records held in memory. Playbook filtering mirrors the
// server: status in Statuses, ended strictly after EndedAfter, ascending by
// end time when Order is "ended".
type MemorySource struct {
	Playbooks []ara.Playbook
	Results   map[int64][]ara.Result
	Tasks     map[int64]ara.Task
	Hosts     map[int64]ara.Host

	// Err, when set for a method name, is returned by that method.
	Err map[string]error

	// Calls lists every invocation in order.
	Calls []Call

	// LastQuery is the query passed to the most recent ListPlaybooks.
	LastQuery ara.PlaybookQuery
}

// NewMemorySource creates an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		Results: make(map[int64][]ara.Result),
		Tasks:   make(map[int64]ara.Task),
		Hosts:   make(map[int64]ara.Host),
		Err:     make(map[string]error),
	}
}

// ListPlaybooks implements ara.Source.
func (m *MemorySource) ListPlaybooks(ctx context.Context, q ara.PlaybookQuery) ([]ara.Playbook, error) {
	m.Calls = append(m.Calls, Call{Method: "ListPlaybooks"})
	m.LastQuery = q
	if err := m.Err["ListPlaybooks"]; err != nil {
		return nil, err
	}

	var out []ara.Playbook
	for _, pb := range m.Playbooks {
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, pb.Status) {
			continue
		}
		if !pb.Ended.After(q.EndedAfter) {
			continue
		}
		out = append(out, pb)
	}
	if q.Order == "ended" {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Ended.Before(out[j].Ended)
		})
	}
	return out, nil
}

// ListResults implements ara.Source.
func (m *MemorySource) ListResults(ctx context.Context, playbookID int64) ([]ara.Result, error) {
	m.Calls = append(m.Calls, Call{Method: "ListResults", ID: playbookID})
	if err := m.Err["ListResults"]; err != nil {
		return nil, err
	}
	return m.Results[playbookID], nil
}

// GetTask implements ara.Source.
func (m *MemorySource) GetTask(ctx context.Context, id int64) (ara.Task, error) {
	m.Calls = append(m.Calls, Call{Method: "GetTask", ID: id})
	if err := m.Err["GetTask"]; err != nil {
		return ara.Task{}, err
	}
	task, ok := m.Tasks[id]
	if !ok {
		return ara.Task{}, fmt.Errorf("task %d: %w", id, ara.ErrNotFound)
	}
	return task, nil
}

// GetHost implements ara.Source.
func (m *MemorySource) GetHost(ctx context.Context, id int64) (ara.Host, error) {
	m.Calls = append(m.Calls, Call{Method: "GetHost", ID: id})
	if err := m.Err["GetHost"]; err != nil {
		return ara.Host{}, err
	}
	host, ok := m.Hosts[id]
	if !ok {
		return ara.Host{}, fmt.Errorf("host %d: %w", id, ara.ErrNotFound)
	}
	return host, nil
}
