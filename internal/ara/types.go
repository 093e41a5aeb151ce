// Package ara describes the records served by an ARA (Ansible Run Analysis)
// server and the read-only sources that fetch them.
//
// Two sources are provided: HTTPClient talks to the ARA REST API, and
// OfflineClient reads an ARA server's sqlite database directly.
package ara

import (
	"fmt"
	"time"
)

// Playbook lifecycle statuses reported by ARA.
const (
	PlaybookCompleted = "completed"
	PlaybookFailed    = "failed"
	PlaybookRunning   = "running"
	PlaybookExpired   = "expired"
)

// FactHostname is the host fact carrying the hostname discovered at runtime.
const FactHostname = "ansible_hostname"

// Playbook is one execution of an Ansible playbook.
type Playbook struct {
	ID     int64     `json:"id"`
	Name   string    `json:"name"`
	Path   string    `json:"path"`
	Status string    `json:"status"`
	Ended  time.Time `json:"ended"`
}

// Result is the outcome of one task against one host within a playbook run.
// Task and Host are ids of the owning records.
type Result struct {
	ID     int64     `json:"id"`
	Status string    `json:"status"`
	Ended  time.Time `json:"ended"`
	Task   int64     `json:"task"`
	Host   int64     `json:"host"`
}

// File is the source file a task was declared in.
type File struct {
	ID   int64  `json:"id"`
	Path string `json:"path"`
}

// Play is the play a task belongs to.
type Play struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Task is the static definition of a task.
type Task struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Lineno int      `json:"lineno"`
	Tags   []string `json:"tags"`
	File   File     `json:"file"`
	Play   Play     `json:"play"`
}

// Host is an inventory entry together with the facts gathered for it.
type Host struct {
	ID    int64          `json:"id"`
	Name  string         `json:"name"`
	Facts map[string]any `json:"facts"`
}

// DiscoveredHostname returns the ansible_hostname fact.
// An absent fact (facts were not gathered) yields "". A fact that is present
// but not a string is reported as an error.
func (h Host) DiscoveredHostname() (string, error) {
	raw, ok := h.Facts[FactHostname]
	if !ok || raw == nil {
		return "", nil
	}
	name, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("host %d: fact %s has type %T, want string", h.ID, FactHostname, raw)
	}
	return name, nil
}

// PlaybookQuery selects playbooks for the listing call.
type PlaybookQuery struct {
	// Statuses restricts the lifecycle status (any of).
	Statuses []string

	// EndedAfter is a strict lower bound on the end time.
	EndedAfter time.Time

	// Order is the ordering field, e.g. "ended" for ascending end time.
	Order string
}

// listResponse is the envelope ARA wraps every collection in.
type listResponse[T any] struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []T     `json:"results"`
}
