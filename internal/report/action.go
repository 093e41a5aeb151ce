// Package report turns collected task results into the human-readable
// report: filtering by status, the fixed per-action template and the output
// formats.
package report

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/harrison/arath/internal/ara"
)

// Action is one task result joined with its task and host.
type Action struct {
	FactHostname      string
	InventoryHostname string
	Playbook          string
	Tags              []string
	TaskName          string
	Status            string
	Filename          string
	Lineno            int
	Ended             time.Time
}

// NewAction joins a result with its task and host.
func NewAction(result ara.Result, task ara.Task, host ara.Host) (Action, error) {
	factName, err := host.DiscoveredHostname()
	if err != nil {
		return Action{}, err
	}
	return Action{
		FactHostname:      factName,
		InventoryHostname: host.Name,
		Playbook:          task.Play.Name,
		Tags:              task.Tags,
		TaskName:          task.Name,
		Status:            result.Status,
		Filename:          basename(task.File.Path),
		Lineno:            task.Lineno,
		Ended:             result.Ended,
	}, nil
}

// Hostname is the fact hostname when it is non-empty, the inventory name
// otherwise.
func (a Action) Hostname() string {
	if a.FactHostname != "" {
		return a.FactHostname
	}
	return a.InventoryHostname
}

// Tagline joins the tags with single spaces, in the order given.
func (a Action) Tagline() string {
	return strings.Join(a.Tags, " ")
}

// Render fills the report template for one action:
//
//	<status>: "<task>"
//	<hostname> [<tags>] "<playbook>"
//	<filename>:<lineno>
func Render(a Action) string {
	return fmt.Sprintf("%s: \"%s\"\n%s [%s] \"%s\"\n%s:%d",
		a.Status, a.TaskName,
		a.Hostname(), a.Tagline(), a.Playbook,
		a.Filename, a.Lineno,
	)
}

// basename returns the last element of a path recorded on the controller.
// Backslashes count as separators.
func basename(p string) string {
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, `\`, "/")
	return path.Base(p)
}
