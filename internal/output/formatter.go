// Package output provides formatters for displaying operation results,
// guest listings and tasks in various formats (table, YAML, JSON).
package output

import (
	"fmt"

	"github.com/pwojcieszonek/pvectl/internal/configmap"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is a YAML format.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// Formatter formats command output.
type Formatter interface {
	// FormatResults formats a batch of operation results.
	FormatResults(results []result.OperationResult) (string, error)

	// FormatGuests formats a guest listing.
	FormatGuests(refs []pve.ResourceRef) (string, error)

	// FormatTask formats a single task's status.
	FormatTask(task *pve.Task) (string, error)

	// FormatDiff formats the pending changes of a resource.
	FormatDiff(ref pve.ResourceRef, diff *configmap.Diff) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	switch Format(format) {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid output format: %s (supported: table, yaml, json)", format)
	}
}

// resultView is the serializable shape of an operation result.
type resultView struct {
	Resource  string    `json:"resource" yaml:"resource"`
	Operation string    `json:"operation" yaml:"operation"`
	Status    string    `json:"status" yaml:"status"`
	UPID      string    `json:"upid,omitempty" yaml:"upid,omitempty"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	Changes   *diffView `json:"changes,omitempty" yaml:"changes,omitempty"`
	Task      *taskView `json:"task,omitempty" yaml:"task,omitempty"`
}

type diffView struct {
	Changed map[string]changeView `json:"changed,omitempty" yaml:"changed,omitempty"`
	Added   map[string]any        `json:"added,omitempty" yaml:"added,omitempty"`
	Removed []string              `json:"removed,omitempty" yaml:"removed,omitempty"`
}

type changeView struct {
	From any `json:"from" yaml:"from"`
	To   any `json:"to" yaml:"to"`
}

type taskView struct {
	UPID       string `json:"upid" yaml:"upid"`
	Node       string `json:"node" yaml:"node"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	Status     string `json:"status" yaml:"status"`
	ExitStatus string `json:"exitstatus,omitempty" yaml:"exitstatus,omitempty"`
}

type guestView struct {
	ID   int    `json:"id,omitempty" yaml:"id,omitempty"`
	Kind string `json:"kind" yaml:"kind"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Node string `json:"node" yaml:"node"`
}

func newResultView(r result.OperationResult) resultView {
	view := resultView{
		Resource:  r.Resource.String(),
		Operation: r.Operation,
		Status:    string(r.Status),
		UPID:      r.UPID,
		Message:   r.Message,
	}
	if r.Diff != nil && !r.Diff.Empty() {
		view.Changes = newDiffView(r.Diff)
	}
	if r.Task != nil {
		view.Task = newTaskView(r.Task)
	}
	return view
}

func newDiffView(d *configmap.Diff) *diffView {
	view := &diffView{Removed: d.Removed}
	if len(d.Changed) > 0 {
		view.Changed = make(map[string]changeView, len(d.Changed))
		for field, change := range d.Changed {
			view.Changed[field] = changeView{From: change.Old, To: change.New}
		}
	}
	if len(d.Added) > 0 {
		view.Added = d.Added
	}
	return view
}

func newTaskView(task *pve.Task) *taskView {
	return &taskView{
		UPID:       task.UPID,
		Node:       task.Node,
		Type:       task.Type,
		Status:     task.Status,
		ExitStatus: task.ExitStatus,
	}
}

func newGuestView(ref pve.ResourceRef) guestView {
	return guestView{
		ID:   ref.ID,
		Kind: string(ref.Kind),
		Name: ref.Name,
		Node: ref.Node,
	}
}
