package output

import (
	"bytes"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/pwojcieszonek/pvectl/internal/configmap"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

// TableFormatter formats output as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatResults formats operation results as a table, one row per
// resource. Applied changes follow the table, one block per result.
func (f *TableFormatter) FormatResults(results []result.OperationResult) (string, error) {
	if len(results) == 0 {
		return "No operations performed\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "RESOURCE\tNAME\tOPERATION\tSTATUS\tMESSAGE")
	}

	for _, r := range results {
		message := r.Message
		if message == "" && r.Status == result.StatusPending {
			message = r.UPID
		}
		if message == "" {
			message = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Resource, r.Resource.DisplayName(), r.Operation, r.Status, message)
	}
	_ = w.Flush()

	for _, r := range results {
		if r.Diff == nil || r.Diff.Empty() {
			continue
		}
		buf.WriteString("\n")
		writeDiff(&buf, r.Resource, r.Diff)
	}

	return buf.String(), nil
}

// FormatGuests formats a guest listing as a table.
func (f *TableFormatter) FormatGuests(refs []pve.ResourceRef) (string, error) {
	if len(refs) == 0 {
		return "No guests found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "ID\tKIND\tNAME\tNODE")
	}
	for _, ref := range refs {
		name := ref.Name
		if name == "" {
			name = "-"
		}
		id := "-"
		if ref.ID != 0 {
			id = fmt.Sprintf("%d", ref.ID)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, ref.Kind, name, ref.Node)
	}
	_ = w.Flush()
	return buf.String(), nil
}

// FormatTask formats a task's status as a table row.
func (f *TableFormatter) FormatTask(task *pve.Task) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "UPID\tNODE\tTYPE\tSTATUS\tEXIT")
	}
	exit := task.ExitStatus
	if exit == "" {
		exit = "-"
	}
	taskType := task.Type
	if taskType == "" {
		taskType = "-"
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", task.UPID, task.Node, taskType, task.Status, exit)
	_ = w.Flush()
	return buf.String(), nil
}

// FormatDiff formats pending changes, one line per field: "~" for
// changed, "+" for added, "-" for removed.
func (f *TableFormatter) FormatDiff(ref pve.ResourceRef, diff *configmap.Diff) (string, error) {
	if diff == nil || diff.Empty() {
		return fmt.Sprintf("%s: no changes\n", ref), nil
	}

	var buf bytes.Buffer
	writeDiff(&buf, ref, diff)
	return buf.String(), nil
}

func writeDiff(buf *bytes.Buffer, ref pve.ResourceRef, diff *configmap.Diff) {
	fmt.Fprintf(buf, "%s:\n", ref)

	changed := make([]string, 0, len(diff.Changed))
	for field := range diff.Changed {
		changed = append(changed, field)
	}
	sort.Strings(changed)
	for _, field := range changed {
		change := diff.Changed[field]
		fmt.Fprintf(buf, "  ~ %s: %s -> %s\n",
			field, configmap.Canonical(change.Old), configmap.Canonical(change.New))
	}

	added := make([]string, 0, len(diff.Added))
	for field := range diff.Added {
		added = append(added, field)
	}
	sort.Strings(added)
	for _, field := range added {
		fmt.Fprintf(buf, "  + %s: %s\n", field, configmap.Canonical(diff.Added[field]))
	}

	for _, field := range diff.Removed {
		fmt.Fprintf(buf, "  - %s\n", field)
	}
}
