package output

import (
	"encoding/json"
	"fmt"

	"github.com/pwojcieszonek/pvectl/internal/configmap"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

func marshalJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	return string(data) + "\n", nil
}

// FormatResults formats operation results as a JSON array.
func (f *JSONFormatter) FormatResults(results []result.OperationResult) (string, error) {
	views := make([]resultView, 0, len(results))
	for _, r := range results {
		views = append(views, newResultView(r))
	}
	return marshalJSON(views)
}

// FormatGuests formats a guest listing as a JSON array.
func (f *JSONFormatter) FormatGuests(refs []pve.ResourceRef) (string, error) {
	views := make([]guestView, 0, len(refs))
	for _, ref := range refs {
		views = append(views, newGuestView(ref))
	}
	return marshalJSON(views)
}

// FormatTask formats a task's status as JSON.
func (f *JSONFormatter) FormatTask(task *pve.Task) (string, error) {
	return marshalJSON(newTaskView(task))
}

// FormatDiff formats pending changes as JSON.
func (f *JSONFormatter) FormatDiff(ref pve.ResourceRef, diff *configmap.Diff) (string, error) {
	view := struct {
		Resource string    `json:"resource"`
		Changes  *diffView `json:"changes,omitempty"`
	}{Resource: ref.String()}
	if diff != nil && !diff.Empty() {
		view.Changes = newDiffView(diff)
	}
	return marshalJSON(view)
}
