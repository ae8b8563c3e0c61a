package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pwojcieszonek/pvectl/internal/configmap"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

func marshalYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	return string(data), nil
}

// FormatResults formats operation results as a YAML sequence.
func (f *YAMLFormatter) FormatResults(results []result.OperationResult) (string, error) {
	views := make([]resultView, 0, len(results))
	for _, r := range results {
		views = append(views, newResultView(r))
	}
	return marshalYAML(views)
}

// FormatGuests formats a guest listing as a YAML sequence.
func (f *YAMLFormatter) FormatGuests(refs []pve.ResourceRef) (string, error) {
	views := make([]guestView, 0, len(refs))
	for _, ref := range refs {
		views = append(views, newGuestView(ref))
	}
	return marshalYAML(views)
}

// FormatTask formats a task's status as YAML.
func (f *YAMLFormatter) FormatTask(task *pve.Task) (string, error) {
	return marshalYAML(newTaskView(task))
}

// FormatDiff formats pending changes as YAML.
func (f *YAMLFormatter) FormatDiff(ref pve.ResourceRef, diff *configmap.Diff) (string, error) {
	view := struct {
		Resource string    `yaml:"resource"`
		Changes  *diffView `yaml:"changes,omitempty"`
	}{Resource: ref.String()}
	if diff != nil && !diff.Empty() {
		view.Changes = newDiffView(diff)
	}
	return marshalYAML(view)
}
