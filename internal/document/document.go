// Package document renders a resource configuration as a human-editable
// YAML document and parses edited documents back into flat maps.
//
// The rendered document is a projection: read-only fields and the
// concurrency token are filtered out by the caller before rendering, so
// the round trip Render -> Parse over an unmodified document yields a
// map equal (by canonical value) to the projected input.
package document

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pwojcieszonek/pvectl/internal/configmap"
)

// MalformedError reports an edited document that could not be parsed
// back into a flat configuration map.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed document: %v", e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Render produces the editable YAML text for a projected configuration.
// The identity header is emitted as comment lines so the operator knows
// what they are editing; comments are ignored on the way back in.
func Render(cfg configmap.ResourceConfig, identityHeader string) (string, error) {
	var b strings.Builder

	for _, line := range strings.Split(identityHeader, "\n") {
		b.WriteString("# ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("#\n")
	b.WriteString("# Edit values below. Removing a line deletes the field on the server.\n")
	b.WriteString("# Read-only fields are not shown and cannot be set here.\n")

	data, err := yaml.Marshal(map[string]any(cfg))
	if err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	b.Write(data)

	return b.String(), nil
}

// Parse converts edited document text back into a flat configuration
// map. Structurally invalid input (bad YAML, or a top level that is not
// a mapping) returns a MalformedError; it is never silently dropped.
func Parse(text string) (configmap.ResourceConfig, error) {
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		return nil, &MalformedError{Err: err}
	}
	if raw == nil {
		// An empty document is a valid mapping with no fields; the
		// caller's diff will treat every original field as removed.
		return configmap.ResourceConfig{}, nil
	}

	cfg := make(configmap.ResourceConfig, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case map[string]any, []any:
			return nil, &MalformedError{
				Err: fmt.Errorf("field %q: nested values are not supported, expected a scalar", k),
			}
		}
		cfg[k] = v
	}
	return cfg, nil
}
