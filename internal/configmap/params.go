package configmap

import "strings"

// DeleteField is the update parameter instructing the control plane to
// unset fields; its value is a comma-joined list of field names.
const DeleteField = "delete"

// UpdateParams is the mutation payload for a configuration update call.
// It is constructed once from a Diff and consumed once.
type UpdateParams map[string]any

// BuildUpdateParams converts a diff into control-plane update parameters:
// every changed and added entry is copied verbatim, removed fields are
// joined into the single delete instruction, and the original config's
// concurrency token is attached whenever present.
//
// This is a pure function with no failure mode of its own; invalid
// values are the repository layer's concern.
func BuildUpdateParams(d Diff, original ResourceConfig) UpdateParams {
	params := make(UpdateParams, len(d.Changed)+len(d.Added)+2)

	for k, ch := range d.Changed {
		params[k] = ch.New
	}
	for k, v := range d.Added {
		params[k] = v
	}
	if len(d.Removed) > 0 {
		params[DeleteField] = strings.Join(d.Removed, ",")
	}
	if digest := original.Digest(); digest != "" {
		params[DigestField] = digest
	}

	return params
}
