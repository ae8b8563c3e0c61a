// Package configmap implements the configuration diff engine: flat
// resource configuration maps, structural diffs between them, the
// read-only field guard, and the construction of control-plane update
// parameters from a diff.
//
// Everything in this package is pure; no network or file I/O happens
// here.
package configmap

import (
	"fmt"
	"strconv"
)

// DigestField is the configuration key carrying the server-minted
// concurrency token. It is echoed back on update so the control plane
// can detect lost-update races, and is never user-editable.
const DigestField = "digest"

// ResourceConfig is a resource's live configuration as observed from the
// control plane at a point in time: a flat field-to-value map, possibly
// including the concurrency token under DigestField.
//
// A ResourceConfig is fetched fresh at the start of every edit/set
// invocation and never reused across invocations.
type ResourceConfig map[string]any

// Digest returns the concurrency token, or "" when the server did not
// provide one.
func (c ResourceConfig) Digest() string {
	v, ok := c[DigestField]
	if !ok {
		return ""
	}
	return Canonical(v)
}

// Project returns a copy of the config restricted to editable fields:
// the digest and every field in readOnly are dropped, as are fields with
// nil values (absent from the server's point of view).
func (c ResourceConfig) Project(readOnly []string) ResourceConfig {
	denied := make(map[string]bool, len(readOnly)+1)
	denied[DigestField] = true
	for _, f := range readOnly {
		denied[f] = true
	}

	out := make(ResourceConfig, len(c))
	for k, v := range c {
		if denied[k] || v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy of the config.
func (c ResourceConfig) Clone() ResourceConfig {
	out := make(ResourceConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Canonical converts a configuration value to its canonical string form.
//
// Values are compared by canonical form so that a numeric 8192 and the
// string "8192" are equal: the control plane and the YAML round trip do
// not agree on scalar types, and a representation change is not a
// semantic change.
func Canonical(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		// JSON numbers decode as float64; render integral values
		// without a decimal point so 8192.0 matches "8192".
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return Canonical(float64(x))
	default:
		return fmt.Sprintf("%v", x)
	}
}
