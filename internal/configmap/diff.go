package configmap

import "sort"

// Change records a single field's transition.
type Change struct {
	Old any
	New any
}

// Diff is the structural difference between two flat configuration maps:
// fields whose value changed, fields newly present, and fields removed.
// The three collections are disjoint. An all-empty Diff means "no-op".
type Diff struct {
	Changed map[string]Change
	Added   map[string]any
	Removed []string
}

// Compute diffs two flat maps. Values are compared by canonical string
// form (see Canonical), so representation-only differences do not count.
//
// A field present in original with a nil value and present in edited is
// added, not changed. A field in original but absent from edited is
// removed.
func Compute(original, edited ResourceConfig) Diff {
	d := Diff{
		Changed: make(map[string]Change),
		Added:   make(map[string]any),
	}

	for k, newVal := range edited {
		oldVal, ok := original[k]
		if !ok || oldVal == nil {
			d.Added[k] = newVal
			continue
		}
		if Canonical(oldVal) != Canonical(newVal) {
			d.Changed[k] = Change{Old: oldVal, New: newVal}
		}
	}

	for k, oldVal := range original {
		if oldVal == nil {
			continue
		}
		if _, ok := edited[k]; !ok {
			d.Removed = append(d.Removed, k)
		}
	}
	sort.Strings(d.Removed)

	return d
}

// Empty reports whether the diff contains no changes at all.
func (d Diff) Empty() bool {
	return len(d.Changed) == 0 && len(d.Added) == 0 && len(d.Removed) == 0
}

// Fields returns the sorted union of changed and added field names.
func (d Diff) Fields() []string {
	fields := make([]string, 0, len(d.Changed)+len(d.Added))
	for k := range d.Changed {
		fields = append(fields, k)
	}
	for k := range d.Added {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// Violations returns the sorted subset of changed and added fields that
// appear in the read-only denylist. A non-empty result rejects the whole
// apply; partial application of only the safe fields is never attempted.
func (d Diff) Violations(readOnly []string) []string {
	denied := make(map[string]bool, len(readOnly))
	for _, f := range readOnly {
		denied[f] = true
	}

	var out []string
	for _, f := range d.Fields() {
		if denied[f] {
			out = append(out, f)
		}
	}
	return out
}
