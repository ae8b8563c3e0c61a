// Package naming provides naming conventions for derived resources:
// clone destinations and default snapshot names.
//
// These rules are shared by the orchestrators and the CLI so generated
// names stay predictable.
package naming

import (
	"fmt"
	"time"

	"github.com/pwojcieszonek/pvectl/internal/pve"
)

// CloneName returns the destination name for a clone of the given
// source: "<source-name>-clone", falling back to "<kind>-<id>-clone"
// when the source has no name.
//
// Example: source "web-01" → "web-01-clone"; unnamed qemu/100 →
// "qemu-100-clone".
func CloneName(source pve.ResourceRef) string {
	if source.Name != "" {
		return fmt.Sprintf("%s-clone", source.Name)
	}
	return fmt.Sprintf("%s-%d-clone", source.Kind, source.ID)
}

// SnapshotName returns a default snapshot name derived from the given
// time, e.g. "snap-20260830-151030".
func SnapshotName(now time.Time) string {
	return now.Format("snap-20060102-150405")
}
