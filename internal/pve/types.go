// Package pve defines the shared domain types for the cluster control
// plane: resource kinds, resource references, and asynchronous tasks.
//
// These types are transport-independent and shared by every layer of the
// tool; the api package produces them, the services consume them.
package pve

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a resource type on the control plane.
type Kind string

const (
	// KindVM is a QEMU/KVM virtual machine.
	KindVM Kind = "qemu"
	// KindCT is an LXC container.
	KindCT Kind = "lxc"
	// KindNode is a cluster node.
	KindNode Kind = "node"
	// KindVolume is a guest volume (a disk device on a VM or container).
	KindVolume Kind = "volume"
)

// ResourceRef identifies a single resource in the cluster.
//
// For guests (VMs and containers) ID is the numeric VMID and Node is the
// node currently hosting the guest. For nodes ID is zero and Node carries
// the node name. Name is informational and may be empty.
type ResourceRef struct {
	Kind Kind
	ID   int
	Node string
	Name string
}

// String returns a short human-readable identifier, e.g. "qemu/100".
func (r ResourceRef) String() string {
	if r.Kind == KindNode {
		return fmt.Sprintf("node/%s", r.Node)
	}
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

// DisplayName returns the resource name when known, falling back to the
// numeric identity.
func (r ResourceRef) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.Kind == KindNode {
		return r.Node
	}
	return strconv.Itoa(r.ID)
}

// Task status values reported by the control plane.
const (
	// TaskRunning means the task has not reached a terminal state.
	TaskRunning = "running"
	// TaskStopped means the task has finished; ExitStatus says how.
	TaskStopped = "stopped"

	// ExitOK is the exit status of a successfully finished task. Any
	// other terminal exit status is a human-readable failure reason.
	ExitOK = "OK"
)

// Task is the client-side view of an asynchronous control-plane job,
// identified by its opaque UPID handle.
type Task struct {
	UPID       string `json:"upid"`
	Node       string `json:"node"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	ExitStatus string `json:"exitstatus"`
}

// NodeFromUPID extracts the executing node from a task handle. Handles
// look like "UPID:<node>:<pid>:<pstart>:<starttime>:<type>:<id>:<user>:".
func NodeFromUPID(upid string) (string, error) {
	parts := strings.Split(upid, ":")
	if len(parts) < 3 || parts[0] != "UPID" || parts[1] == "" {
		return "", fmt.Errorf("malformed task handle %q", upid)
	}
	return parts[1], nil
}

// Finished reports whether the task reached a terminal state.
func (t Task) Finished() bool {
	return t.Status == TaskStopped
}

// OK reports whether the task finished successfully.
func (t Task) OK() bool {
	return t.Finished() && t.ExitStatus == ExitOK
}
