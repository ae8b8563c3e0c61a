package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pwojcieszonek/pvectl/internal/configmap"
	"github.com/pwojcieszonek/pvectl/internal/lifecycle"
	"github.com/pwojcieszonek/pvectl/internal/pve"
)

// GuestRepository serves QEMU VMs and LXC containers; the API path is
// derived from the reference's kind.
type GuestRepository struct {
	client *Client
}

// NewGuestRepository creates a guest repository.
func NewGuestRepository(client *Client) *GuestRepository {
	return &GuestRepository{client: client}
}

func guestPath(ref pve.ResourceRef) string {
	return fmt.Sprintf("/nodes/%s/%s/%d", ref.Node, ref.Kind, ref.ID)
}

// Get verifies the guest exists and fills in its current name.
func (r *GuestRepository) Get(ctx context.Context, ref pve.ResourceRef) (pve.ResourceRef, error) {
	var status struct {
		Name string `json:"name"`
	}
	if err := r.client.Get(ctx, guestPath(ref)+"/status/current", &status); err != nil {
		return ref, fmt.Errorf("%s: %w", ref, err)
	}
	if status.Name != "" {
		ref.Name = status.Name
	}
	return ref, nil
}

// FetchConfig returns the guest's live configuration.
func (r *GuestRepository) FetchConfig(ctx context.Context, ref pve.ResourceRef) (configmap.ResourceConfig, error) {
	var cfg map[string]any
	if err := r.client.Get(ctx, guestPath(ref)+"/config", &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	return cfg, nil
}

// UpdateConfig applies update parameters to the guest.
func (r *GuestRepository) UpdateConfig(ctx context.Context, ref pve.ResourceRef, params configmap.UpdateParams) error {
	return r.client.Put(ctx, guestPath(ref)+"/config", params, nil)
}

// Resize grows a guest disk to an absolute size.
func (r *GuestRepository) Resize(ctx context.Context, ref pve.ResourceRef, disk, newSize string) error {
	return r.client.Put(ctx, guestPath(ref)+"/resize", map[string]any{
		"disk": disk,
		"size": newSize,
	}, nil)
}

// Status returns the guest's current status string.
func (r *GuestRepository) Status(ctx context.Context, ref pve.ResourceRef) (string, error) {
	var status struct {
		Status string `json:"status"`
	}
	if err := r.client.Get(ctx, guestPath(ref)+"/status/current", &status); err != nil {
		return "", fmt.Errorf("%s: %w", ref, err)
	}
	return status.Status, nil
}

// Clone clones the source guest; returns the clone task's handle.
func (r *GuestRepository) Clone(ctx context.Context, source pve.ResourceRef, params map[string]any) (string, error) {
	return r.taskCall(ctx, guestPath(source)+"/clone", params)
}

// Create creates a new guest of the given kind on node.
func (r *GuestRepository) Create(ctx context.Context, kind pve.Kind, node string, params map[string]any) (string, error) {
	return r.taskCall(ctx, fmt.Sprintf("/nodes/%s/%s", node, kind), params)
}

// Delete removes the guest.
func (r *GuestRepository) Delete(ctx context.Context, ref pve.ResourceRef, params map[string]any) (string, error) {
	var upid string
	if err := r.client.Delete(ctx, guestPath(ref), params, &upid); err != nil {
		return "", err
	}
	return upid, nil
}

// Start boots the guest.
func (r *GuestRepository) Start(ctx context.Context, ref pve.ResourceRef) (string, error) {
	return r.taskCall(ctx, guestPath(ref)+"/status/start", nil)
}

// Stop force-stops the guest.
func (r *GuestRepository) Stop(ctx context.Context, ref pve.ResourceRef) (string, error) {
	return r.taskCall(ctx, guestPath(ref)+"/status/stop", nil)
}

// Invoke issues a lifecycle operation; the endpoint is derived from the
// operation kind.
func (r *GuestRepository) Invoke(ctx context.Context, op lifecycle.Operation, ref pve.ResourceRef, params map[string]any) (string, error) {
	var path string
	switch op {
	case lifecycle.OpStart, lifecycle.OpStop, lifecycle.OpShutdown, lifecycle.OpSuspend, lifecycle.OpResume:
		path = fmt.Sprintf("%s/status/%s", guestPath(ref), op)
	case lifecycle.OpRestart:
		path = guestPath(ref) + "/status/reboot"
	case lifecycle.OpMigrate:
		path = guestPath(ref) + "/migrate"
	default:
		return "", fmt.Errorf("unknown operation %q", op)
	}
	return r.taskCall(ctx, path, params)
}

// NextID returns the next unused guest identifier in the cluster.
func (r *GuestRepository) NextID(ctx context.Context) (int, error) {
	var raw string
	if err := r.client.Get(ctx, "/cluster/nextid", &raw); err != nil {
		return 0, err
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("unexpected next id %q: %w", raw, err)
	}
	return id, nil
}

// CreateSnapshot snapshots the guest under the given name.
func (r *GuestRepository) CreateSnapshot(ctx context.Context, ref pve.ResourceRef, name string, params map[string]any) (string, error) {
	all := map[string]any{"snapname": name}
	for k, v := range params {
		all[k] = v
	}
	return r.taskCall(ctx, guestPath(ref)+"/snapshot", all)
}

// DeleteSnapshot removes the named snapshot.
func (r *GuestRepository) DeleteSnapshot(ctx context.Context, ref pve.ResourceRef, name string) (string, error) {
	var upid string
	if err := r.client.Delete(ctx, fmt.Sprintf("%s/snapshot/%s", guestPath(ref), name), nil, &upid); err != nil {
		return "", err
	}
	return upid, nil
}

// RollbackSnapshot resets the guest to the named snapshot.
func (r *GuestRepository) RollbackSnapshot(ctx context.Context, ref pve.ResourceRef, name string) (string, error) {
	return r.taskCall(ctx, fmt.Sprintf("%s/snapshot/%s/rollback", guestPath(ref), name), nil)
}

// CreateBackup backs the guest up through the node's vzdump endpoint.
func (r *GuestRepository) CreateBackup(ctx context.Context, ref pve.ResourceRef, params map[string]any) (string, error) {
	all := map[string]any{"vmid": ref.ID}
	for k, v := range params {
		all[k] = v
	}
	return r.taskCall(ctx, fmt.Sprintf("/nodes/%s/vzdump", ref.Node), all)
}

// taskCall issues a POST that the control plane answers with a task
// handle.
func (r *GuestRepository) taskCall(ctx context.Context, path string, params map[string]any) (string, error) {
	var upid string
	if err := r.client.Post(ctx, path, params, &upid); err != nil {
		return "", err
	}
	return upid, nil
}

// NodeRepository serves cluster node configuration.
type NodeRepository struct {
	client *Client
}

// NewNodeRepository creates a node repository.
func NewNodeRepository(client *Client) *NodeRepository {
	return &NodeRepository{client: client}
}

// Get verifies the node exists.
func (r *NodeRepository) Get(ctx context.Context, ref pve.ResourceRef) (pve.ResourceRef, error) {
	var status struct {
		Uptime int64 `json:"uptime"`
	}
	if err := r.client.Get(ctx, fmt.Sprintf("/nodes/%s/status", ref.Node), &status); err != nil {
		return ref, fmt.Errorf("node %s: %w", ref.Node, err)
	}
	ref.Kind = pve.KindNode
	return ref, nil
}

// FetchConfig returns the node's configuration.
func (r *NodeRepository) FetchConfig(ctx context.Context, ref pve.ResourceRef) (configmap.ResourceConfig, error) {
	var cfg map[string]any
	if err := r.client.Get(ctx, fmt.Sprintf("/nodes/%s/config", ref.Node), &cfg); err != nil {
		return nil, fmt.Errorf("node %s: %w", ref.Node, err)
	}
	return cfg, nil
}

// UpdateConfig applies update parameters to the node.
func (r *NodeRepository) UpdateConfig(ctx context.Context, ref pve.ResourceRef, params configmap.UpdateParams) error {
	return r.client.Put(ctx, fmt.Sprintf("/nodes/%s/config", ref.Node), params, nil)
}
