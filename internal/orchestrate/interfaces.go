// Package orchestrate implements the operation-specific flows on top of
// the batch rules: clone, create, migrate, snapshot, backup and delete.
// Each orchestrator builds the control-plane parameters for its
// operation, fills in auto-generated identifiers and names, and runs
// multi-step sequences such as clone, reconfigure, start.
package orchestrate

import (
	"context"
	"time"

	"github.com/pwojcieszonek/pvectl/internal/configmap"
	"github.com/pwojcieszonek/pvectl/internal/lifecycle"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

// Guest status values reported by the control plane.
const (
	StatusRunning = "running"
	StatusStopped = "stopped"
)

// Repository is the guest repository the orchestrators mutate through.
// Implementations derive the qemu/lxc API path from the reference's
// kind. Every mutating call returns the task handle of the server-side
// job.
type Repository interface {
	FetchConfig(ctx context.Context, ref pve.ResourceRef) (configmap.ResourceConfig, error)
	UpdateConfig(ctx context.Context, ref pve.ResourceRef, params configmap.UpdateParams) error
	Status(ctx context.Context, ref pve.ResourceRef) (string, error)
	Clone(ctx context.Context, source pve.ResourceRef, params map[string]any) (string, error)
	Create(ctx context.Context, kind pve.Kind, node string, params map[string]any) (string, error)
	Delete(ctx context.Context, ref pve.ResourceRef, params map[string]any) (string, error)
	Start(ctx context.Context, ref pve.ResourceRef) (string, error)
	Stop(ctx context.Context, ref pve.ResourceRef) (string, error)
	// NextID returns the next unused guest identifier in the cluster.
	NextID(ctx context.Context) (int, error)
}

// SnapshotRepository manages guest snapshots.
type SnapshotRepository interface {
	CreateSnapshot(ctx context.Context, ref pve.ResourceRef, name string, params map[string]any) (string, error)
	DeleteSnapshot(ctx context.Context, ref pve.ResourceRef, name string) (string, error)
	RollbackSnapshot(ctx context.Context, ref pve.ResourceRef, name string) (string, error)
}

// BackupRepository creates guest backups.
type BackupRepository interface {
	CreateBackup(ctx context.Context, ref pve.ResourceRef, params map[string]any) (string, error)
}

// Resolver maps bare identifiers to full resource references.
type Resolver interface {
	// Resolve returns nil without error when the identifier does not
	// name a resource.
	Resolve(ctx context.Context, id string) (*pve.ResourceRef, error)
	ResolveMultiple(ctx context.Context, ids []string) ([]pve.ResourceRef, error)
	// ResolveAll returns every guest in the cluster.
	ResolveAll(ctx context.Context) ([]pve.ResourceRef, error)
}

// BatchOptions are the batch controls shared by the orchestrators,
// following the dispatcher's rules.
type BatchOptions struct {
	ForceSync  bool
	ForceAsync bool
	FailFast   bool
	Timeout    time.Duration
}

func (o BatchOptions) sync(syncDefault bool) bool {
	if o.ForceSync {
		return true
	}
	if o.ForceAsync {
		return false
	}
	return syncDefault
}

func (o BatchOptions) timeout(def time.Duration) time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return def
}

// await turns an issued call into a result: pending in async mode, the
// polled terminal outcome in sync mode.
func await(ctx context.Context, poller lifecycle.Poller, ref pve.ResourceRef, op, upid string, sync bool, timeout time.Duration) result.OperationResult {
	if !sync {
		return result.Pending(ref, op, upid)
	}

	task, err := poller.Wait(ctx, ref.Node, upid, timeout)
	if err != nil {
		return result.Failed(ref, op, err.Error())
	}
	if !task.OK() {
		return result.Failed(ref, op, task.ExitStatus).WithTask(task)
	}
	return result.Successful(ref, op).WithTask(task)
}
