package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/pwojcieszonek/pvectl/internal/lifecycle"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

const opDelete = "delete"

// Sync-wait bounds for the delete sequence.
const (
	DefaultDeleteTimeout = 5 * time.Minute
	// DefaultForceStopTimeout bounds the stop issued before a forced
	// delete.
	DefaultForceStopTimeout = 2 * time.Minute
)

// DeleteOptions configure a batch deletion.
type DeleteOptions struct {
	// Force stops a running guest before deleting it. Without it,
	// running guests are refused.
	Force bool
	// KeepDisks leaves the guest's unreferenced disks in place.
	KeepDisks bool
	// Purge also removes the guest from backup jobs and HA config.
	Purge bool

	Batch BatchOptions
}

// Deleter removes guests.
type Deleter struct {
	repo   Repository
	poller lifecycle.Poller
}

// NewDeleter creates a deleter.
func NewDeleter(repo Repository, poller lifecycle.Poller) *Deleter {
	return &Deleter{repo: repo, poller: poller}
}

// Delete removes the given guests, refusing running ones unless Force
// is set. With Force a bounded synchronous stop precedes the delete.
// The batch follows the dispatcher's fail-fast and cardinality rules.
func (d *Deleter) Delete(ctx context.Context, refs []pve.ResourceRef, opts DeleteOptions) ([]result.OperationResult, error) {
	if opts.Batch.ForceSync && opts.Batch.ForceAsync {
		return nil, fmt.Errorf("force-sync and force-async are mutually exclusive")
	}

	results := make([]result.OperationResult, 0, len(refs))
	for _, ref := range refs {
		res := d.deleteOne(ctx, ref, opts)
		results = append(results, res)
		if opts.Batch.FailFast && res.Failed() {
			break
		}
	}
	return results, nil
}

func (d *Deleter) deleteOne(ctx context.Context, ref pve.ResourceRef, opts DeleteOptions) result.OperationResult {
	status, err := d.repo.Status(ctx, ref)
	if err != nil {
		return result.Failed(ref, opDelete, err.Error())
	}

	if status == StatusRunning {
		if !opts.Force {
			return result.Failed(ref, opDelete,
				fmt.Sprintf("%s is running; stop it first or use force", ref))
		}
		if res := d.forceStop(ctx, ref); res != nil {
			return *res
		}
	}

	params := map[string]any{}
	if opts.KeepDisks {
		params["keep-disks"] = 1
	} else {
		params["destroy-unreferenced-disks"] = 1
	}
	if opts.Purge {
		params["purge"] = 1
	}

	upid, err := d.repo.Delete(ctx, ref, params)
	if err != nil {
		return result.Failed(ref, opDelete, err.Error())
	}
	return await(ctx, d.poller, ref, opDelete, upid, opts.Batch.sync(true), opts.Batch.timeout(DefaultDeleteTimeout))
}

func (d *Deleter) forceStop(ctx context.Context, ref pve.ResourceRef) *result.OperationResult {
	upid, err := d.repo.Stop(ctx, ref)
	if err != nil {
		r := result.Failed(ref, opDelete, fmt.Sprintf("force stop failed: %v", err))
		return &r
	}

	task, err := d.poller.Wait(ctx, ref.Node, upid, DefaultForceStopTimeout)
	if err != nil {
		r := result.Failed(ref, opDelete, fmt.Sprintf("force stop failed: %v", err))
		return &r
	}
	if !task.OK() {
		r := result.Failed(ref, opDelete, fmt.Sprintf("force stop failed: %s", task.ExitStatus))
		return &r
	}
	return nil
}
