package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/pwojcieszonek/pvectl/internal/lifecycle"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

const (
	opSnapshot         = "snapshot"
	opSnapshotDelete   = "delsnapshot"
	opSnapshotRollback = "rollback"
)

// DefaultSnapshotTimeout bounds the sync wait for snapshot tasks.
const DefaultSnapshotTimeout = 10 * time.Minute

// SnapshotOptions configure snapshot creation.
type SnapshotOptions struct {
	// Description is attached to the snapshot when set.
	Description string
	// VMState includes the running VM's memory in the snapshot.
	VMState bool

	Batch BatchOptions
}

// Snapshotter creates, deletes and rolls back snapshots across batches
// of resolved guests.
type Snapshotter struct {
	repo     SnapshotRepository
	poller   lifecycle.Poller
	resolver Resolver
}

// NewSnapshotter creates a snapshotter.
func NewSnapshotter(repo SnapshotRepository, poller lifecycle.Poller, resolver Resolver) *Snapshotter {
	return &Snapshotter{repo: repo, poller: poller, resolver: resolver}
}

// Create snapshots every guest named by ids under the given snapshot
// name. An empty ids list snapshots every guest in the cluster.
func (s *Snapshotter) Create(ctx context.Context, ids []string, name string, opts SnapshotOptions) ([]result.OperationResult, error) {
	refs, err := s.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	params := map[string]any{}
	if opts.Description != "" {
		params["description"] = opts.Description
	}
	if opts.VMState {
		params["vmstate"] = 1
	}

	return s.run(ctx, refs, opSnapshot, opts.Batch, func(ref pve.ResourceRef) (string, error) {
		return s.repo.CreateSnapshot(ctx, ref, name, params)
	})
}

// Delete removes the named snapshot from every guest named by ids.
func (s *Snapshotter) Delete(ctx context.Context, ids []string, name string, opts BatchOptions) ([]result.OperationResult, error) {
	refs, err := s.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, refs, opSnapshotDelete, opts, func(ref pve.ResourceRef) (string, error) {
		return s.repo.DeleteSnapshot(ctx, ref, name)
	})
}

// Rollback resets every guest named by ids to the named snapshot.
func (s *Snapshotter) Rollback(ctx context.Context, ids []string, name string, opts BatchOptions) ([]result.OperationResult, error) {
	refs, err := s.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, refs, opSnapshotRollback, opts, func(ref pve.ResourceRef) (string, error) {
		return s.repo.RollbackSnapshot(ctx, ref, name)
	})
}

func (s *Snapshotter) resolve(ctx context.Context, ids []string) ([]pve.ResourceRef, error) {
	if len(ids) == 0 {
		return s.resolver.ResolveAll(ctx)
	}
	refs, err := s.resolver.ResolveMultiple(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("no resources matched %v", ids)
	}
	return refs, nil
}

func (s *Snapshotter) run(ctx context.Context, refs []pve.ResourceRef, op string, opts BatchOptions, issue func(pve.ResourceRef) (string, error)) ([]result.OperationResult, error) {
	if opts.ForceSync && opts.ForceAsync {
		return nil, fmt.Errorf("force-sync and force-async are mutually exclusive")
	}

	results := make([]result.OperationResult, 0, len(refs))
	for _, ref := range refs {
		res := s.runOne(ctx, ref, op, opts, issue)
		results = append(results, res)
		if opts.FailFast && res.Failed() {
			break
		}
	}
	return results, nil
}

func (s *Snapshotter) runOne(ctx context.Context, ref pve.ResourceRef, op string, opts BatchOptions, issue func(pve.ResourceRef) (string, error)) result.OperationResult {
	upid, err := issue(ref)
	if err != nil {
		return result.Failed(ref, op, err.Error())
	}
	return await(ctx, s.poller, ref, op, upid, opts.sync(true), opts.timeout(DefaultSnapshotTimeout))
}
