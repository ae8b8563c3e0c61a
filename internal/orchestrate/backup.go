package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/pwojcieszonek/pvectl/internal/lifecycle"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

const opBackup = "backup"

// DefaultBackupTimeout bounds the sync wait for a backup task; backups
// belong to the long operation class.
const DefaultBackupTimeout = 30 * time.Minute

// BackupOptions configure backup creation.
type BackupOptions struct {
	// Storage is the target storage for the archive.
	Storage string
	// Mode is the vzdump consistency mode: snapshot, suspend or stop.
	Mode string
	// Compress selects the archive compression, e.g. "zstd".
	Compress string
	// Notes are attached to the archive when set.
	Notes string

	Batch BatchOptions
}

// Backuper creates backups across batches of resolved guests.
type Backuper struct {
	repo     BackupRepository
	poller   lifecycle.Poller
	resolver Resolver
}

// NewBackuper creates a backuper.
func NewBackuper(repo BackupRepository, poller lifecycle.Poller, resolver Resolver) *Backuper {
	return &Backuper{repo: repo, poller: poller, resolver: resolver}
}

// Create backs up every guest named by ids; an empty list backs up
// every guest in the cluster. The batch follows the dispatcher's
// sync/async/fail-fast rules.
func (b *Backuper) Create(ctx context.Context, ids []string, opts BackupOptions) ([]result.OperationResult, error) {
	if opts.Batch.ForceSync && opts.Batch.ForceAsync {
		return nil, fmt.Errorf("force-sync and force-async are mutually exclusive")
	}

	var refs []pve.ResourceRef
	var err error
	if len(ids) == 0 {
		refs, err = b.resolver.ResolveAll(ctx)
	} else {
		refs, err = b.resolver.ResolveMultiple(ctx, ids)
	}
	if err != nil {
		return nil, err
	}

	params := map[string]any{}
	if opts.Storage != "" {
		params["storage"] = opts.Storage
	}
	if opts.Mode != "" {
		params["mode"] = opts.Mode
	}
	if opts.Compress != "" {
		params["compress"] = opts.Compress
	}
	if opts.Notes != "" {
		params["notes-template"] = opts.Notes
	}

	results := make([]result.OperationResult, 0, len(refs))
	for _, ref := range refs {
		res := b.createOne(ctx, ref, params, opts.Batch)
		results = append(results, res)
		if opts.Batch.FailFast && res.Failed() {
			break
		}
	}
	return results, nil
}

func (b *Backuper) createOne(ctx context.Context, ref pve.ResourceRef, params map[string]any, opts BatchOptions) result.OperationResult {
	upid, err := b.repo.CreateBackup(ctx, ref, params)
	if err != nil {
		return result.Failed(ref, opBackup, err.Error())
	}
	return await(ctx, b.poller, ref, opBackup, upid, opts.sync(true), opts.timeout(DefaultBackupTimeout))
}
