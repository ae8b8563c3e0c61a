package orchestrate

import (
	"context"
	"log"

	"github.com/pwojcieszonek/pvectl/internal/lifecycle"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

// MigrateOptions configure a batch migration.
type MigrateOptions struct {
	// Online migrates VMs without stopping them; for VMs this implies
	// moving local disks along.
	Online bool

	Batch BatchOptions
}

// Migrator moves guests between nodes through the lifecycle dispatcher.
type Migrator struct {
	dispatcher *lifecycle.Dispatcher
}

// NewMigrator creates a migrator over the given dispatcher.
func NewMigrator(dispatcher *lifecycle.Dispatcher) *Migrator {
	return &Migrator{dispatcher: dispatcher}
}

// Migrate moves the given guests to target. Guests already on the
// target node are skipped with a diagnostic and excluded from the
// results entirely; they are not reported as no-op successes.
func (m *Migrator) Migrate(ctx context.Context, refs []pve.ResourceRef, target string, opts MigrateOptions) ([]result.OperationResult, error) {
	var results []result.OperationResult

	for _, ref := range refs {
		if ref.Node == target {
			log.Printf("%s is already on node %s, skipping", ref, target)
			continue
		}

		params := map[string]any{"target": target}
		if opts.Online && ref.Kind == pve.KindVM {
			params["online"] = 1
			// Online VM migration has to carry local disks or it
			// cannot leave the node.
			params["with-local-disks"] = 1
		} else if opts.Online {
			params["online"] = 1
		}

		batch, err := m.dispatcher.Execute(ctx, lifecycle.OpMigrate, []pve.ResourceRef{ref}, lifecycle.Options{
			ForceSync:  opts.Batch.ForceSync,
			ForceAsync: opts.Batch.ForceAsync,
			Timeout:    opts.Batch.Timeout,
			Params:     params,
		})
		if err != nil {
			return results, err
		}

		results = append(results, batch...)
		if opts.Batch.FailFast && batch[len(batch)-1].Failed() {
			break
		}
	}

	return results, nil
}
