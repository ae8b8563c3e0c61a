package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/pwojcieszonek/pvectl/internal/configmap"
	"github.com/pwojcieszonek/pvectl/internal/lifecycle"
	"github.com/pwojcieszonek/pvectl/internal/naming"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

const opClone = "clone"

// DefaultCloneTimeout bounds the sync wait for a clone task; clones
// copy disks and belong to the long operation class.
const DefaultCloneTimeout = 30 * time.Minute

// CloneOptions configure a single clone.
type CloneOptions struct {
	// TargetID is the new guest's identifier; 0 selects the next
	// available id.
	TargetID int
	// Name is the new guest's name; empty derives it from the source.
	Name string
	// TargetNode places the clone; empty keeps the source's node.
	TargetNode string
	// Linked requests a copy-on-write clone, permitted only against a
	// template source.
	Linked bool
	// Overrides are configuration changes applied to the clone after
	// the clone task succeeds. A failed override application yields a
	// partial result and suppresses auto-start.
	Overrides map[string]any
	// Start boots the clone after a fully successful sequence.
	Start bool

	Batch BatchOptions
}

// Cloner runs the clone, reconfigure, start sequence.
type Cloner struct {
	repo   Repository
	poller lifecycle.Poller
}

// NewCloner creates a cloner.
func NewCloner(repo Repository, poller lifecycle.Poller) *Cloner {
	return &Cloner{repo: repo, poller: poller}
}

// Clone clones source into a new guest. All validation failures happen
// before any mutating call. The returned result is never nil: a clone
// is never a no-op.
func (c *Cloner) Clone(ctx context.Context, source pve.ResourceRef, opts CloneOptions) result.OperationResult {
	cfg, err := c.repo.FetchConfig(ctx, source)
	if err != nil {
		return result.Failed(source, opClone, err.Error())
	}

	if opts.Linked && configmap.Canonical(cfg["template"]) != "1" {
		return result.Failed(source, opClone,
			fmt.Sprintf("linked clone requires a template source, %s is not a template", source))
	}

	targetID := opts.TargetID
	if targetID == 0 {
		targetID, err = c.repo.NextID(ctx)
		if err != nil {
			return result.Failed(source, opClone, err.Error())
		}
	}

	name := opts.Name
	if name == "" {
		name = naming.CloneName(source)
	}

	node := opts.TargetNode
	if node == "" {
		node = source.Node
	}

	params := map[string]any{
		"newid": targetID,
		"name":  name,
	}
	if !opts.Linked {
		params["full"] = 1
	}
	if node != source.Node {
		params["target"] = node
	}

	upid, err := c.repo.Clone(ctx, source, params)
	if err != nil {
		return result.Failed(source, opClone, err.Error())
	}

	// The follow-up steps need a finished clone, so async posture only
	// applies to a bare clone.
	followUp := len(opts.Overrides) > 0 || opts.Start
	sync := opts.Batch.sync(true) || followUp

	res := await(ctx, c.poller, source, opClone, upid, sync, opts.Batch.timeout(DefaultCloneTimeout))
	if res.Status != result.StatusSuccessful {
		return res
	}

	target := pve.ResourceRef{Kind: source.Kind, ID: targetID, Node: node, Name: name}

	if len(opts.Overrides) > 0 {
		params := make(configmap.UpdateParams, len(opts.Overrides))
		for k, v := range opts.Overrides {
			params[k] = v
		}
		if err := c.repo.UpdateConfig(ctx, target, params); err != nil {
			// The clone itself stands; report partial and skip the
			// auto-start.
			return result.Partial(source, opClone, upid,
				fmt.Sprintf("clone succeeded but reconfiguration failed: %v", err)).WithTask(res.Task)
		}
	}

	if opts.Start {
		startUPID, err := c.repo.Start(ctx, target)
		if err != nil {
			return result.Partial(source, opClone, upid,
				fmt.Sprintf("clone succeeded but start failed: %v", err)).WithTask(res.Task)
		}
		startRes := await(ctx, c.poller, target, opClone, startUPID, true, lifecycle.DefaultTimeout)
		if startRes.Status != result.StatusSuccessful {
			return result.Partial(source, opClone, upid,
				fmt.Sprintf("clone succeeded but start failed: %s", startRes.Message)).WithTask(res.Task)
		}
	}

	return res
}
