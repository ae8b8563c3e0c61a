package orchestrate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pwojcieszonek/pvectl/internal/lifecycle"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

const opCreate = "create"

// DefaultCreateTimeout bounds the sync wait for a create task.
const DefaultCreateTimeout = 10 * time.Minute

// DiskSpec describes one guest disk to create.
type DiskSpec struct {
	// Storage is the backing storage identifier, e.g. "local-lvm".
	Storage string
	SizeGB  int
	// Options are extra device options folded into the entry, e.g.
	// ssd=1.
	Options map[string]string
}

// NetSpec describes one guest network interface.
type NetSpec struct {
	Model  string
	Bridge string
	// Options are extra interface options, e.g. tag=42.
	Options map[string]string
}

// MountSpec describes one container mount point.
type MountSpec struct {
	Storage string
	SizeGB  int
	Path    string
}

// CreateOptions configure a guest creation.
type CreateOptions struct {
	// ID is the new guest identifier; 0 selects the next available id.
	ID   int
	Node string
	Name string

	Disks  []DiskSpec
	Nets   []NetSpec
	Mounts []MountSpec

	// Extra parameters are passed through to the create call verbatim
	// (cores, memory, ostype, ...).
	Extra map[string]any

	// Start boots the guest after successful creation; it is withheld
	// when creation fails.
	Start bool

	Batch BatchOptions
}

// Creator creates guests.
type Creator struct {
	repo   Repository
	poller lifecycle.Poller
}

// NewCreator creates a creator.
func NewCreator(repo Repository, poller lifecycle.Poller) *Creator {
	return &Creator{repo: repo, poller: poller}
}

// Create creates one guest of the given kind. Structured disk, network
// and mount inputs map onto the control plane's indexed parameter
// naming (scsi0, net0, mp0, ...).
func (c *Creator) Create(ctx context.Context, kind pve.Kind, opts CreateOptions) result.OperationResult {
	id := opts.ID
	if id == 0 {
		var err error
		id, err = c.repo.NextID(ctx)
		if err != nil {
			return result.Failed(pve.ResourceRef{Kind: kind, Node: opts.Node}, opCreate, err.Error())
		}
	}
	ref := pve.ResourceRef{Kind: kind, ID: id, Node: opts.Node, Name: opts.Name}

	params := buildCreateParams(kind, id, opts)

	upid, err := c.repo.Create(ctx, kind, opts.Node, params)
	if err != nil {
		return result.Failed(ref, opCreate, err.Error())
	}

	sync := opts.Batch.sync(true) || opts.Start
	res := await(ctx, c.poller, ref, opCreate, upid, sync, opts.Batch.timeout(DefaultCreateTimeout))
	if res.Status != result.StatusSuccessful {
		return res
	}

	if opts.Start {
		startUPID, err := c.repo.Start(ctx, ref)
		if err != nil {
			return result.Partial(ref, opCreate, upid,
				fmt.Sprintf("created but start failed: %v", err)).WithTask(res.Task)
		}
		startRes := await(ctx, c.poller, ref, opCreate, startUPID, true, lifecycle.DefaultTimeout)
		if startRes.Status != result.StatusSuccessful {
			return result.Partial(ref, opCreate, upid,
				fmt.Sprintf("created but start failed: %s", startRes.Message)).WithTask(res.Task)
		}
	}

	return res
}

func buildCreateParams(kind pve.Kind, id int, opts CreateOptions) map[string]any {
	params := map[string]any{"vmid": id}
	if opts.Name != "" {
		if kind == pve.KindCT {
			params["hostname"] = opts.Name
		} else {
			params["name"] = opts.Name
		}
	}

	for i, disk := range opts.Disks {
		entry := fmt.Sprintf("%s:%d", disk.Storage, disk.SizeGB)
		for _, k := range sortedKeys(disk.Options) {
			entry += fmt.Sprintf(",%s=%s", k, disk.Options[k])
		}
		params[fmt.Sprintf("scsi%d", i)] = entry
	}

	for i, net := range opts.Nets {
		model := net.Model
		if model == "" {
			model = "virtio"
		}
		entry := fmt.Sprintf("%s,bridge=%s", model, net.Bridge)
		for _, k := range sortedKeys(net.Options) {
			entry += fmt.Sprintf(",%s=%s", k, net.Options[k])
		}
		params[fmt.Sprintf("net%d", i)] = entry
	}

	for i, mp := range opts.Mounts {
		params[fmt.Sprintf("mp%d", i)] =
			fmt.Sprintf("%s:%d,mp=%s", mp.Storage, mp.SizeGB, mp.Path)
	}

	for k, v := range opts.Extra {
		params[k] = v
	}
	return params
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
