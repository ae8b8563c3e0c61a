// Package lifecycle implements the batch dispatcher for state-changing
// guest operations: start, stop, shutdown, restart, suspend, resume and
// migrate, executed across one or many resources with configurable
// synchronous or asynchronous posture and failure policy.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

// Operation is a lifecycle operation kind.
type Operation string

const (
	OpStart    Operation = "start"
	OpStop     Operation = "stop"
	OpShutdown Operation = "shutdown"
	OpRestart  Operation = "restart"
	OpSuspend  Operation = "suspend"
	OpResume   Operation = "resume"
	OpMigrate  Operation = "migrate"
)

// Default timeouts by operation class: lifecycle transitions are quick,
// migrations move disks and memory.
const (
	DefaultTimeout        = 2 * time.Minute
	DefaultMigrateTimeout = 30 * time.Minute
)

// SyncByDefault reports the operation's default posture. Start-class
// operations wait for completion; the rest return a task handle
// immediately.
func (op Operation) SyncByDefault() bool {
	switch op {
	case OpStart, OpResume:
		return true
	default:
		return false
	}
}

// DefaultTimeoutFor returns the default sync-wait timeout for the
// operation.
func (op Operation) DefaultTimeoutFor() time.Duration {
	if op == OpMigrate {
		return DefaultMigrateTimeout
	}
	return DefaultTimeout
}

// allowed is the fixed operation allow-list per resource kind.
// Operations outside it are rejected before any resource is touched.
var allowed = map[pve.Kind]map[Operation]bool{
	pve.KindVM: {
		OpStart: true, OpStop: true, OpShutdown: true, OpRestart: true,
		OpSuspend: true, OpResume: true, OpMigrate: true,
	},
	pve.KindCT: {
		OpStart: true, OpStop: true, OpShutdown: true, OpRestart: true,
		OpSuspend: true, OpResume: true, OpMigrate: true,
	},
}

// Invoker issues a single lifecycle call against the control plane and
// returns the task handle of the server-side job.
type Invoker interface {
	Invoke(ctx context.Context, op Operation, ref pve.ResourceRef, params map[string]any) (string, error)
}

// Poller observes asynchronous tasks.
type Poller interface {
	// Wait blocks until the task reaches a terminal state or the
	// timeout elapses, in which case it returns an error. The task may
	// still be running server-side after a timeout.
	Wait(ctx context.Context, node, upid string, timeout time.Duration) (*pve.Task, error)
	// Find returns a non-blocking snapshot of the task.
	Find(ctx context.Context, node, upid string) (*pve.Task, error)
}

// Options control a single batch invocation.
type Options struct {
	// ForceSync and ForceAsync invert the operation's default posture.
	// They are mutually exclusive.
	ForceSync  bool
	ForceAsync bool
	// FailFast truncates the batch at the first failure; the result
	// list is then shorter than the input list.
	FailFast bool
	// Timeout overrides the operation's default sync-wait timeout.
	Timeout time.Duration
	// Params are extra call parameters passed to every invocation,
	// e.g. the migration target.
	Params map[string]any
}

func (o Options) sync(op Operation) bool {
	if o.ForceSync {
		return true
	}
	if o.ForceAsync {
		return false
	}
	return op.SyncByDefault()
}

func (o Options) timeout(op Operation) time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return op.DefaultTimeoutFor()
}

// Dispatcher runs lifecycle operations across batches of resources,
// strictly sequentially and in input order.
type Dispatcher struct {
	invoker Invoker
	poller  Poller
}

// NewDispatcher creates a dispatcher over the given collaborators.
func NewDispatcher(invoker Invoker, poller Poller) *Dispatcher {
	return &Dispatcher{invoker: invoker, poller: poller}
}

// Execute runs op across resources. In continue-on-error mode (the
// default) every resource is attempted and the result list has exactly
// one entry per input. With FailFast the batch stops at the first
// failure, which is included in the results.
//
// Option conflicts and operations outside a resource kind's allow-list
// are caller errors, returned before any resource is touched.
func (d *Dispatcher) Execute(ctx context.Context, op Operation, resources []pve.ResourceRef, opts Options) ([]result.OperationResult, error) {
	if opts.ForceSync && opts.ForceAsync {
		return nil, fmt.Errorf("force-sync and force-async are mutually exclusive")
	}
	for _, ref := range resources {
		if !allowed[ref.Kind][op] {
			return nil, fmt.Errorf("operation %q is not supported for %s", op, ref)
		}
	}

	results := make([]result.OperationResult, 0, len(resources))
	for _, ref := range resources {
		res := d.dispatchOne(ctx, op, ref, opts)
		results = append(results, res)
		if opts.FailFast && res.Failed() {
			break
		}
	}
	return results, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, op Operation, ref pve.ResourceRef, opts Options) result.OperationResult {
	upid, err := d.invoker.Invoke(ctx, op, ref, opts.Params)
	if err != nil {
		return result.Failed(ref, string(op), err.Error())
	}

	if !opts.sync(op) {
		return result.Pending(ref, string(op), upid)
	}

	task, err := d.poller.Wait(ctx, ref.Node, upid, opts.timeout(op))
	if err != nil {
		return result.Failed(ref, string(op), err.Error())
	}
	if !task.OK() {
		return result.Failed(ref, string(op), task.ExitStatus).WithTask(task)
	}
	return result.Successful(ref, string(op)).WithTask(task)
}
