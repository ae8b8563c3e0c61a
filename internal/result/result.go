// Package result defines the uniform outcome representation every
// mutating service returns. Failures are values here, not errors: no
// exception crosses from a service into the dispatcher or presentation
// layer.
package result

import (
	"github.com/pwojcieszonek/pvectl/internal/configmap"
	"github.com/pwojcieszonek/pvectl/internal/pve"
)

// Status is the closed set of operation outcomes.
type Status string

const (
	// StatusSuccessful means the operation completed and succeeded.
	StatusSuccessful Status = "successful"
	// StatusFailed means the operation did not take effect.
	StatusFailed Status = "failed"
	// StatusPending means the operation was submitted asynchronously;
	// only the task handle is known.
	StatusPending Status = "pending"
	// StatusPartial means the primary mutating action succeeded but a
	// required follow-up failed. The primary effect is not rolled back.
	StatusPartial Status = "partial"
)

// OperationResult is one resource's outcome of one operation.
type OperationResult struct {
	Status    Status
	Resource  pve.ResourceRef
	Operation string

	// UPID is the task handle of the issued call, when one was issued.
	UPID string
	// Task is the polled terminal task; populated in synchronous mode,
	// always nil in asynchronous mode.
	Task *pve.Task
	// Diff is the applied (or dry-run) configuration delta, for edit
	// and set operations.
	Diff *configmap.Diff
	// Message carries the human-readable failure reason for failed and
	// partial results.
	Message string
}

// Successful builds a successful result.
func Successful(ref pve.ResourceRef, operation string) OperationResult {
	return OperationResult{Status: StatusSuccessful, Resource: ref, Operation: operation}
}

// Failed builds a failed result with a human-readable reason.
func Failed(ref pve.ResourceRef, operation, message string) OperationResult {
	return OperationResult{Status: StatusFailed, Resource: ref, Operation: operation, Message: message}
}

// Pending builds an asynchronous result carrying only the task handle.
func Pending(ref pve.ResourceRef, operation, upid string) OperationResult {
	return OperationResult{Status: StatusPending, Resource: ref, Operation: operation, UPID: upid}
}

// Partial builds a partial result: the primary action's task is
// recorded, the message explains the failed follow-up.
func Partial(ref pve.ResourceRef, operation, upid, message string) OperationResult {
	return OperationResult{Status: StatusPartial, Resource: ref, Operation: operation, UPID: upid, Message: message}
}

// WithTask attaches a polled task to the result.
func (r OperationResult) WithTask(task *pve.Task) OperationResult {
	r.Task = task
	if task != nil {
		r.UPID = task.UPID
	}
	return r
}

// WithDiff attaches a configuration delta to the result.
func (r OperationResult) WithDiff(d *configmap.Diff) OperationResult {
	r.Diff = d
	return r
}

// Failed reports whether the result is a failure. Partial results count:
// a required follow-up did not take effect.
func (r OperationResult) Failed() bool {
	return r.Status == StatusFailed || r.Status == StatusPartial
}
