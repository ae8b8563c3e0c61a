package lifecycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

func vmRefs(ids ...int) []pve.ResourceRef {
	refs := make([]pve.ResourceRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, pve.ResourceRef{Kind: pve.KindVM, ID: id, Node: "pve1"})
	}
	return refs
}

func TestExecute_SyncDefault_Start(t *testing.T) {
	invoker := newMockInvoker()
	poller := newMockPoller()
	d := NewDispatcher(invoker, poller)

	results, err := d.Execute(context.Background(), OpStart, vmRefs(100), Options{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.Status != result.StatusSuccessful {
		t.Errorf("status = %s, want successful (%s)", r.Status, r.Message)
	}
	// Sync mode: a successfully issued call always carries a polled task.
	if r.Task == nil {
		t.Error("expected populated Task in sync mode")
	}
	if len(poller.waitCalls) != 1 {
		t.Errorf("expected 1 Wait call, got %d", len(poller.waitCalls))
	}
}

func TestExecute_AsyncDefault_Shutdown(t *testing.T) {
	invoker := newMockInvoker()
	poller := newMockPoller()
	d := NewDispatcher(invoker, poller)

	results, err := d.Execute(context.Background(), OpShutdown, vmRefs(100), Options{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	r := results[0]
	if r.Status != result.StatusPending {
		t.Errorf("status = %s, want pending", r.Status)
	}
	// Async mode: handle set, task never populated, never polled.
	if r.UPID == "" {
		t.Error("expected UPID to be set")
	}
	if r.Task != nil {
		t.Error("expected Task to be unset in async mode")
	}
	if len(poller.waitCalls) != 0 {
		t.Errorf("expected no Wait calls, got %d", len(poller.waitCalls))
	}
}

func TestExecute_ForceOverrides(t *testing.T) {
	invoker := newMockInvoker()
	poller := newMockPoller()
	d := NewDispatcher(invoker, poller)

	// force-async inverts start's sync default
	results, err := d.Execute(context.Background(), OpStart, vmRefs(100), Options{ForceAsync: true})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if results[0].Status != result.StatusPending {
		t.Errorf("force-async: status = %s, want pending", results[0].Status)
	}

	// force-sync inverts shutdown's async default
	results, err = d.Execute(context.Background(), OpShutdown, vmRefs(100), Options{ForceSync: true})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if results[0].Status != result.StatusSuccessful {
		t.Errorf("force-sync: status = %s, want successful", results[0].Status)
	}
}

func TestExecute_ForceFlagsMutuallyExclusive(t *testing.T) {
	d := NewDispatcher(newMockInvoker(), newMockPoller())

	_, err := d.Execute(context.Background(), OpStart, vmRefs(100), Options{ForceSync: true, ForceAsync: true})
	if err == nil {
		t.Fatal("expected error for conflicting force flags")
	}
}

func TestExecute_DisallowedOperation(t *testing.T) {
	invoker := newMockInvoker()
	d := NewDispatcher(invoker, newMockPoller())

	refs := []pve.ResourceRef{{Kind: pve.KindNode, Node: "pve1"}}
	_, err := d.Execute(context.Background(), OpStart, refs, Options{})
	if err == nil {
		t.Fatal("expected error for disallowed operation")
	}
	// Rejected before any resource is touched.
	if len(invoker.invokeCalls) != 0 {
		t.Errorf("expected no Invoke calls, got %d", len(invoker.invokeCalls))
	}
}

func TestExecute_ContinueOnError_Cardinality(t *testing.T) {
	invoker := newMockInvoker()
	invoker.invokeFunc = func(op Operation, ref pve.ResourceRef, params map[string]any) (string, error) {
		if ref.ID == 101 {
			return "", fmt.Errorf("storage unavailable")
		}
		return fmt.Sprintf("UPID:%s:0000%d:%s", ref.Node, ref.ID, op), nil
	}
	d := NewDispatcher(invoker, newMockPoller())

	results, err := d.Execute(context.Background(), OpStart, vmRefs(100, 101, 102), Options{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// continue-on-error: exactly one result per input, in input order
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	wantStatus := []result.Status{result.StatusSuccessful, result.StatusFailed, result.StatusSuccessful}
	for i, want := range wantStatus {
		if results[i].Status != want {
			t.Errorf("results[%d].Status = %s, want %s", i, results[i].Status, want)
		}
	}
	if results[1].Message != "storage unavailable" {
		t.Errorf("failure message = %q", results[1].Message)
	}
}

func TestExecute_FailFast_Truncates(t *testing.T) {
	invoker := newMockInvoker()
	invoker.invokeFunc = func(op Operation, ref pve.ResourceRef, params map[string]any) (string, error) {
		if ref.ID == 101 {
			return "", fmt.Errorf("boom")
		}
		return "UPID:pve1:0001:start", nil
	}
	d := NewDispatcher(invoker, newMockPoller())

	results, err := d.Execute(context.Background(), OpStart, vmRefs(100, 101, 102), Options{FailFast: true})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// fail-fast: stops at (and includes) the first failure
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Status != result.StatusFailed {
		t.Errorf("last result = %s, want failed", results[1].Status)
	}
	if len(invoker.invokeCalls) != 2 {
		t.Errorf("expected 2 Invoke calls, got %d", len(invoker.invokeCalls))
	}
}

func TestExecute_SyncTaskFailure(t *testing.T) {
	poller := newMockPoller()
	poller.waitFunc = func(node, upid string, timeout time.Duration) (*pve.Task, error) {
		return &pve.Task{UPID: upid, Node: node, Status: pve.TaskStopped, ExitStatus: "can't lock file"}, nil
	}
	d := NewDispatcher(newMockInvoker(), poller)

	results, err := d.Execute(context.Background(), OpStart, vmRefs(100), Options{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	r := results[0]
	if r.Status != result.StatusFailed {
		t.Errorf("status = %s, want failed", r.Status)
	}
	if r.Message != "can't lock file" {
		t.Errorf("message = %q, want exitstatus text", r.Message)
	}
	if r.Task == nil {
		t.Error("terminal task should still be attached")
	}
}

func TestExecute_SyncTimeout(t *testing.T) {
	poller := newMockPoller()
	poller.waitFunc = func(node, upid string, timeout time.Duration) (*pve.Task, error) {
		return nil, fmt.Errorf("timed out after %s waiting for %s", timeout, upid)
	}
	d := NewDispatcher(newMockInvoker(), poller)

	results, err := d.Execute(context.Background(), OpStart, vmRefs(100), Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if results[0].Status != result.StatusFailed {
		t.Errorf("status = %s, want failed", results[0].Status)
	}
}

func TestOperationDefaults(t *testing.T) {
	if !OpStart.SyncByDefault() || !OpResume.SyncByDefault() {
		t.Error("start-class operations should wait by default")
	}
	for _, op := range []Operation{OpStop, OpShutdown, OpRestart, OpMigrate} {
		if op.SyncByDefault() {
			t.Errorf("%s should be async by default", op)
		}
	}
	if OpMigrate.DefaultTimeoutFor() != DefaultMigrateTimeout {
		t.Error("migrate should use the long timeout")
	}
	if OpStop.DefaultTimeoutFor() != DefaultTimeout {
		t.Error("stop should use the short timeout")
	}
}
