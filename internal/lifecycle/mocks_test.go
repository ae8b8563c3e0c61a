package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/pwojcieszonek/pvectl/internal/pve"
)

// mockInvoker is a mock implementation of the Invoker interface.
type mockInvoker struct {
	// Configurable behavior
	invokeFunc func(op Operation, ref pve.ResourceRef, params map[string]any) (string, error)

	// Call tracking
	invokeCalls []pve.ResourceRef
}

func newMockInvoker() *mockInvoker {
	m := &mockInvoker{}
	m.invokeFunc = func(op Operation, ref pve.ResourceRef, params map[string]any) (string, error) {
		return fmt.Sprintf("UPID:%s:0000%d:%s", ref.Node, ref.ID, op), nil
	}
	return m
}

func (m *mockInvoker) Invoke(_ context.Context, op Operation, ref pve.ResourceRef, params map[string]any) (string, error) {
	m.invokeCalls = append(m.invokeCalls, ref)
	return m.invokeFunc(op, ref, params)
}

// mockPoller is a mock implementation of the Poller interface.
type mockPoller struct {
	// Configurable behavior
	waitFunc func(node, upid string, timeout time.Duration) (*pve.Task, error)
	findFunc func(node, upid string) (*pve.Task, error)

	// Call tracking
	waitCalls []string
	findCalls []string
}

func newMockPoller() *mockPoller {
	m := &mockPoller{}
	m.waitFunc = func(node, upid string, timeout time.Duration) (*pve.Task, error) {
		return &pve.Task{UPID: upid, Node: node, Status: pve.TaskStopped, ExitStatus: pve.ExitOK}, nil
	}
	m.findFunc = func(node, upid string) (*pve.Task, error) {
		return &pve.Task{UPID: upid, Node: node, Status: pve.TaskRunning}, nil
	}
	return m
}

func (m *mockPoller) Wait(_ context.Context, node, upid string, timeout time.Duration) (*pve.Task, error) {
	m.waitCalls = append(m.waitCalls, upid)
	return m.waitFunc(node, upid, timeout)
}

func (m *mockPoller) Find(_ context.Context, node, upid string) (*pve.Task, error) {
	m.findCalls = append(m.findCalls, upid)
	return m.findFunc(node, upid)
}
