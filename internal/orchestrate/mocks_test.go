package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/pwojcieszonek/pvectl/internal/configmap"
	"github.com/pwojcieszonek/pvectl/internal/lifecycle"
	"github.com/pwojcieszonek/pvectl/internal/pve"
)

// mockRepository is a mock implementation of the Repository interface.
type mockRepository struct {
	// Configurable behavior
	fetchConfigFunc  func(ref pve.ResourceRef) (configmap.ResourceConfig, error)
	updateConfigFunc func(ref pve.ResourceRef, params configmap.UpdateParams) error
	statusFunc       func(ref pve.ResourceRef) (string, error)
	cloneFunc        func(source pve.ResourceRef, params map[string]any) (string, error)
	createFunc       func(kind pve.Kind, node string, params map[string]any) (string, error)
	deleteFunc       func(ref pve.ResourceRef, params map[string]any) (string, error)
	startFunc        func(ref pve.ResourceRef) (string, error)
	stopFunc         func(ref pve.ResourceRef) (string, error)
	nextIDFunc       func() (int, error)

	// Call tracking
	cloneCalls        []map[string]any
	createCalls       []map[string]any
	deleteCalls       []map[string]any
	startCalls        []pve.ResourceRef
	stopCalls         []pve.ResourceRef
	updateConfigCalls []configmap.UpdateParams
	nextIDCalls       int
}

func newMockRepository() *mockRepository {
	m := &mockRepository{}
	m.fetchConfigFunc = func(ref pve.ResourceRef) (configmap.ResourceConfig, error) {
		return configmap.ResourceConfig{"template": 1}, nil
	}
	m.updateConfigFunc = func(ref pve.ResourceRef, params configmap.UpdateParams) error { return nil }
	m.statusFunc = func(ref pve.ResourceRef) (string, error) { return StatusStopped, nil }
	m.cloneFunc = func(source pve.ResourceRef, params map[string]any) (string, error) {
		return "UPID:pve1:0001:qmclone", nil
	}
	m.createFunc = func(kind pve.Kind, node string, params map[string]any) (string, error) {
		return "UPID:pve1:0002:qmcreate", nil
	}
	m.deleteFunc = func(ref pve.ResourceRef, params map[string]any) (string, error) {
		return "UPID:pve1:0003:qmdestroy", nil
	}
	m.startFunc = func(ref pve.ResourceRef) (string, error) { return "UPID:pve1:0004:qmstart", nil }
	m.stopFunc = func(ref pve.ResourceRef) (string, error) { return "UPID:pve1:0005:qmstop", nil }
	m.nextIDFunc = func() (int, error) { return 105, nil }
	return m
}

func (m *mockRepository) FetchConfig(_ context.Context, ref pve.ResourceRef) (configmap.ResourceConfig, error) {
	return m.fetchConfigFunc(ref)
}

func (m *mockRepository) UpdateConfig(_ context.Context, ref pve.ResourceRef, params configmap.UpdateParams) error {
	m.updateConfigCalls = append(m.updateConfigCalls, params)
	return m.updateConfigFunc(ref, params)
}

func (m *mockRepository) Status(_ context.Context, ref pve.ResourceRef) (string, error) {
	return m.statusFunc(ref)
}

func (m *mockRepository) Clone(_ context.Context, source pve.ResourceRef, params map[string]any) (string, error) {
	m.cloneCalls = append(m.cloneCalls, params)
	return m.cloneFunc(source, params)
}

func (m *mockRepository) Create(_ context.Context, kind pve.Kind, node string, params map[string]any) (string, error) {
	m.createCalls = append(m.createCalls, params)
	return m.createFunc(kind, node, params)
}

func (m *mockRepository) Delete(_ context.Context, ref pve.ResourceRef, params map[string]any) (string, error) {
	m.deleteCalls = append(m.deleteCalls, params)
	return m.deleteFunc(ref, params)
}

func (m *mockRepository) Start(_ context.Context, ref pve.ResourceRef) (string, error) {
	m.startCalls = append(m.startCalls, ref)
	return m.startFunc(ref)
}

func (m *mockRepository) Stop(_ context.Context, ref pve.ResourceRef) (string, error) {
	m.stopCalls = append(m.stopCalls, ref)
	return m.stopFunc(ref)
}

func (m *mockRepository) NextID(_ context.Context) (int, error) {
	m.nextIDCalls++
	return m.nextIDFunc()
}

// mockPoller is a mock implementation of the lifecycle.Poller
// interface.
type mockPoller struct {
	waitFunc func(node, upid string, timeout time.Duration) (*pve.Task, error)

	waitCalls []string
}

func newMockPoller() *mockPoller {
	m := &mockPoller{}
	m.waitFunc = func(node, upid string, timeout time.Duration) (*pve.Task, error) {
		return &pve.Task{UPID: upid, Node: node, Status: pve.TaskStopped, ExitStatus: pve.ExitOK}, nil
	}
	return m
}

func (m *mockPoller) Wait(_ context.Context, node, upid string, timeout time.Duration) (*pve.Task, error) {
	m.waitCalls = append(m.waitCalls, upid)
	return m.waitFunc(node, upid, timeout)
}

func (m *mockPoller) Find(_ context.Context, node, upid string) (*pve.Task, error) {
	return &pve.Task{UPID: upid, Node: node, Status: pve.TaskRunning}, nil
}

// mockSnapshotRepository is a mock implementation of the
// SnapshotRepository interface.
type mockSnapshotRepository struct {
	createFunc   func(ref pve.ResourceRef, name string, params map[string]any) (string, error)
	deleteFunc   func(ref pve.ResourceRef, name string) (string, error)
	rollbackFunc func(ref pve.ResourceRef, name string) (string, error)

	createCalls   []string
	deleteCalls   []string
	rollbackCalls []string
}

func newMockSnapshotRepository() *mockSnapshotRepository {
	m := &mockSnapshotRepository{}
	m.createFunc = func(ref pve.ResourceRef, name string, params map[string]any) (string, error) {
		return fmt.Sprintf("UPID:%s:000%d:snapshot", ref.Node, ref.ID), nil
	}
	m.deleteFunc = func(ref pve.ResourceRef, name string) (string, error) {
		return fmt.Sprintf("UPID:%s:000%d:delsnapshot", ref.Node, ref.ID), nil
	}
	m.rollbackFunc = func(ref pve.ResourceRef, name string) (string, error) {
		return fmt.Sprintf("UPID:%s:000%d:rollback", ref.Node, ref.ID), nil
	}
	return m
}

func (m *mockSnapshotRepository) CreateSnapshot(_ context.Context, ref pve.ResourceRef, name string, params map[string]any) (string, error) {
	m.createCalls = append(m.createCalls, fmt.Sprintf("%s:%s", ref, name))
	return m.createFunc(ref, name, params)
}

func (m *mockSnapshotRepository) DeleteSnapshot(_ context.Context, ref pve.ResourceRef, name string) (string, error) {
	m.deleteCalls = append(m.deleteCalls, fmt.Sprintf("%s:%s", ref, name))
	return m.deleteFunc(ref, name)
}

func (m *mockSnapshotRepository) RollbackSnapshot(_ context.Context, ref pve.ResourceRef, name string) (string, error) {
	m.rollbackCalls = append(m.rollbackCalls, fmt.Sprintf("%s:%s", ref, name))
	return m.rollbackFunc(ref, name)
}

// mockBackupRepository is a mock implementation of the BackupRepository
// interface.
type mockBackupRepository struct {
	createFunc func(ref pve.ResourceRef, params map[string]any) (string, error)

	createCalls []map[string]any
}

func newMockBackupRepository() *mockBackupRepository {
	m := &mockBackupRepository{}
	m.createFunc = func(ref pve.ResourceRef, params map[string]any) (string, error) {
		return fmt.Sprintf("UPID:%s:000%d:vzdump", ref.Node, ref.ID), nil
	}
	return m
}

func (m *mockBackupRepository) CreateBackup(_ context.Context, ref pve.ResourceRef, params map[string]any) (string, error) {
	m.createCalls = append(m.createCalls, params)
	return m.createFunc(ref, params)
}

// mockResolver is a mock implementation of the Resolver interface.
type mockResolver struct {
	all []pve.ResourceRef
}

func (m *mockResolver) Resolve(_ context.Context, id string) (*pve.ResourceRef, error) {
	for _, ref := range m.all {
		if fmt.Sprintf("%d", ref.ID) == id || ref.Name == id {
			r := ref
			return &r, nil
		}
	}
	return nil, nil
}

func (m *mockResolver) ResolveMultiple(ctx context.Context, ids []string) ([]pve.ResourceRef, error) {
	var refs []pve.ResourceRef
	for _, id := range ids {
		ref, err := m.Resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			refs = append(refs, *ref)
		}
	}
	return refs, nil
}

func (m *mockResolver) ResolveAll(_ context.Context) ([]pve.ResourceRef, error) {
	return m.all, nil
}

// mockInvoker is a mock implementation of the lifecycle.Invoker
// interface, for driving a real dispatcher in migrator tests.
type mockInvoker struct {
	invokeFunc func(op lifecycle.Operation, ref pve.ResourceRef, params map[string]any) (string, error)

	invokeCalls  []pve.ResourceRef
	invokeParams []map[string]any
}

func newMockInvoker() *mockInvoker {
	m := &mockInvoker{}
	m.invokeFunc = func(op lifecycle.Operation, ref pve.ResourceRef, params map[string]any) (string, error) {
		return fmt.Sprintf("UPID:%s:000%d:%s", ref.Node, ref.ID, op), nil
	}
	return m
}

func (m *mockInvoker) Invoke(_ context.Context, op lifecycle.Operation, ref pve.ResourceRef, params map[string]any) (string, error) {
	m.invokeCalls = append(m.invokeCalls, ref)
	m.invokeParams = append(m.invokeParams, params)
	return m.invokeFunc(op, ref, params)
}
