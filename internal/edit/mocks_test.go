package edit

import (
	"context"
	"fmt"

	"github.com/pwojcieszonek/pvectl/internal/configmap"
	"github.com/pwojcieszonek/pvectl/internal/pve"
)

// mockRepository is a mock implementation of the Repository interface.
type mockRepository struct {
	// Configurable behavior
	getFunc          func(ref pve.ResourceRef) (pve.ResourceRef, error)
	fetchConfigFunc  func(ref pve.ResourceRef) (configmap.ResourceConfig, error)
	updateConfigFunc func(ref pve.ResourceRef, params configmap.UpdateParams) error

	// Call tracking
	getCalls          []pve.ResourceRef
	fetchConfigCalls  []pve.ResourceRef
	updateConfigCalls []configmap.UpdateParams
}

func newMockRepository(cfg configmap.ResourceConfig) *mockRepository {
	m := &mockRepository{}
	m.getFunc = func(ref pve.ResourceRef) (pve.ResourceRef, error) {
		return ref, nil
	}
	m.fetchConfigFunc = func(ref pve.ResourceRef) (configmap.ResourceConfig, error) {
		return cfg.Clone(), nil
	}
	m.updateConfigFunc = func(ref pve.ResourceRef, params configmap.UpdateParams) error {
		return nil
	}
	return m
}

func (m *mockRepository) Get(_ context.Context, ref pve.ResourceRef) (pve.ResourceRef, error) {
	m.getCalls = append(m.getCalls, ref)
	return m.getFunc(ref)
}

func (m *mockRepository) FetchConfig(_ context.Context, ref pve.ResourceRef) (configmap.ResourceConfig, error) {
	m.fetchConfigCalls = append(m.fetchConfigCalls, ref)
	return m.fetchConfigFunc(ref)
}

func (m *mockRepository) UpdateConfig(_ context.Context, ref pve.ResourceRef, params configmap.UpdateParams) error {
	m.updateConfigCalls = append(m.updateConfigCalls, params)
	return m.updateConfigFunc(ref, params)
}

// mockVolumeRepository adds the resize call.
type mockVolumeRepository struct {
	mockRepository

	resizeFunc  func(ref pve.ResourceRef, disk, newSize string) error
	resizeCalls []string
}

func newMockVolumeRepository(cfg configmap.ResourceConfig) *mockVolumeRepository {
	m := &mockVolumeRepository{mockRepository: *newMockRepository(cfg)}
	m.resizeFunc = func(ref pve.ResourceRef, disk, newSize string) error {
		return nil
	}
	return m
}

func (m *mockVolumeRepository) Resize(_ context.Context, ref pve.ResourceRef, disk, newSize string) error {
	m.resizeCalls = append(m.resizeCalls, fmt.Sprintf("%s=%s", disk, newSize))
	return m.resizeFunc(ref, disk, newSize)
}

// fakeSession simulates an editor session without temp files or
// processes.
type fakeSession struct {
	// editFunc receives the rendered document and returns the edited
	// text plus the changed flag.
	editFunc func(initial string) (string, bool, error)

	editCalls []string
}

func (f *fakeSession) Edit(_ context.Context, initial string) (string, bool, error) {
	f.editCalls = append(f.editCalls, initial)
	if f.editFunc != nil {
		return f.editFunc(initial)
	}
	return "", false, nil
}
