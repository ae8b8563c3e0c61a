package edit

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pwojcieszonek/pvectl/internal/configmap"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

func volumeConfig() configmap.ResourceConfig {
	return configmap.ResourceConfig{
		"vmid":   100,
		"scsi0":  "local-lvm:vm-100-disk-0,size=32G,ssd=1",
		"digest": "feedbeef",
	}
}

func TestParseDeviceString(t *testing.T) {
	volumeID, opts := parseDeviceString("local-lvm:vm-100-disk-0,size=32G,ssd=1,backup")
	if volumeID != "local-lvm:vm-100-disk-0" {
		t.Errorf("volumeID = %q", volumeID)
	}
	if opts["size"] != "32G" || opts["ssd"] != "1" {
		t.Errorf("opts = %+v", opts)
	}
	// Bare flags parse as 1.
	if configmap.Canonical(opts["backup"]) != "1" {
		t.Errorf("bare flag backup = %v", opts["backup"])
	}
}

func TestBuildDeviceString_Deterministic(t *testing.T) {
	opts := configmap.ResourceConfig{"ssd": "1", "size": "32G", "iothread": 1}
	got := buildDeviceString("local-lvm:vm-100-disk-0", opts)
	want := "local-lvm:vm-100-disk-0,iothread=1,size=32G,ssd=1"
	if got != want {
		t.Errorf("buildDeviceString() = %q, want %q", got, want)
	}
}

func TestVolumeSet_ConfigOnlyChange(t *testing.T) {
	repo := newMockVolumeRepository(volumeConfig())
	s := NewVolumeService(repo, nil)

	res := s.Set(context.Background(), vmRef, "scsi0", map[string]any{"ssd": 0}, nil)
	if res == nil || res.Status != result.StatusSuccessful {
		t.Fatalf("expected successful result, got %+v", res)
	}

	if len(repo.resizeCalls) != 0 {
		t.Errorf("no resize expected, got %v", repo.resizeCalls)
	}
	if len(repo.updateConfigCalls) != 1 {
		t.Fatalf("expected 1 update call, got %d", len(repo.updateConfigCalls))
	}
	params := repo.updateConfigCalls[0]
	if params["scsi0"] != "local-lvm:vm-100-disk-0,size=32G,ssd=0" {
		t.Errorf("scsi0 param = %v", params["scsi0"])
	}
	if params["digest"] != "feedbeef" {
		t.Errorf("digest param = %v", params["digest"])
	}
}

func TestVolumeSet_SizeOnlyChange(t *testing.T) {
	repo := newMockVolumeRepository(volumeConfig())
	s := NewVolumeService(repo, nil)

	res := s.Set(context.Background(), vmRef, "scsi0", map[string]any{"size": "64G"}, nil)
	if res == nil || res.Status != result.StatusSuccessful {
		t.Fatalf("expected successful result, got %+v", res)
	}

	if len(repo.updateConfigCalls) != 0 {
		t.Errorf("no config update expected, got %v", repo.updateConfigCalls)
	}
	if len(repo.resizeCalls) != 1 || repo.resizeCalls[0] != "scsi0=64G" {
		t.Errorf("resize calls = %v, want [scsi0=64G]", repo.resizeCalls)
	}
}

func TestVolumeSet_MixedChange_BothAttempted(t *testing.T) {
	repo := newMockVolumeRepository(volumeConfig())
	repo.resizeFunc = func(ref pve.ResourceRef, disk, newSize string) error {
		return fmt.Errorf("resize rejected")
	}
	s := NewVolumeService(repo, nil)

	res := s.Set(context.Background(), vmRef, "scsi0",
		map[string]any{"size": "+32G", "ssd": 0}, nil)
	if res == nil || res.Status != result.StatusFailed {
		t.Fatalf("expected failed result, got %+v", res)
	}

	// The resize failure must not suppress the config update attempt.
	if len(repo.resizeCalls) != 1 {
		t.Errorf("resize calls = %v", repo.resizeCalls)
	}
	if len(repo.updateConfigCalls) != 1 {
		t.Errorf("update calls = %d, want 1", len(repo.updateConfigCalls))
	}
	if !strings.Contains(res.Message, "resize rejected") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestVolumeSet_MixedChange_ResizedSizeNotRestated(t *testing.T) {
	repo := newMockVolumeRepository(volumeConfig())
	s := NewVolumeService(repo, nil)

	res := s.Set(context.Background(), vmRef, "scsi0",
		map[string]any{"size": "64G", "ssd": 0}, nil)
	if res == nil || res.Status != result.StatusSuccessful {
		t.Fatalf("expected successful result, got %+v", res)
	}

	if len(repo.resizeCalls) != 1 || repo.resizeCalls[0] != "scsi0=64G" {
		t.Errorf("resize calls = %v, want [scsi0=64G]", repo.resizeCalls)
	}
	if len(repo.updateConfigCalls) != 1 {
		t.Fatalf("expected 1 update call, got %d", len(repo.updateConfigCalls))
	}
	// The resize call owns the size: the device string must not carry
	// the pre-resize value back into the config update.
	if got := repo.updateConfigCalls[0]["scsi0"]; got != "local-lvm:vm-100-disk-0,ssd=0" {
		t.Errorf("scsi0 param = %v", got)
	}
}

func TestVolumeSet_RelativeSizeResolved(t *testing.T) {
	repo := newMockVolumeRepository(volumeConfig())
	s := NewVolumeService(repo, nil)

	res := s.Set(context.Background(), vmRef, "scsi0", map[string]any{"size": "+1T"}, nil)
	if res == nil || res.Status != result.StatusSuccessful {
		t.Fatalf("expected successful result, got %+v", res)
	}
	if len(repo.resizeCalls) != 1 || repo.resizeCalls[0] != "scsi0=1056G" {
		t.Errorf("resize calls = %v, want [scsi0=1056G]", repo.resizeCalls)
	}
}

func TestVolumeSet_SizeTooSmall_NoCall(t *testing.T) {
	// An absolute size must strictly grow the volume. The equal case is
	// the treacherous one: it matches the current size, so it must not
	// slip through as a no-op.
	tests := []struct {
		name string
		size string
	}{
		{name: "equal to current", size: "32G"},
		{name: "smaller than current", size: "16G"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockVolumeRepository(volumeConfig())
			s := NewVolumeService(repo, nil)

			res := s.Set(context.Background(), vmRef, "scsi0", map[string]any{"size": tt.size}, nil)
			if res == nil || res.Status != result.StatusFailed {
				t.Fatalf("expected failed result, got %+v", res)
			}
			if !strings.Contains(res.Message, "not larger than current size") {
				t.Errorf("message = %q", res.Message)
			}
			if len(repo.resizeCalls) != 0 || len(repo.updateConfigCalls) != 0 {
				t.Error("pre-flight size failure must not reach the repository")
			}
		})
	}
}

func TestVolumeSet_UnknownDisk(t *testing.T) {
	repo := newMockVolumeRepository(volumeConfig())
	s := NewVolumeService(repo, nil)

	res := s.Set(context.Background(), vmRef, "scsi7", map[string]any{"ssd": 1}, nil)
	if res == nil || res.Status != result.StatusFailed {
		t.Fatalf("expected failed result, got %+v", res)
	}
	if !strings.Contains(res.Message, "scsi7") {
		t.Errorf("message should name the disk: %q", res.Message)
	}
}

func TestVolumeEdit_ChangeOption(t *testing.T) {
	repo := newMockVolumeRepository(volumeConfig())
	session := &fakeSession{editFunc: func(initial string) (string, bool, error) {
		return strings.Replace(initial, "ssd: \"1\"", "ssd: \"0\"", 1), true, nil
	}}
	s := NewVolumeService(repo, session)

	res := s.Edit(context.Background(), vmRef, "scsi0")
	if res == nil || res.Status != result.StatusSuccessful {
		t.Fatalf("expected successful result, got %+v", res)
	}
	if len(repo.updateConfigCalls) != 1 {
		t.Fatalf("expected 1 update call, got %d", len(repo.updateConfigCalls))
	}
	if got := repo.updateConfigCalls[0]["scsi0"]; got != "local-lvm:vm-100-disk-0,size=32G,ssd=0" {
		t.Errorf("scsi0 param = %v", got)
	}
}

func TestVolumeEdit_VolumeFieldReadOnly(t *testing.T) {
	repo := newMockVolumeRepository(volumeConfig())
	session := &fakeSession{editFunc: func(initial string) (string, bool, error) {
		return strings.Replace(initial, "local-lvm:vm-100-disk-0", "other:vm-100-disk-9", 1), true, nil
	}}
	s := NewVolumeService(repo, session)

	res := s.Edit(context.Background(), vmRef, "scsi0")
	if res == nil || res.Status != result.StatusFailed {
		t.Fatalf("expected failed result, got %+v", res)
	}
	if !strings.Contains(res.Message, "volume") {
		t.Errorf("message = %q", res.Message)
	}
	if len(repo.updateConfigCalls) != 0 {
		t.Error("read-only violation must not reach the repository")
	}
}

func TestVolumeEdit_Cancelled(t *testing.T) {
	repo := newMockVolumeRepository(volumeConfig())
	s := NewVolumeService(repo, &fakeSession{})

	res := s.Edit(context.Background(), vmRef, "scsi0")
	if res != nil {
		t.Errorf("expected nil for cancelled edit, got %+v", res)
	}
}

func TestVolumeSet_SizeRemovalRejected(t *testing.T) {
	repo := newMockVolumeRepository(volumeConfig())
	s := NewVolumeService(repo, nil)

	res := s.Set(context.Background(), vmRef, "scsi0", nil, []string{"size"})
	if res == nil || res.Status != result.StatusFailed {
		t.Fatalf("expected failed result, got %+v", res)
	}
	if len(repo.updateConfigCalls) != 0 {
		t.Error("size removal must fail pre-flight")
	}
}
