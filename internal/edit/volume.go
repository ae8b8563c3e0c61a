package edit

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pwojcieszonek/pvectl/internal/configmap"
	"github.com/pwojcieszonek/pvectl/internal/document"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
	"github.com/pwojcieszonek/pvectl/internal/size"
)

// VolumeRepository extends the configuration repository with the
// dedicated resize call: a volume's size is not expressible as a plain
// key/value update.
type VolumeRepository interface {
	Repository
	// Resize grows a guest disk to the given absolute size.
	Resize(ctx context.Context, ref pve.ResourceRef, disk, newSize string) error
}

// volumeField is the synthetic field exposing the backing volume
// identifier in the editable document. It is read-only.
const volumeField = "volume"

// sizeField routes through the resize call instead of the device
// update.
const sizeField = "size"

// VolumeService edits guest volumes. A volume is identified by its
// owning guest plus the disk key of the device entry (scsi0, virtio1,
// rootfs, mp0, ...); its editable fields are the options encoded in
// that entry's structured configuration string.
type VolumeService struct {
	repo    VolumeRepository
	session sessionRunner

	DryRun bool
}

// sessionRunner is the slice of editor.Session the volume service
// needs.
type sessionRunner interface {
	Edit(ctx context.Context, initial string) (string, bool, error)
}

// NewVolumeService creates a volume service. The session may be nil
// when only Set is used.
func NewVolumeService(repo VolumeRepository, session sessionRunner) *VolumeService {
	return &VolumeService{repo: repo, session: session}
}

// Edit runs an interactive editor session over one disk's options.
func (s *VolumeService) Edit(ctx context.Context, ref pve.ResourceRef, disk string) *result.OperationResult {
	ref, original, volumeID, opts, res := s.fetch(ctx, ref, disk, opEdit)
	if res != nil {
		return res
	}

	projection := opts.Clone()
	projection[volumeField] = volumeID

	header := fmt.Sprintf("%s disk %s on node %s", ref, disk, ref.Node)
	text, err := document.Render(projection, header)
	if err != nil {
		return failedPtr(ref, opEdit, err.Error())
	}

	editedText, changed, err := s.session.Edit(ctx, text)
	if err != nil {
		return failedPtr(ref, opEdit, err.Error())
	}
	if !changed {
		return nil
	}

	edited, err := document.Parse(editedText)
	if err != nil {
		return failedPtr(ref, opEdit, err.Error())
	}

	diff := configmap.Compute(projection, edited)
	if diff.Empty() {
		return nil
	}
	if violations := diff.Violations([]string{volumeField}); len(violations) > 0 {
		return failedPtr(ref, opEdit,
			fmt.Sprintf("read-only fields cannot be changed: %s", strings.Join(violations, ", ")))
	}

	return s.apply(ctx, ref, disk, opEdit, diff, original, volumeID, opts)
}

// Set applies direct key/value changes and deletions to one disk's
// options.
func (s *VolumeService) Set(ctx context.Context, ref pve.ResourceRef, disk string, values map[string]any, deletions []string) *result.OperationResult {
	ref, original, volumeID, opts, res := s.fetch(ctx, ref, disk, opSet)
	if res != nil {
		return res
	}

	projection := opts.Clone()
	projection[volumeField] = volumeID

	edited := projection.Clone()
	for k, v := range values {
		edited[k] = v
	}
	for _, k := range deletions {
		delete(edited, k)
	}

	// A requested size is validated even when it matches the current
	// size and would otherwise fall out of the diff: an absolute size
	// must strictly grow the volume, so an equal request is an error,
	// not a no-op.
	if requested, ok := values[sizeField]; ok {
		if _, res := s.resolveSize(ref, opSet, requested, opts); res != nil {
			return res
		}
	}

	diff := configmap.Compute(projection, edited)
	if diff.Empty() {
		return nil
	}
	if violations := diff.Violations([]string{volumeField}); len(violations) > 0 {
		return failedPtr(ref, opSet,
			fmt.Sprintf("read-only fields cannot be changed: %s", strings.Join(violations, ", ")))
	}

	return s.apply(ctx, ref, disk, opSet, diff, original, volumeID, opts)
}

func (s *VolumeService) fetch(ctx context.Context, ref pve.ResourceRef, disk, op string) (pve.ResourceRef, configmap.ResourceConfig, string, configmap.ResourceConfig, *result.OperationResult) {
	ref, err := s.repo.Get(ctx, ref)
	if err != nil {
		return ref, nil, "", nil, failedPtr(ref, op, err.Error())
	}

	original, err := s.repo.FetchConfig(ctx, ref)
	if err != nil {
		return ref, nil, "", nil, failedPtr(ref, op, err.Error())
	}

	raw, ok := original[disk]
	if !ok || raw == nil {
		return ref, nil, "", nil, failedPtr(ref, op,
			fmt.Sprintf("volume %s: %v", disk, pve.ErrNotFound))
	}

	volumeID, opts := parseDeviceString(configmap.Canonical(raw))
	return ref, original, volumeID, opts, nil
}

// apply splits the diff: a size change goes through the resize call,
// everything else is folded back into the device's configuration string
// and sent through the normal update. Both are attempted in the same
// invocation; failures are aggregated into the one returned result.
func (s *VolumeService) apply(ctx context.Context, ref pve.ResourceRef, disk, op string, diff configmap.Diff, original configmap.ResourceConfig, volumeID string, opts configmap.ResourceConfig) *result.OperationResult {
	if containsField(diff.Removed, sizeField) {
		return failedPtr(ref, op, "size cannot be removed, only grown")
	}

	newSize, resize, res := s.sizeChange(ref, op, diff, opts)
	if res != nil {
		return res
	}

	newOpts := opts.Clone()
	configChange := false
	for k, ch := range diff.Changed {
		if k == sizeField {
			continue
		}
		newOpts[k] = ch.New
		configChange = true
	}
	for k, v := range diff.Added {
		if k == sizeField {
			continue
		}
		newOpts[k] = v
		configChange = true
	}
	for _, k := range diff.Removed {
		delete(newOpts, k)
		configChange = true
	}
	if resize {
		// The resize call owns the size; rebuilding the device string
		// with the pre-resize value would contradict it.
		delete(newOpts, sizeField)
	}

	if s.DryRun {
		r := result.Successful(ref, op).WithDiff(&diff)
		return &r
	}

	var failures []string
	if resize {
		if err := s.repo.Resize(ctx, ref, disk, newSize); err != nil {
			failures = append(failures, fmt.Sprintf("resize: %v", err))
		}
	}
	if configChange {
		params := configmap.UpdateParams{disk: buildDeviceString(volumeID, newOpts)}
		if digest := original.Digest(); digest != "" {
			params[configmap.DigestField] = digest
		}
		if err := s.repo.UpdateConfig(ctx, ref, params); err != nil {
			failures = append(failures, fmt.Sprintf("update: %v", err))
		}
	}

	if len(failures) > 0 {
		return failedPtr(ref, op, strings.Join(failures, "; "))
	}

	r := result.Successful(ref, op).WithDiff(&diff)
	return &r
}

// sizeChange extracts a requested size change from the diff and
// validates it pre-flight. Violations fail before any repository call.
func (s *VolumeService) sizeChange(ref pve.ResourceRef, op string, diff configmap.Diff, opts configmap.ResourceConfig) (string, bool, *result.OperationResult) {
	var requested any
	if ch, ok := diff.Changed[sizeField]; ok {
		requested = ch.New
	} else if v, ok := diff.Added[sizeField]; ok {
		requested = v
	} else {
		return "", false, nil
	}

	resolved, res := s.resolveSize(ref, op, requested, opts)
	if res != nil {
		return "", false, res
	}
	return resolved, true, nil
}

// resolveSize resolves a requested size token against the disk's current
// size. The new size must be strictly larger than the current one.
func (s *VolumeService) resolveSize(ref pve.ResourceRef, op string, requested any, opts configmap.ResourceConfig) (string, *result.OperationResult) {
	current := configmap.Canonical(opts[sizeField])
	if current == "" {
		// No recorded size to grow from; pass the token through as-is.
		token := configmap.Canonical(requested)
		if _, err := size.Parse(token); err != nil {
			return "", failedPtr(ref, op, err.Error())
		}
		return token, nil
	}

	resolved, err := size.Resolve(current, configmap.Canonical(requested))
	if err != nil {
		return "", failedPtr(ref, op, err.Error())
	}
	return resolved, nil
}

// parseDeviceString splits a device entry like
// "local-lvm:vm-100-disk-0,size=32G,ssd=1" into the backing volume
// identifier and its option map. Bare flags parse as key=1.
func parseDeviceString(raw string) (string, configmap.ResourceConfig) {
	opts := make(configmap.ResourceConfig)
	var volumeID string

	for i, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, found := strings.Cut(part, "=")
		if !found {
			if i == 0 {
				volumeID = part
				continue
			}
			opts[part] = 1
			continue
		}
		opts[k] = v
	}

	return volumeID, opts
}

// buildDeviceString is the inverse of parseDeviceString, with options
// sorted for a deterministic result.
func buildDeviceString(volumeID string, opts configmap.ResourceConfig) string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	if volumeID != "" {
		parts = append(parts, volumeID)
	}
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, configmap.Canonical(opts[k])))
	}
	return strings.Join(parts, ",")
}

func containsField(fields []string, want string) bool {
	for _, f := range fields {
		if f == want {
			return true
		}
	}
	return false
}
