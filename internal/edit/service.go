// Package edit implements the declarative edit/set pipeline shared by
// every editable resource type: fetch the live configuration, obtain new
// values (interactively or from key/value parameters), diff, validate,
// and apply only the true delta under optimistic concurrency.
//
// The per-type differences (read-only fields, identity rendering, the
// repository binding) live in a small Descriptor rather than in
// per-type copies of the flow.
package edit

import (
	"context"
	"fmt"
	"strings"

	"github.com/pwojcieszonek/pvectl/internal/configmap"
	"github.com/pwojcieszonek/pvectl/internal/document"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

// Repository is the configuration repository for one resource type.
type Repository interface {
	// Get verifies the resource exists and returns its refreshed
	// reference. A missing resource yields pve.ErrNotFound.
	Get(ctx context.Context, ref pve.ResourceRef) (pve.ResourceRef, error)
	// FetchConfig returns the resource's live configuration, including
	// the concurrency token when the server mints one.
	FetchConfig(ctx context.Context, ref pve.ResourceRef) (configmap.ResourceConfig, error)
	// UpdateConfig applies update parameters to the resource.
	UpdateConfig(ctx context.Context, ref pve.ResourceRef, params configmap.UpdateParams) error
}

// Descriptor captures what varies between editable resource types.
type Descriptor struct {
	Kind pve.Kind
	// ReadOnly is the fixed denylist: fields excluded from the
	// editable document and rejected when an edit touches them.
	ReadOnly []string
	Repo     Repository
}

// VMDescriptor describes QEMU virtual machines.
func VMDescriptor(repo Repository) Descriptor {
	return Descriptor{
		Kind:     pve.KindVM,
		ReadOnly: []string{"vmid", "node", "template"},
		Repo:     repo,
	}
}

// CTDescriptor describes LXC containers.
func CTDescriptor(repo Repository) Descriptor {
	return Descriptor{
		Kind:     pve.KindCT,
		ReadOnly: []string{"vmid", "node", "template", "hostname-lock"},
		Repo:     repo,
	}
}

// NodeDescriptor describes cluster nodes.
func NodeDescriptor(repo Repository) Descriptor {
	return Descriptor{
		Kind:     pve.KindNode,
		ReadOnly: []string{"node"},
		Repo:     repo,
	}
}

// Service runs edit and set operations for one resource type.
//
// Both entry points return nil for a no-op (nothing changed, or the
// operator cancelled the editor) and never return an error: every
// failure is converted into a failed OperationResult at this boundary.
type Service struct {
	desc    Descriptor
	session sessionRunner

	// DryRun makes apply steps report the diff without calling the
	// repository.
	DryRun bool
}

// NewService creates a service for the described resource type. The
// session (usually an *editor.Session) may be nil when only Set is
// used.
func NewService(desc Descriptor, session sessionRunner) *Service {
	return &Service{desc: desc, session: session}
}

const opEdit = "edit"
const opSet = "set"

// Edit runs an interactive editor session over the resource's editable
// configuration and applies the resulting delta.
func (s *Service) Edit(ctx context.Context, ref pve.ResourceRef) *result.OperationResult {
	ref, original, res := s.fetch(ctx, ref, opEdit)
	if res != nil {
		return res
	}

	projection := original.Project(s.desc.ReadOnly)
	text, err := document.Render(projection, s.identityHeader(ref))
	if err != nil {
		return failedPtr(ref, opEdit, err.Error())
	}

	editedText, changed, err := s.session.Edit(ctx, text)
	if err != nil {
		return failedPtr(ref, opEdit, err.Error())
	}
	if !changed {
		// Cancelled in the editor: byte-identical text, nothing to
		// validate or apply.
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

	// All-or-nothing: one read-only field in the diff rejects the
	// whole apply, no update parameters are built.
	if violations := diff.Violations(append(s.desc.ReadOnly, configmap.DigestField)); len(violations) > 0 {
		return failedPtr(ref, opEdit,
			fmt.Sprintf("read-only fields cannot be changed: %s", strings.Join(violations, ", ")))
	}

	return s.apply(ctx, ref, opEdit, diff, original)
}

// Set applies direct key/value changes and deletions without an editor.
func (s *Service) Set(ctx context.Context, ref pve.ResourceRef, values map[string]any, deletions []string) *result.OperationResult {
	ref, original, res := s.fetch(ctx, ref, opSet)
	if res != nil {
		return res
	}

	projection := original.Project(s.desc.ReadOnly)
	edited := projection.Clone()
	for k, v := range values {
		edited[k] = v
	}
	for _, k := range deletions {
		delete(edited, k)
	}

	diff := configmap.Compute(projection, edited)
	if diff.Empty() {
		return nil
	}

	return s.apply(ctx, ref, opSet, diff, original)
}

func (s *Service) fetch(ctx context.Context, ref pve.ResourceRef, op string) (pve.ResourceRef, configmap.ResourceConfig, *result.OperationResult) {
	ref, err := s.desc.Repo.Get(ctx, ref)
	if err != nil {
		return ref, nil, failedPtr(ref, op, err.Error())
	}

	original, err := s.desc.Repo.FetchConfig(ctx, ref)
	if err != nil {
		return ref, nil, failedPtr(ref, op, err.Error())
	}
	return ref, original, nil
}

func (s *Service) apply(ctx context.Context, ref pve.ResourceRef, op string, diff configmap.Diff, original configmap.ResourceConfig) *result.OperationResult {
	params := configmap.BuildUpdateParams(diff, original)

	if s.DryRun {
		r := result.Successful(ref, op).WithDiff(&diff)
		return &r
	}

	if err := s.desc.Repo.UpdateConfig(ctx, ref, params); err != nil {
		return failedPtr(ref, op, err.Error())
	}

	r := result.Successful(ref, op).WithDiff(&diff)
	return &r
}

func (s *Service) identityHeader(ref pve.ResourceRef) string {
	if s.desc.Kind == pve.KindNode {
		return fmt.Sprintf("node %s", ref.Node)
	}
	return fmt.Sprintf("%s on node %s", ref, ref.Node)
}

func failedPtr(ref pve.ResourceRef, op, message string) *result.OperationResult {
	r := result.Failed(ref, op, message)
	return &r
}
