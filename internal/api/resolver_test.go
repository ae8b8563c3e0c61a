package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/pwojcieszonek/pvectl/internal/pve"
)

const clusterResourcesBody = `{"data":[
	{"type":"qemu","vmid":100,"name":"web-01","node":"pve1","status":"running"},
	{"type":"qemu","vmid":101,"name":"db-01","node":"pve2","status":"stopped"},
	{"type":"lxc","vmid":200,"name":"proxy","node":"pve1","status":"running"},
	{"type":"lxc","vmid":201,"name":"proxy","node":"pve3","status":"running"},
	{"type":"node","node":"pve1"},
	{"type":"storage","storage":"local-lvm","node":"pve1"}
]}`

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api2/json/cluster/resources" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(clusterResourcesBody))
	}))
	return NewResolver(client)
}

func TestResolverResolveByID(t *testing.T) {
	resolver := newTestResolver(t)

	ref, err := resolver.Resolve(context.Background(), "200")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ref == nil {
		t.Fatalf("Resolve() = nil, want reference")
	}
	want := pve.ResourceRef{Kind: pve.KindCT, ID: 200, Node: "pve1", Name: "proxy"}
	if *ref != want {
		t.Errorf("Resolve() = %+v, want %+v", *ref, want)
	}
}

func TestResolverResolveByName(t *testing.T) {
	resolver := newTestResolver(t)

	ref, err := resolver.Resolve(context.Background(), "web-01")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ref == nil || ref.ID != 100 || ref.Kind != pve.KindVM {
		t.Errorf("Resolve() = %+v, want vm 100", ref)
	}
}

func TestResolverResolveUnknownReturnsNil(t *testing.T) {
	resolver := newTestResolver(t)

	ref, err := resolver.Resolve(context.Background(), "999")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ref != nil {
		t.Errorf("Resolve() = %+v, want nil for unknown id", ref)
	}
}

func TestResolverResolveAmbiguousName(t *testing.T) {
	resolver := newTestResolver(t)

	_, err := resolver.Resolve(context.Background(), "proxy")
	if err == nil {
		t.Fatalf("expected error for name matching two guests")
	}
	if !strings.Contains(err.Error(), "more than one") {
		t.Errorf("err = %v", err)
	}
}

func TestResolverResolveMultiple(t *testing.T) {
	resolver := newTestResolver(t)

	refs, err := resolver.ResolveMultiple(context.Background(), []string{"100", "db-01"})
	if err != nil {
		t.Fatalf("ResolveMultiple() error = %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2", len(refs))
	}
	if refs[0].ID != 100 || refs[1].ID != 101 {
		t.Errorf("refs = %+v, want ids 100 and 101 in order", refs)
	}
}

func TestResolverResolveMultipleUnknownFails(t *testing.T) {
	resolver := newTestResolver(t)

	_, err := resolver.ResolveMultiple(context.Background(), []string{"100", "ghost"})
	if !errors.Is(err, pve.ErrNotFound) {
		t.Errorf("err = %v, want pve.ErrNotFound", err)
	}
}

func TestResolverNodes(t *testing.T) {
	resolver := newTestResolver(t)

	refs, err := resolver.Nodes(context.Background())
	if err != nil {
		t.Fatalf("Nodes() error = %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("got %d nodes, want 1", len(refs))
	}
	if refs[0].Kind != pve.KindNode || refs[0].Node != "pve1" {
		t.Errorf("node = %+v", refs[0])
	}
}

func TestResolverResolveAllSkipsNonGuests(t *testing.T) {
	resolver := newTestResolver(t)

	refs, err := resolver.ResolveAll(context.Background())
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}
	if len(refs) != 4 {
		t.Fatalf("got %d refs, want 4 guests", len(refs))
	}
	for _, ref := range refs {
		if ref.Kind != pve.KindVM && ref.Kind != pve.KindCT {
			t.Errorf("unexpected kind %q in %+v", ref.Kind, ref)
		}
	}
}
