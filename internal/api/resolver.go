package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pwojcieszonek/pvectl/internal/pve"
)

// clusterResource is one row of the cluster resource index.
type clusterResource struct {
	Type string `json:"type"`
	VMID int    `json:"vmid"`
	Name string `json:"name"`
	Node string `json:"node"`
}

// Resolver maps bare identifiers, numeric or by name, to full resource
// references through the cluster resource index.
type Resolver struct {
	client *Client
}

// NewResolver creates a resolver.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

func (r *Resolver) guests(ctx context.Context) ([]clusterResource, error) {
	var rows []clusterResource
	if err := r.client.Get(ctx, "/cluster/resources", &rows); err != nil {
		return nil, fmt.Errorf("listing cluster resources: %w", err)
	}
	guests := rows[:0]
	for _, row := range rows {
		if row.Type == "qemu" || row.Type == "lxc" {
			guests = append(guests, row)
		}
	}
	return guests, nil
}

func refFromRow(row clusterResource) pve.ResourceRef {
	kind := pve.KindVM
	if row.Type == "lxc" {
		kind = pve.KindCT
	}
	return pve.ResourceRef{Kind: kind, ID: row.VMID, Node: row.Node, Name: row.Name}
}

// Resolve looks an identifier up by guest id or by name. It returns nil
// without error when nothing matches, and an error when a name matches
// more than one guest.
func (r *Resolver) Resolve(ctx context.Context, id string) (*pve.ResourceRef, error) {
	rows, err := r.guests(ctx)
	if err != nil {
		return nil, err
	}

	if vmid, convErr := strconv.Atoi(id); convErr == nil {
		for _, row := range rows {
			if row.VMID == vmid {
				ref := refFromRow(row)
				return &ref, nil
			}
		}
		return nil, nil
	}

	var found *pve.ResourceRef
	for _, row := range rows {
		if row.Name != id {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("name %q matches more than one guest", id)
		}
		ref := refFromRow(row)
		found = &ref
	}
	return found, nil
}

// ResolveMultiple resolves every identifier, erroring on the first one
// that does not name a guest.
func (r *Resolver) ResolveMultiple(ctx context.Context, ids []string) ([]pve.ResourceRef, error) {
	refs := make([]pve.ResourceRef, 0, len(ids))
	for _, id := range ids {
		ref, err := r.Resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		if ref == nil {
			return nil, fmt.Errorf("%q: %w", id, pve.ErrNotFound)
		}
		refs = append(refs, *ref)
	}
	return refs, nil
}

// Nodes returns every node in the cluster.
func (r *Resolver) Nodes(ctx context.Context) ([]pve.ResourceRef, error) {
	var rows []clusterResource
	if err := r.client.Get(ctx, "/cluster/resources", &rows); err != nil {
		return nil, fmt.Errorf("listing cluster resources: %w", err)
	}
	var refs []pve.ResourceRef
	for _, row := range rows {
		if row.Type == "node" {
			refs = append(refs, pve.ResourceRef{Kind: pve.KindNode, Node: row.Node, Name: row.Node})
		}
	}
	return refs, nil
}

// ResolveAll returns every guest in the cluster.
func (r *Resolver) ResolveAll(ctx context.Context) ([]pve.ResourceRef, error) {
	rows, err := r.guests(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]pve.ResourceRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, refFromRow(row))
	}
	return refs, nil
}
