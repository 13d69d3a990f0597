package authz

import (
	"context"
	"strings"
)

// OwnerFunc reports whether the principal owns the resource instance.
// Each owning feature module supplies its own predicate.
type OwnerFunc func(ctx context.Context, principalID, resourceID string) (bool, error)

// OwnerRegistry maps resource types to ownership predicates, keeping the
// engine resource-agnostic. Register all predicates during startup wiring;
// the registry is read-only once the server accepts traffic.
type OwnerRegistry struct {
	funcs map[string]OwnerFunc
}

// NewOwnerRegistry returns an empty registry.
func NewOwnerRegistry() *OwnerRegistry {
	return &OwnerRegistry{funcs: make(map[string]OwnerFunc)}
}

// Register binds a predicate to a resource type. Not safe for concurrent
// use with IsOwner; call before serving.
func (r *OwnerRegistry) Register(resource string, fn OwnerFunc) {
	if fn == nil {
		return
	}
	r.funcs[strings.ToLower(resource)] = fn
}

// IsOwner evaluates the predicate for the resource type. Resources without
// a registered predicate have no owners.
func (r *OwnerRegistry) IsOwner(ctx context.Context, principalID, resource, resourceID string) (bool, error) {
	if r == nil {
		return false, nil
	}
	fn, ok := r.funcs[strings.ToLower(resource)]
	if !ok {
		return false, nil
	}
	return fn(ctx, principalID, resourceID)
}
