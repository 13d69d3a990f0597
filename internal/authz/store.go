package authz

import (
	"context"
	"time"
)

// Store is the persistence contract the engine consumes. Read paths return
// only currently active, non-expired grants and assignments; the filtering
// happens in the store's queries. Mutations are idempotent upserts keyed by
// the composite-unique constraints on (principal, role) and
// (principal, permission).
type Store interface {
	// GetPrincipal loads a principal with its effective grants and
	// assignments. Returns ErrPrincipalNotFound for unknown ids.
	GetPrincipal(ctx context.Context, id string) (*Principal, error)

	// GetRoleOverride returns the dynamic per-role record for the tuple,
	// or nil when no override exists.
	GetRoleOverride(ctx context.Context, role, resource string, action Action) (*RoleOverride, error)

	// FindResourcePolicies returns policies for the resource type and,
	// when resourceID is non-empty, the specific instance, ordered by
	// descending priority.
	FindResourcePolicies(ctx context.Context, resource, resourceID string) ([]ResourcePolicy, error)

	// GetPermission resolves a permission by its unique name.
	GetPermission(ctx context.Context, name string) (*Permission, error)

	// ListPermissions returns the permission reference data ordered by name.
	ListPermissions(ctx context.Context) ([]Permission, error)

	UpsertRoleAssignment(ctx context.Context, principalID, role, assignedBy string, expiresAt *time.Time) error
	DeactivateRoleAssignment(ctx context.Context, principalID, role string) error

	UpsertPermissionGrant(ctx context.Context, principalID, permissionID, grantedBy string, expiresAt *time.Time) error
	DeactivatePermissionGrant(ctx context.Context, principalID, permissionID string) error
}
