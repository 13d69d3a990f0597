package authz

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-io/gatehouse/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the engine. Read
// queries filter on active/non-expired rows at query time; mutations are
// idempotent upserts on the composite-unique keys.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetPrincipal loads the principal row with its effective direct grants
// and role assignments.
func (r *Repository) GetPrincipal(ctx context.Context, id string) (*Principal, error) {
	var p Principal
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, active, role
		FROM principals
		WHERE id = $1`, id).Scan(&p.ID, &p.Email, &p.Name, &p.Active, &p.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT pg.principal_id, pg.permission_id, p.resource, p.action, pg.granted, pg.granted_by, pg.expires_at
		FROM permission_grants pg
		JOIN permissions p ON p.id = pg.permission_id
		WHERE pg.principal_id = $1
		  AND pg.granted
		  AND (pg.expires_at IS NULL OR pg.expires_at > NOW())
		ORDER BY pg.created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var g PermissionGrant
		var action string
		if err := rows.Scan(&g.PrincipalID, &g.PermissionID, &g.Resource, &action, &g.Granted, &g.GrantedBy, &g.ExpiresAt); err != nil {
			return nil, err
		}
		g.Action = Action(action)
		p.Grants = append(p.Grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT principal_id, role, active, assigned_by, expires_at, created_at
		FROM role_assignments
		WHERE principal_id = $1
		  AND active
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a RoleAssignment
		if err := rows.Scan(&a.PrincipalID, &a.Role, &a.Active, &a.AssignedBy, &a.ExpiresAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		p.Assignments = append(p.Assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetRoleOverride returns the dynamic record for (role, resource, action),
// or nil when none exists.
func (r *Repository) GetRoleOverride(ctx context.Context, role, resource string, action Action) (*RoleOverride, error) {
	var o RoleOverride
	var act string
	err := r.pool.QueryRow(ctx, `
		SELECT role, resource, action, granted
		FROM role_overrides
		WHERE role = $1 AND resource = $2 AND action = $3
		  AND (expires_at IS NULL OR expires_at > NOW())`,
		role, resource, string(action)).Scan(&o.Role, &o.Resource, &act, &o.Granted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	o.Action = Action(act)
	return &o, nil
}

// FindResourcePolicies returns active policies for the resource type and,
// when resourceID is non-empty, the specific instance, ordered by
// descending priority.
func (r *Repository) FindResourcePolicies(ctx context.Context, resource, resourceID string) ([]ResourcePolicy, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, resource, COALESCE(resource_id, ''), effect, priority,
		       actions, roles, principals, window_start, window_end
		FROM resource_policies
		WHERE resource = $1
		  AND active
		  AND (resource_id IS NULL OR resource_id = $2)
		ORDER BY priority DESC, id`, resource, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []ResourcePolicy
	for rows.Next() {
		var p ResourcePolicy
		var effect string
		var actions []string
		var windowStart, windowEnd *time.Time
		if err := rows.Scan(&p.ID, &p.Resource, &p.ResourceID, &effect, &p.Priority,
			&actions, &p.Roles, &p.Principals, &windowStart, &windowEnd); err != nil {
			return nil, err
		}
		p.Effect = PolicyEffect(effect)
		for _, a := range actions {
			p.Actions = append(p.Actions, Action(a))
		}
		if windowStart != nil || windowEnd != nil {
			p.Window = &TimeWindow{Start: windowStart, End: windowEnd}
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// GetPermission resolves a permission by name.
func (r *Repository) GetPermission(ctx context.Context, name string) (*Permission, error) {
	var p Permission
	var action string
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, resource, action, description
		FROM permissions
		WHERE name = $1`, name).Scan(&p.ID, &p.Name, &p.Resource, &action, &p.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	p.Action = Action(action)
	return &p, nil
}

// ListPermissions returns the permission reference data ordered by name.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, resource, action, description
		FROM permissions
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		var action string
		if err := rows.Scan(&p.ID, &p.Name, &p.Resource, &action, &p.Description); err != nil {
			return nil, err
		}
		p.Action = Action(action)
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// UpsertRoleAssignment creates or reactivates the (principal, role)
// assignment.
func (r *Repository) UpsertRoleAssignment(ctx context.Context, principalID, role, assignedBy string, expiresAt *time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_assignments (principal_id, role, active, assigned_by, expires_at, created_at, updated_at)
		VALUES ($1, $2, TRUE, $3, $4, NOW(), NOW())
		ON CONFLICT (principal_id, role)
		DO UPDATE SET active = TRUE, assigned_by = $3, expires_at = $4, updated_at = NOW()`,
		principalID, role, assignedBy, expiresAt)
	return err
}

// DeactivateRoleAssignment flips the assignment inactive, keeping the row.
func (r *Repository) DeactivateRoleAssignment(ctx context.Context, principalID, role string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE role_assignments
		SET active = FALSE, updated_at = NOW()
		WHERE principal_id = $1 AND role = $2`, principalID, role)
	return err
}

// UpsertPermissionGrant creates or reactivates the (principal, permission)
// grant.
func (r *Repository) UpsertPermissionGrant(ctx context.Context, principalID, permissionID, grantedBy string, expiresAt *time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO permission_grants (principal_id, permission_id, granted, granted_by, expires_at, created_at, updated_at)
		VALUES ($1, $2, TRUE, $3, $4, NOW(), NOW())
		ON CONFLICT (principal_id, permission_id)
		DO UPDATE SET granted = TRUE, granted_by = $3, expires_at = $4, updated_at = NOW()`,
		principalID, permissionID, grantedBy, expiresAt)
	return err
}

// DeactivatePermissionGrant flips the grant off, keeping the row.
func (r *Repository) DeactivatePermissionGrant(ctx context.Context, principalID, permissionID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE permission_grants
		SET granted = FALSE, updated_at = NOW()
		WHERE principal_id = $1 AND permission_id = $2`, principalID, permissionID)
	return err
}

// DeactivateExpiredAssignments flips assignments whose expiry has passed.
// Rows are kept; expired records are already inert at read time, this only
// keeps the flags honest for reporting.
func (r *Repository) DeactivateExpiredAssignments(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE role_assignments
		SET active = FALSE, updated_at = NOW()
		WHERE active AND expires_at IS NOT NULL AND expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeactivateExpiredGrants flips grants whose expiry has passed.
func (r *Repository) DeactivateExpiredGrants(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE permission_grants
		SET granted = FALSE, updated_at = NOW()
		WHERE granted AND expires_at IS NOT NULL AND expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
