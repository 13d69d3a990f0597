package authz

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/audit"
)

// Service exposes the management API: assigning and revoking roles and
// direct permission grants. Every mutation enforces the hierarchy rule and
// emits a mutation record; audit emission is best-effort and never blocks
// the mutation itself.
type Service struct {
	store   Store
	guard   *Guard
	catalog *Catalog
	sink    audit.Emitter
	logger  *slog.Logger
}

// NewService constructs the management service.
func NewService(store Store, guard *Guard, catalog *Catalog, sink audit.Emitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = audit.NopEmitter{}
	}
	return &Service{store: store, guard: guard, catalog: catalog, sink: sink, logger: logger}
}

// AssignRole creates or reactivates an additional role assignment for the
// target. The upsert is idempotent on (principal, role).
func (s *Service) AssignRole(ctx context.Context, actorID, targetID, role string, expiresAt *time.Time) error {
	role = strings.ToUpper(strings.TrimSpace(role))
	if _, ok := s.catalog.Profile(role); !ok {
		return ErrUnknownRole
	}
	if !s.guard.CanManage(ctx, actorID, targetID) {
		s.record(ctx, audit.ActionRoleAssigned, actorID, targetID, false, map[string]any{"role": role})
		return ErrManagementDenied
	}
	err := s.store.UpsertRoleAssignment(ctx, targetID, role, actorID, expiresAt)
	s.record(ctx, audit.ActionRoleAssigned, actorID, targetID, err == nil, map[string]any{"role": role})
	return err
}

// RevokeRole deactivates an assignment. The row is kept for audit history.
func (s *Service) RevokeRole(ctx context.Context, actorID, targetID, role string) error {
	role = strings.ToUpper(strings.TrimSpace(role))
	if !s.guard.CanManage(ctx, actorID, targetID) {
		s.record(ctx, audit.ActionRoleRevoked, actorID, targetID, false, map[string]any{"role": role})
		return ErrManagementDenied
	}
	err := s.store.DeactivateRoleAssignment(ctx, targetID, role)
	s.record(ctx, audit.ActionRoleRevoked, actorID, targetID, err == nil, map[string]any{"role": role})
	return err
}

// GrantPermission creates or reactivates a direct grant identified by the
// permission name. Idempotent on (principal, permission).
func (s *Service) GrantPermission(ctx context.Context, actorID, targetID, permission string, expiresAt *time.Time) error {
	perm, err := s.store.GetPermission(ctx, strings.ToLower(strings.TrimSpace(permission)))
	if err != nil {
		return err
	}
	if !s.guard.CanManage(ctx, actorID, targetID) {
		s.record(ctx, audit.ActionPermissionGranted, actorID, targetID, false, map[string]any{"permission": perm.Name})
		return ErrManagementDenied
	}
	err = s.store.UpsertPermissionGrant(ctx, targetID, perm.ID, actorID, expiresAt)
	s.record(ctx, audit.ActionPermissionGranted, actorID, targetID, err == nil, map[string]any{"permission": perm.Name})
	return err
}

// RevokePermission deactivates a direct grant.
func (s *Service) RevokePermission(ctx context.Context, actorID, targetID, permission string) error {
	perm, err := s.store.GetPermission(ctx, strings.ToLower(strings.TrimSpace(permission)))
	if err != nil {
		return err
	}
	if !s.guard.CanManage(ctx, actorID, targetID) {
		s.record(ctx, audit.ActionPermissionRevoked, actorID, targetID, false, map[string]any{"permission": perm.Name})
		return ErrManagementDenied
	}
	err = s.store.DeactivatePermissionGrant(ctx, targetID, perm.ID)
	s.record(ctx, audit.ActionPermissionRevoked, actorID, targetID, err == nil, map[string]any{"permission": perm.Name})
	return err
}

// ListPermissions returns the permission reference data.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

func (s *Service) record(ctx context.Context, action, actorID, targetID string, success bool, detail map[string]any) {
	s.sink.Mutation(ctx, audit.MutationRecord{
		Action:   action,
		ActorID:  actorID,
		TargetID: targetID,
		Success:  success,
		Detail:   detail,
		At:       time.Now(),
	})
}
