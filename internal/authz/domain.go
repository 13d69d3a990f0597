package authz

import (
	"errors"
	"time"
)

// Action enumerates the verbs a principal can perform on a resource.
type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionExecute Action = "execute"
	ActionApprove Action = "approve"
	ActionExport  Action = "export"
	ActionCancel  Action = "cancel"
)

// ErrPrincipalNotFound indicates the principal id does not resolve to a stored principal.
var ErrPrincipalNotFound = errors.New("authz: principal not found")

// ErrManagementDenied indicates the actor does not outrank the target.
var ErrManagementDenied = errors.New("authz: actor cannot manage target")

// ErrUnknownRole indicates a role tag missing from the catalog.
var ErrUnknownRole = errors.New("authz: unknown role")

// Principal is an authenticated actor subject to authorization decisions.
// Grants and Assignments hold only currently active, non-expired records
// when loaded through the store.
type Principal struct {
	ID          string
	Email       string
	Name        string
	Active      bool
	Role        string
	Assignments []RoleAssignment
	Grants      []PermissionGrant
}

// EffectiveAssignments returns the assignments that are active and not
// expired at the given instant, preserving assignment order.
func (p *Principal) EffectiveAssignments(now time.Time) []RoleAssignment {
	out := make([]RoleAssignment, 0, len(p.Assignments))
	for _, a := range p.Assignments {
		if !a.Active {
			continue
		}
		if a.ExpiresAt != nil && a.ExpiresAt.Before(now) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// EffectiveRoles returns the primary role followed by the roles of all
// effective assignments.
func (p *Principal) EffectiveRoles(now time.Time) []string {
	roles := []string{p.Role}
	for _, a := range p.EffectiveAssignments(now) {
		roles = append(roles, a.Role)
	}
	return roles
}

// EffectiveGrants returns the direct grants that are granted and not
// expired at the given instant.
func (p *Principal) EffectiveGrants(now time.Time) []PermissionGrant {
	out := make([]PermissionGrant, 0, len(p.Grants))
	for _, g := range p.Grants {
		if !g.Granted {
			continue
		}
		if g.ExpiresAt != nil && g.ExpiresAt.Before(now) {
			continue
		}
		out = append(out, g)
	}
	return out
}

// RoleAssignment is a time-boxed additional role held beyond the primary role.
// Unique per (principal, role); revocation flips Active, rows are never deleted.
type RoleAssignment struct {
	PrincipalID string
	Role        string
	Active      bool
	AssignedBy  string
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// PermissionGrant is a direct, principal-specific permission record.
// Resource and Action are denormalised from the referenced permission.
// Granted=false is equivalent to absence, never an explicit deny.
type PermissionGrant struct {
	PrincipalID  string
	PermissionID string
	Resource     string
	Action       Action
	Granted      bool
	GrantedBy    string
	ExpiresAt    *time.Time
}

// Permission is immutable reference data describing an atomic capability.
type Permission struct {
	ID          string
	Name        string
	Resource    string
	Action      Action
	Description string
}

// RoleProfile describes a role's rank and baseline capability set.
// Capabilities are "resource.action" strings; "*" grants everything.
type RoleProfile struct {
	Role         string
	Level        int
	Description  string
	Capabilities []string
}

// RoleOverride is a database-backed permission layered on top of the static
// catalog for a single (role, resource, action) tuple.
type RoleOverride struct {
	Role     string
	Resource string
	Action   Action
	Granted  bool
}

// PolicyEffect is the outcome a matching resource policy produces.
type PolicyEffect string

const (
	EffectAllow PolicyEffect = "ALLOW"
	EffectDeny  PolicyEffect = "DENY"
)

// TimeWindow restricts a policy to an interval. Nil bounds are open.
type TimeWindow struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t lies within the window.
func (w *TimeWindow) Contains(t time.Time) bool {
	if w == nil {
		return true
	}
	if w.Start != nil && t.Before(*w.Start) {
		return false
	}
	if w.End != nil && t.After(*w.End) {
		return false
	}
	return true
}

// ResourcePolicy is an instance- or type-scoped rule able to explicitly
// allow or deny. Empty filter slices match any value. ResourceID empty
// means the policy applies to the resource type in general.
type ResourcePolicy struct {
	ID         string
	Resource   string
	ResourceID string
	Effect     PolicyEffect
	Priority   int
	Actions    []Action
	Roles      []string
	Principals []string
	Window     *TimeWindow
}

// Matches reports whether the policy applies to the given request values.
// roles must contain the principal's primary role and active assignments.
func (p ResourcePolicy) Matches(action Action, principalID string, roles []string, now time.Time) bool {
	if len(p.Actions) > 0 && !containsAction(p.Actions, action) {
		return false
	}
	if len(p.Principals) > 0 && !containsString(p.Principals, principalID) {
		return false
	}
	if len(p.Roles) > 0 && !intersects(p.Roles, roles) {
		return false
	}
	return p.Window.Contains(now)
}

// Source tags which pipeline stage produced a decision.
type Source string

const (
	SourceInactive       Source = "inactive principal"
	SourceDirectGrant    Source = "direct grant"
	SourceWildcard       Source = "wildcard"
	SourceRoleCapability Source = "role capability"
	SourceRoleOverride   Source = "role override"
	SourcePolicy         Source = "resource policy"
	SourceNoMatch        Source = "no match"
	SourceError          Source = "resolution error"
)

// CheckRequest identifies a single authorization question.
type CheckRequest struct {
	PrincipalID string
	Resource    string
	Action      Action
	ResourceID  string
}

// CheckResult is the resolver's answer to a CheckRequest.
type CheckResult struct {
	Allowed bool
	Reason  string
	Source  Source
}

func containsAction(haystack []Action, needle Action) bool {
	for _, a := range haystack {
		if a == needle {
			return true
		}
	}
	return false
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}
