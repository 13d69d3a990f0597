package authz

import (
	"context"
	"sync"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/audit"
	"github.com/gatehouse-io/gatehouse/internal/shared"
)

// mockStore is an in-memory Store with per-method error injection.
type mockStore struct {
	principals map[string]*Principal
	overrides  map[string]*RoleOverride
	policies   map[string][]ResourcePolicy
	perms      map[string]*Permission

	assignments map[string]RoleAssignment
	grants      map[string]PermissionGrant

	getPrincipalError error
	overrideError     error
	policiesError     error
	upsertError       error
}

func newMockStore() *mockStore {
	return &mockStore{
		principals:  make(map[string]*Principal),
		overrides:   make(map[string]*RoleOverride),
		policies:    make(map[string][]ResourcePolicy),
		perms:       make(map[string]*Permission),
		assignments: make(map[string]RoleAssignment),
		grants:      make(map[string]PermissionGrant),
	}
}

func (m *mockStore) addPrincipal(p Principal) {
	copied := p
	m.principals[p.ID] = &copied
}

func (m *mockStore) addOverride(o RoleOverride) {
	m.overrides[o.Role+"|"+o.Resource+"|"+string(o.Action)] = &o
}

func (m *mockStore) addPolicy(p ResourcePolicy) {
	m.policies[p.Resource] = append(m.policies[p.Resource], p)
}

func (m *mockStore) addPermission(p Permission) {
	m.perms[p.Name] = &p
}

func (m *mockStore) GetPrincipal(ctx context.Context, id string) (*Principal, error) {
	if m.getPrincipalError != nil {
		return nil, m.getPrincipalError
	}
	p, ok := m.principals[id]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockStore) GetRoleOverride(ctx context.Context, role, resource string, action Action) (*RoleOverride, error) {
	if m.overrideError != nil {
		return nil, m.overrideError
	}
	return m.overrides[role+"|"+resource+"|"+string(action)], nil
}

func (m *mockStore) FindResourcePolicies(ctx context.Context, resource, resourceID string) ([]ResourcePolicy, error) {
	if m.policiesError != nil {
		return nil, m.policiesError
	}
	var out []ResourcePolicy
	for _, p := range m.policies[resource] {
		if p.ResourceID == "" || p.ResourceID == resourceID {
			out = append(out, p)
		}
	}
	// Callers rely on descending priority, mirror the SQL ordering.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Priority > out[j-1].Priority; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (m *mockStore) GetPermission(ctx context.Context, name string) (*Permission, error) {
	p, ok := m.perms[name]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	var out []Permission
	for _, p := range m.perms {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockStore) UpsertRoleAssignment(ctx context.Context, principalID, role, assignedBy string, expiresAt *time.Time) error {
	if m.upsertError != nil {
		return m.upsertError
	}
	m.assignments[principalID+"|"+role] = RoleAssignment{
		PrincipalID: principalID,
		Role:        role,
		Active:      true,
		AssignedBy:  assignedBy,
		ExpiresAt:   expiresAt,
	}
	return nil
}

func (m *mockStore) DeactivateRoleAssignment(ctx context.Context, principalID, role string) error {
	key := principalID + "|" + role
	if a, ok := m.assignments[key]; ok {
		a.Active = false
		m.assignments[key] = a
	}
	return nil
}

func (m *mockStore) UpsertPermissionGrant(ctx context.Context, principalID, permissionID, grantedBy string, expiresAt *time.Time) error {
	if m.upsertError != nil {
		return m.upsertError
	}
	m.grants[principalID+"|"+permissionID] = PermissionGrant{
		PrincipalID:  principalID,
		PermissionID: permissionID,
		Granted:      true,
		GrantedBy:    grantedBy,
		ExpiresAt:    expiresAt,
	}
	return nil
}

func (m *mockStore) DeactivatePermissionGrant(ctx context.Context, principalID, permissionID string) error {
	key := principalID + "|" + permissionID
	if g, ok := m.grants[key]; ok {
		g.Granted = false
		m.grants[key] = g
	}
	return nil
}

var _ Store = (*mockStore)(nil)

// recordingSink captures emitted audit records for assertions.
type recordingSink struct {
	mu        sync.Mutex
	security  []audit.SecurityEvent
	mutations []audit.MutationRecord
}

func (r *recordingSink) Security(ctx context.Context, ev audit.SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.security = append(r.security, ev)
}

func (r *recordingSink) Mutation(ctx context.Context, rec audit.MutationRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutations = append(r.mutations, rec)
}

func (r *recordingSink) securityEvents() []audit.SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.SecurityEvent(nil), r.security...)
}

func (r *recordingSink) mutationRecords() []audit.MutationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.MutationRecord(nil), r.mutations...)
}

var _ audit.Emitter = (*recordingSink)(nil)
