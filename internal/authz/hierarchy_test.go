package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(store *mockStore) *Guard {
	g := NewGuard(store, DefaultCatalog(), testLogger())
	g.now = func() time.Time { return fixedNow }
	return g
}

func TestMaxLevelUsesHighestEffectiveRole(t *testing.T) {
	store := newMockStore()
	store.addPrincipal(Principal{
		ID:     "s-1",
		Active: true,
		Role:   RoleStaff,
		Assignments: []RoleAssignment{
			{PrincipalID: "s-1", Role: RoleOrganizer, Active: true},
		},
	})
	g := newTestGuard(store)

	assert.Equal(t, 60, g.MaxLevel(context.Background(), "s-1"))
}

func TestMaxLevelExpiredAssignmentExcluded(t *testing.T) {
	expired := fixedNow.Add(-time.Hour)
	store := newMockStore()
	store.addPrincipal(Principal{
		ID:     "s-1",
		Active: true,
		Role:   RoleStaff,
		Assignments: []RoleAssignment{
			{PrincipalID: "s-1", Role: RoleAdmin, Active: true, ExpiresAt: &expired},
		},
	})
	g := newTestGuard(store)

	assert.Equal(t, 40, g.MaxLevel(context.Background(), "s-1"))
}

func TestMaxLevelZeroForUnknownInactiveOrError(t *testing.T) {
	store := newMockStore()
	store.addPrincipal(Principal{ID: "dormant", Active: false, Role: RoleAdmin})
	g := newTestGuard(store)

	assert.Equal(t, 0, g.MaxLevel(context.Background(), "missing"))
	assert.Equal(t, 0, g.MaxLevel(context.Background(), "dormant"))

	store.getPrincipalError = errors.New("connection refused")
	assert.Equal(t, 0, g.MaxLevel(context.Background(), "s-1"))
}

func TestCanManageRequiresStrictlyHigherLevel(t *testing.T) {
	store := newMockStore()
	store.addPrincipal(Principal{ID: "admin", Active: true, Role: RoleAdmin})
	store.addPrincipal(Principal{ID: "admin2", Active: true, Role: RoleAdmin})
	store.addPrincipal(Principal{ID: "staff", Active: true, Role: RoleStaff})
	g := newTestGuard(store)

	ctx := context.Background()
	assert.True(t, g.CanManage(ctx, "admin", "staff"))
	assert.False(t, g.CanManage(ctx, "staff", "admin"))
	assert.False(t, g.CanManage(ctx, "admin", "admin2"), "equal levels never manage each other")
	assert.False(t, g.CanManage(ctx, "admin", "admin"), "self management is always refused")
}

func TestCanManageUnknownTargetAllowedForRankedActor(t *testing.T) {
	store := newMockStore()
	store.addPrincipal(Principal{ID: "admin", Active: true, Role: RoleAdmin})
	g := newTestGuard(store)

	// An unknown target has level 0, any ranked actor outranks it.
	assert.True(t, g.CanManage(context.Background(), "admin", "missing"))
	assert.False(t, g.CanManage(context.Background(), "missing", "admin"))
}

func TestActiveRoles(t *testing.T) {
	store := newMockStore()
	store.addPrincipal(Principal{
		ID:     "s-1",
		Active: true,
		Role:   RoleStaff,
		Assignments: []RoleAssignment{
			{PrincipalID: "s-1", Role: RoleOrganizer, Active: true},
			{PrincipalID: "s-1", Role: RoleAdmin, Active: false},
		},
	})
	store.addPrincipal(Principal{ID: "dormant", Active: false, Role: RoleStaff})
	g := newTestGuard(store)

	roles, err := g.ActiveRoles(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, []string{RoleStaff, RoleOrganizer}, roles)

	roles, err = g.ActiveRoles(context.Background(), "dormant")
	require.NoError(t, err)
	assert.Empty(t, roles)

	_, err = g.ActiveRoles(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPrincipalNotFound)
}
