package authz

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Guard enforces the hierarchical management rule: a principal may alter
// another's access only when it strictly outranks the target.
type Guard struct {
	store   Store
	catalog *Catalog
	logger  *slog.Logger
	now     func() time.Time
}

// NewGuard constructs a Guard.
func NewGuard(store Store, catalog *Catalog, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{store: store, catalog: catalog, logger: logger, now: time.Now}
}

// MaxLevel returns the greatest role level among the principal's primary
// role and its effective assignments. Unknown, inactive or unloadable
// principals yield 0.
func (g *Guard) MaxLevel(ctx context.Context, principalID string) int {
	principal, err := g.store.GetPrincipal(ctx, principalID)
	if err != nil {
		if !errors.Is(err, ErrPrincipalNotFound) {
			g.logger.Error("authz: max level lookup failed",
				slog.String("principal", principalID), slog.Any("error", err))
		}
		return 0
	}
	if !principal.Active {
		return 0
	}
	level := 0
	for _, role := range principal.EffectiveRoles(g.now()) {
		if l := g.catalog.Level(role); l > level {
			level = l
		}
	}
	return level
}

// CanManage reports whether actor strictly outranks target. Equal levels,
// including the same principal, can never manage each other.
func (g *Guard) CanManage(ctx context.Context, actorID, targetID string) bool {
	if actorID == targetID {
		return false
	}
	return g.MaxLevel(ctx, actorID) > g.MaxLevel(ctx, targetID)
}

// ActiveRoles returns the principal's primary role plus effective
// assignment roles. Used by role-set interceptor variants.
func (g *Guard) ActiveRoles(ctx context.Context, principalID string) ([]string, error) {
	principal, err := g.store.GetPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if !principal.Active {
		return nil, nil
	}
	return principal.EffectiveRoles(g.now()), nil
}
