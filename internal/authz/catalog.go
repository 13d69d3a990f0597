package authz

import (
	"fmt"
	"strings"
)

// Wildcard grants every capability when present in a role profile.
const Wildcard = "*"

// Built-in role tags.
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"
	RoleOrganizer  = "ORGANIZER"
	RoleStaff      = "STAFF"
	RoleClient     = "CLIENT"
)

// Catalog maps role tags to profiles. It is built once at startup and is
// read-only afterwards, safe for concurrent use without locks.
type Catalog struct {
	profiles map[string]RoleProfile
}

// NewCatalog validates the profiles and returns an immutable catalog.
// Duplicate roles, non-positive levels and malformed capabilities are
// configuration errors surfaced here, never during a live check.
func NewCatalog(profiles []RoleProfile) (*Catalog, error) {
	byRole := make(map[string]RoleProfile, len(profiles))
	for _, p := range profiles {
		role := strings.TrimSpace(p.Role)
		if role == "" {
			return nil, fmt.Errorf("authz: role tag required")
		}
		if _, ok := byRole[role]; ok {
			return nil, fmt.Errorf("authz: duplicate role %q", role)
		}
		if p.Level <= 0 {
			return nil, fmt.Errorf("authz: role %q requires a positive level", role)
		}
		caps := make([]string, 0, len(p.Capabilities))
		for _, c := range p.Capabilities {
			c = strings.ToLower(strings.TrimSpace(c))
			if c == "" {
				continue
			}
			if c != Wildcard && !strings.Contains(c, ".") {
				return nil, fmt.Errorf("authz: role %q capability %q is not resource.action", role, c)
			}
			caps = append(caps, c)
		}
		p.Role = role
		p.Capabilities = caps
		byRole[role] = p
	}
	return &Catalog{profiles: byRole}, nil
}

// DefaultCatalog returns the built-in role hierarchy.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog([]RoleProfile{
		{
			Role:         RoleSuperAdmin,
			Level:        100,
			Description:  "Unrestricted platform owner",
			Capabilities: []string{Wildcard},
		},
		{
			Role:        RoleAdmin,
			Level:       90,
			Description: "Platform administration",
			Capabilities: append(append([]string{}, PlatformScopes()...),
				EventScopes()...),
		},
		{
			Role:        RoleOrganizer,
			Level:       60,
			Description: "Event organiser",
			Capabilities: []string{
				PermEventsCreate,
				PermEventsRead,
				PermEventsUpdate,
				PermBookingsRead,
				PermBookingsApprove,
				PermVenuesRead,
				PermReportsRead,
				PermReportsExport,
			},
		},
		{
			Role:        RoleStaff,
			Level:       40,
			Description: "Operational staff",
			Capabilities: []string{
				PermEventsRead,
				PermBookingsRead,
				PermBookingsUpdate,
				PermVenuesRead,
			},
		},
		{
			Role:        RoleClient,
			Level:       20,
			Description: "End customer",
			Capabilities: []string{
				PermEventsRead,
				PermBookingsCreate,
				PermBookingsRead,
				PermBookingsCancel,
			},
		},
	})
	if err != nil {
		// The built-in table is validated by tests; reaching this is a bug.
		panic(err)
	}
	return catalog
}

// Profile looks up a role profile.
func (c *Catalog) Profile(role string) (RoleProfile, bool) {
	p, ok := c.profiles[role]
	return p, ok
}

// Level returns the rank of a role, 0 for unknown roles.
func (c *Catalog) Level(role string) int {
	if p, ok := c.profiles[role]; ok {
		return p.Level
	}
	return 0
}

// HasWildcard reports whether the role profile contains "*".
func (c *Catalog) HasWildcard(role string) bool {
	p, ok := c.profiles[role]
	if !ok {
		return false
	}
	for _, cap := range p.Capabilities {
		if cap == Wildcard {
			return true
		}
	}
	return false
}

// Allows reports whether the role's static capability set covers the
// resource/action pair, either via the wildcard or an exact capability.
func (c *Catalog) Allows(role, resource string, action Action) bool {
	p, ok := c.profiles[role]
	if !ok {
		return false
	}
	want := CapabilityName(resource, action)
	for _, cap := range p.Capabilities {
		if cap == Wildcard || cap == want {
			return true
		}
	}
	return false
}

// Roles returns the known role tags.
func (c *Catalog) Roles() []string {
	roles := make([]string, 0, len(c.profiles))
	for role := range c.profiles {
		roles = append(roles, role)
	}
	return roles
}

// CapabilityName builds the canonical "resource.action" capability string.
func CapabilityName(resource string, action Action) string {
	return strings.ToLower(resource) + "." + strings.ToLower(string(action))
}
