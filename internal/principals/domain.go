package principals

import "time"

// Principal represents an account for management listings. Access-control
// detail (grants, assignments) lives in the authz engine; this view is the
// identity surface only.
type Principal struct {
	ID        string
	Email     string
	Name      string
	Role      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
