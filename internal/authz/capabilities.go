package authz

// Canonical permission names grouped by resource.
const (
	PermEventsCreate = "events.create"
	PermEventsRead   = "events.read"
	PermEventsUpdate = "events.update"
	PermEventsDelete = "events.delete"
	PermEventsCancel = "events.cancel"

	PermBookingsCreate  = "bookings.create"
	PermBookingsRead    = "bookings.read"
	PermBookingsUpdate  = "bookings.update"
	PermBookingsApprove = "bookings.approve"
	PermBookingsCancel  = "bookings.cancel"

	PermVenuesRead   = "venues.read"
	PermVenuesUpdate = "venues.update"

	PermPrincipalsRead   = "principals.read"
	PermPrincipalsUpdate = "principals.update"

	PermRolesRead   = "roles.read"
	PermRolesUpdate = "roles.update"

	PermPermissionsRead   = "permissions.read"
	PermPermissionsUpdate = "permissions.update"

	PermAuditRead   = "audit.read"
	PermAuditExport = "audit.export"

	PermReportsRead   = "reports.read"
	PermReportsExport = "reports.export"
)

// PlatformScopes lists permissions covering platform administration.
func PlatformScopes() []string {
	return []string{
		PermPrincipalsRead,
		PermPrincipalsUpdate,
		PermRolesRead,
		PermRolesUpdate,
		PermPermissionsRead,
		PermPermissionsUpdate,
		PermAuditRead,
		PermAuditExport,
	}
}

// EventScopes lists permissions covering the events domain.
func EventScopes() []string {
	return []string{
		PermEventsCreate,
		PermEventsRead,
		PermEventsUpdate,
		PermEventsDelete,
		PermEventsCancel,
		PermBookingsCreate,
		PermBookingsRead,
		PermBookingsUpdate,
		PermBookingsApprove,
		PermBookingsCancel,
		PermVenuesRead,
		PermVenuesUpdate,
		PermReportsRead,
		PermReportsExport,
	}
}
