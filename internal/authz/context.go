package authz

import "context"

// PermissionContext records the decision attached to an allowed request
// for downstream consumers. Result is nil when the request was allowed by
// an ownership or custom-check bypass and the resolver never ran.
type PermissionContext struct {
	Resource   string
	Action     Action
	ResourceID string
	Result     *CheckResult
}

type permissionContextKey struct{}

// ContextWithPermission stores the permission context in ctx.
func ContextWithPermission(ctx context.Context, pc PermissionContext) context.Context {
	return context.WithValue(ctx, permissionContextKey{}, pc)
}

// PermissionFromContext extracts the permission context, if any.
func PermissionFromContext(ctx context.Context) (PermissionContext, bool) {
	pc, ok := ctx.Value(permissionContextKey{}).(PermissionContext)
	return pc, ok
}
