package authz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse-io/gatehouse/internal/platform/httpx"
	"github.com/gatehouse-io/gatehouse/internal/shared"
)

// maxBodyPeek bounds how much of a request body the interceptor reads when
// extracting a resource id from the payload.
const maxBodyPeek = 1 << 20

// Middleware wires the authorization interceptor for HTTP handlers. Each
// guard is an ordered early-return pipeline: authentication, resource id
// extraction, ownership/custom bypasses, then resolution.
type Middleware struct {
	Resolver *Resolver
	Guard    *Guard
	Owners   *OwnerRegistry
	Logger   *slog.Logger
}

type requireOptions struct {
	pathParam  string
	bodyField  string
	allowOwner bool
	custom     func(*http.Request) bool
}

// Option configures a Require guard.
type Option func(*requireOptions)

// FromPath extracts the resource id from a chi route parameter.
func FromPath(param string) Option {
	return func(o *requireOptions) { o.pathParam = param }
}

// FromBody extracts the resource id from a top-level JSON body field.
func FromBody(field string) Option {
	return func(o *requireOptions) { o.bodyField = field }
}

// AllowOwner short-circuits to allow when the ownership predicate for the
// resource type confirms the principal owns the instance. The resolver is
// not consulted on that path.
func AllowOwner() Option {
	return func(o *requireOptions) { o.allowOwner = true }
}

// WithCustomCheck short-circuits to allow when fn returns true.
func WithCustomCheck(fn func(*http.Request) bool) Option {
	return func(o *requireOptions) { o.custom = fn }
}

// Require guards a route with a permission check for the given resource
// and action.
func (m Middleware) Require(resource string, action Action, opts ...Option) func(http.Handler) http.Handler {
	var options requireOptions
	for _, opt := range opts {
		opt(&options)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principalID, ok := m.principal(w, r)
			if !ok {
				return
			}

			resourceID, ok := m.resourceID(w, r, options)
			if !ok {
				return
			}

			if options.allowOwner && resourceID != "" {
				owned, err := m.Owners.IsOwner(r.Context(), principalID, resource, resourceID)
				if err != nil {
					// Fail-safe: an ownership error never grants; fall
					// through to the resolver instead.
					m.logger().Error("authz: ownership check failed",
						slog.String("resource", resource),
						slog.String("resource_id", resourceID),
						slog.Any("error", err))
				} else if owned {
					ctx := ContextWithPermission(r.Context(), PermissionContext{
						Resource:   resource,
						Action:     action,
						ResourceID: resourceID,
					})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			if options.custom != nil && options.custom(r) {
				ctx := ContextWithPermission(r.Context(), PermissionContext{
					Resource:   resource,
					Action:     action,
					ResourceID: resourceID,
				})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			result := m.Resolver.Check(r.Context(), CheckRequest{
				PrincipalID: principalID,
				Resource:    resource,
				Action:      action,
				ResourceID:  resourceID,
			})
			if !result.Allowed {
				m.logDenied(r, principalID, resource, action, resourceID, result.Reason)
				httpx.Problem(w, http.StatusForbidden, "Forbidden", result.Reason)
				return
			}

			ctx := ContextWithPermission(r.Context(), PermissionContext{
				Resource:   resource,
				Action:     action,
				ResourceID: resourceID,
				Result:     &result,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles allows the request when the principal's primary role or any
// effective assignment is in the set.
func (m Middleware) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[strings.ToUpper(strings.TrimSpace(role))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principalID, ok := m.principal(w, r)
			if !ok {
				return
			}
			held, err := m.Guard.ActiveRoles(r.Context(), principalID)
			if err != nil {
				m.logger().Error("authz: role lookup failed", slog.Any("error", err))
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "resolution error")
				return
			}
			for _, role := range held {
				if _, ok := allowed[role]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			reason := fmt.Sprintf("requires one of roles: %s", strings.Join(roles, ", "))
			m.logDenied(r, principalID, "roles", "", "", reason)
			httpx.Problem(w, http.StatusForbidden, "Forbidden", reason)
		})
	}
}

// RequireMinLevel allows the request when the principal's maximum role
// level reaches the threshold.
func (m Middleware) RequireMinLevel(level int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principalID, ok := m.principal(w, r)
			if !ok {
				return
			}
			if m.Guard.MaxLevel(r.Context(), principalID) < level {
				reason := fmt.Sprintf("requires role level %d or above", level)
				m.logDenied(r, principalID, "roles", "", "", reason)
				httpx.Problem(w, http.StatusForbidden, "Forbidden", reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnershipOrPermission checks ownership first and falls back to
// resolution when the principal does not own the instance.
func (m Middleware) RequireOwnershipOrPermission(resource string, action Action, pathParam string) func(http.Handler) http.Handler {
	return m.Require(resource, action, FromPath(pathParam), AllowOwner())
}

// RequireManagement allows the request only when the principal strictly
// outranks the target identified by the route parameter.
func (m Middleware) RequireManagement(targetParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principalID, ok := m.principal(w, r)
			if !ok {
				return
			}
			targetID := chi.URLParam(r, targetParam)
			if targetID == "" {
				httpx.Problem(w, http.StatusBadRequest, "Bad Request", "target principal id required")
				return
			}
			if !m.Guard.CanManage(r.Context(), principalID, targetID) {
				reason := "insufficient role level to manage target"
				m.logDenied(r, principalID, "principals", ActionUpdate, targetID, reason)
				httpx.Problem(w, http.StatusForbidden, "Forbidden", reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ConditionalRule pairs a request predicate with the permission enforced
// when the predicate matches.
type ConditionalRule struct {
	When     func(*http.Request) bool
	Resource string
	Action   Action
	Message  string
}

// Conditional evaluates the rules in order and enforces only the first
// whose predicate matches. Requests matching no rule pass through.
func (m Middleware) Conditional(rules ...ConditionalRule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principalID, ok := m.principal(w, r)
			if !ok {
				return
			}
			for _, rule := range rules {
				if rule.When == nil || !rule.When(r) {
					continue
				}
				result := m.Resolver.Check(r.Context(), CheckRequest{
					PrincipalID: principalID,
					Resource:    rule.Resource,
					Action:      rule.Action,
				})
				if !result.Allowed {
					message := rule.Message
					if message == "" {
						message = result.Reason
					}
					m.logDenied(r, principalID, rule.Resource, rule.Action, "", message)
					httpx.Problem(w, http.StatusForbidden, "Forbidden", message)
					return
				}
				ctx := ContextWithPermission(r.Context(), PermissionContext{
					Resource: rule.Resource,
					Action:   rule.Action,
					Result:   &result,
				})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// principal requires an authenticated principal, writing 401 otherwise.
func (m Middleware) principal(w http.ResponseWriter, r *http.Request) (string, bool) {
	principalID := shared.PrincipalFromContext(r.Context())
	if principalID == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return "", false
	}
	return principalID, true
}

// resourceID extracts the instance id from the configured source. A
// configured source that yields nothing is a bad request.
func (m Middleware) resourceID(w http.ResponseWriter, r *http.Request, options requireOptions) (string, bool) {
	if options.pathParam != "" {
		id := chi.URLParam(r, options.pathParam)
		if id == "" {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "resource id required")
			return "", false
		}
		return id, true
	}
	if options.bodyField != "" {
		id, err := peekBodyField(r, options.bodyField)
		if err != nil || id == "" {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "resource id required")
			return "", false
		}
		return id, true
	}
	return "", true
}

// peekBodyField reads a top-level string field from the JSON body and
// restores the body for the downstream handler.
func peekBodyField(r *http.Request, field string) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyPeek))
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", err
	}
	raw, ok := payload[field]
	if !ok {
		return "", nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", err
	}
	return value, nil
}

func (m Middleware) logDenied(r *http.Request, principalID, resource string, action Action, resourceID, reason string) {
	m.logger().Warn("UNAUTHORIZED_ACCESS",
		slog.String("principal", principalID),
		slog.String("resource", resource),
		slog.String("action", string(action)),
		slog.String("resource_id", resourceID),
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("user_agent", r.UserAgent()),
		slog.String("path", r.URL.Path))
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
