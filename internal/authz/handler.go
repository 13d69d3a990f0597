package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatehouse-io/gatehouse/internal/platform/httpx"
	"github.com/gatehouse-io/gatehouse/internal/shared"
)

// Handler exposes the management API and a self-inspection endpoint.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	resolver  *Resolver
	catalog   *Catalog
	mw        Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, resolver *Resolver, catalog *Catalog, mw Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		resolver:  resolver,
		catalog:   catalog,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/check", h.selfCheck)
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require("permissions", ActionRead))
		r.Get("/permissions", h.listPermissions)
		r.Get("/roles", h.listRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require("roles", ActionUpdate))
		r.Post("/roles/assign", h.assignRole)
		r.Post("/roles/revoke", h.revokeRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require("permissions", ActionUpdate))
		r.Post("/permissions/grant", h.grantPermission)
		r.Post("/permissions/revoke", h.revokePermission)
	})
}

type checkResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
	Source  string `json:"source,omitempty"`
}

// selfCheck lets an authenticated principal ask what the engine would
// decide for it. Denials here are audited like any other denial.
func (h *Handler) selfCheck(w http.ResponseWriter, r *http.Request) {
	principalID := shared.PrincipalFromContext(r.Context())
	if principalID == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	resource := r.URL.Query().Get("resource")
	action := r.URL.Query().Get("action")
	if resource == "" || action == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "resource and action query parameters are required")
		return
	}
	result := h.resolver.Check(r.Context(), CheckRequest{
		PrincipalID: principalID,
		Resource:    resource,
		Action:      Action(action),
		ResourceID:  r.URL.Query().Get("resource_id"),
	})
	httpx.JSON(w, http.StatusOK, checkResponse{
		Allowed: result.Allowed,
		Reason:  result.Reason,
		Source:  string(result.Source),
	})
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	type permissionView struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Resource    string `json:"resource"`
		Action      string `json:"action"`
		Description string `json:"description,omitempty"`
	}
	views := make([]permissionView, 0, len(perms))
	for _, p := range perms {
		views = append(views, permissionView{
			ID:          p.ID,
			Name:        p.Name,
			Resource:    p.Resource,
			Action:      string(p.Action),
			Description: p.Description,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": views})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	type roleView struct {
		Role         string   `json:"role"`
		Level        int      `json:"level"`
		Description  string   `json:"description"`
		Capabilities []string `json:"capabilities"`
	}
	views := make([]roleView, 0)
	for _, role := range h.catalog.Roles() {
		profile, _ := h.catalog.Profile(role)
		views = append(views, roleView{
			Role:         profile.Role,
			Level:        profile.Level,
			Description:  profile.Description,
			Capabilities: profile.Capabilities,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": views})
}

type roleMutationRequest struct {
	TargetID  string     `json:"target_id" validate:"required"`
	Role      string     `json:"role" validate:"required"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var req roleMutationRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID := shared.PrincipalFromContext(r.Context())
	err := h.service.AssignRole(r.Context(), actorID, req.TargetID, req.Role, req.ExpiresAt)
	h.respondMutation(w, err)
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	var req roleMutationRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID := shared.PrincipalFromContext(r.Context())
	err := h.service.RevokeRole(r.Context(), actorID, req.TargetID, req.Role)
	h.respondMutation(w, err)
}

type grantMutationRequest struct {
	TargetID   string     `json:"target_id" validate:"required"`
	Permission string     `json:"permission" validate:"required"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func (h *Handler) grantPermission(w http.ResponseWriter, r *http.Request) {
	var req grantMutationRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID := shared.PrincipalFromContext(r.Context())
	err := h.service.GrantPermission(r.Context(), actorID, req.TargetID, req.Permission, req.ExpiresAt)
	h.respondMutation(w, err)
}

func (h *Handler) revokePermission(w http.ResponseWriter, r *http.Request) {
	var req grantMutationRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID := shared.PrincipalFromContext(r.Context())
	err := h.service.RevokePermission(r.Context(), actorID, req.TargetID, req.Permission)
	h.respondMutation(w, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondMutation(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
	case errors.Is(err, ErrManagementDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "actor does not outrank target")
	case errors.Is(err, ErrUnknownRole):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role")
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "permission not found")
	default:
		h.logger.Error("authorization mutation failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
