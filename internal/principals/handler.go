package principals

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse-io/gatehouse/internal/authz"
	"github.com/gatehouse-io/gatehouse/internal/platform/httpx"
	"github.com/gatehouse-io/gatehouse/internal/shared"
)

// Handler manages principal management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      authz.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers principal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require("principals", authz.ActionRead))
		r.Get("/", h.listPrincipals)
		r.Get("/{principalID}", h.getPrincipal)
	})
	// Deactivation is governed purely by the hierarchy rule: the actor
	// must strictly outrank the target.
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireManagement("principalID"))
		r.Post("/{principalID}/deactivate", h.deactivatePrincipal)
	})
}

type principalView struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

func (h *Handler) listPrincipals(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	rows, paging, err := h.service.ListPrincipals(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list principals failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	views := make([]principalView, 0, len(rows))
	for _, p := range rows {
		views = append(views, toView(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"principals": views,
		"pagination": map[string]int{
			"page":        paging.Page,
			"per_page":    paging.PerPage,
			"total":       paging.Total,
			"total_pages": paging.TotalPages,
		},
	})
}

func (h *Handler) getPrincipal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "principalID")
	principal, err := h.service.GetPrincipal(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "principal not found")
			return
		}
		h.logger.Error("get principal failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toView(*principal))
}

func (h *Handler) deactivatePrincipal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "principalID")
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "principal not found")
			return
		}
		h.logger.Error("deactivate principal failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.NoContent(w)
}

func toView(p Principal) principalView {
	return principalView{
		ID:     p.ID,
		Email:  p.Email,
		Name:   p.Name,
		Role:   p.Role,
		Active: p.Active,
	}
}
