package events

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatehouse-io/gatehouse/internal/authz"
	"github.com/gatehouse-io/gatehouse/internal/platform/httpx"
	"github.com/gatehouse-io/gatehouse/internal/shared"
)

// Handler exposes event and booking endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	mw       authz.Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		mw:       mw,
		validate: validator.New(),
	}
}

// RegisterOwnership wires the ownership predicates for event resources.
// Organizers own their events; booking holders own their bookings.
func RegisterOwnership(owners *authz.OwnerRegistry, repo *Repository) {
	owners.Register("events", repo.IsOrganizer)
	owners.Register("bookings", repo.IsBookingHolder)
}

// MountRoutes registers event routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require("events", authz.ActionRead))
		r.Get("/", h.listEvents)
		r.Get("/{eventID}", h.getEvent)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require("events", authz.ActionCreate))
		r.Post("/", h.createEvent)
	})
	// Organizers may edit their own events without holding the platform
	// wide events.update capability.
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require("events", authz.ActionUpdate, authz.FromPath("eventID"), authz.AllowOwner()))
		r.Put("/{eventID}", h.updateEvent)
		r.Post("/{eventID}/publish", h.publishEvent)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require("events", authz.ActionCancel, authz.FromPath("eventID"), authz.AllowOwner()))
		r.Post("/{eventID}/cancel", h.cancelEvent)
	})
}

// MountBookingRoutes registers booking routes.
func (h *Handler) MountBookingRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require("bookings", authz.ActionRead))
		r.Get("/", h.listBookings)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require("bookings", authz.ActionCreate))
		r.Post("/", h.createBooking)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireOwnershipOrPermission("bookings", authz.ActionCancel, "bookingID"))
		r.Post("/{bookingID}/cancel", h.cancelBooking)
	})
}

type eventRequest struct {
	Title       string    `json:"title" validate:"required,min=3,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	Venue       string    `json:"venue" validate:"required,max=200"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Capacity    int       `json:"capacity" validate:"required,min=1"`
}

type bookingRequest struct {
	EventID string `json:"event_id" validate:"required"`
	Seats   int    `json:"seats" validate:"required,min=1,max=20"`
}

type eventView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OrganizerID string    `json:"organizer_id"`
	Venue       string    `json:"venue"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    int       `json:"capacity"`
	Status      string    `json:"status"`
}

type bookingView struct {
	ID          string `json:"id"`
	EventID     string `json:"event_id"`
	PrincipalID string `json:"principal_id"`
	Seats       int    `json:"seats"`
	Status      string `json:"status"`
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	rows, paging, err := h.service.ListEvents(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list events failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	views := make([]eventView, 0, len(rows))
	for _, ev := range rows {
		views = append(views, toEventView(ev))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"events": views,
		"pagination": map[string]int{
			"page":        paging.Page,
			"per_page":    paging.PerPage,
			"total":       paging.Total,
			"total_pages": paging.TotalPages,
		},
	})
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.service.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.respondError(w, err, "get event")
		return
	}
	httpx.JSON(w, http.StatusOK, toEventView(*ev))
}

func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !h.decode(w, r, &req) {
		return
	}
	organizerID := shared.PrincipalFromContext(r.Context())
	ev, err := h.service.CreateEvent(r.Context(), organizerID, toInput(req))
	if err != nil {
		h.respondError(w, err, "create event")
		return
	}
	httpx.JSON(w, http.StatusCreated, toEventView(*ev))
}

func (h *Handler) updateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !h.decode(w, r, &req) {
		return
	}
	ev, err := h.service.UpdateEvent(r.Context(), chi.URLParam(r, "eventID"), toInput(req))
	if err != nil {
		h.respondError(w, err, "update event")
		return
	}
	httpx.JSON(w, http.StatusOK, toEventView(*ev))
}

func (h *Handler) publishEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.service.PublishEvent(r.Context(), chi.URLParam(r, "eventID")); err != nil {
		h.respondError(w, err, "publish event")
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) cancelEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CancelEvent(r.Context(), chi.URLParam(r, "eventID")); err != nil {
		h.respondError(w, err, "cancel event")
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listBookings(w http.ResponseWriter, r *http.Request) {
	principalID := shared.PrincipalFromContext(r.Context())
	rows, err := h.service.ListBookings(r.Context(), principalID)
	if err != nil {
		h.respondError(w, err, "list bookings")
		return
	}
	views := make([]bookingView, 0, len(rows))
	for _, b := range rows {
		views = append(views, toBookingView(b))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bookings": views})
}

func (h *Handler) createBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if !h.decode(w, r, &req) {
		return
	}
	principalID := shared.PrincipalFromContext(r.Context())
	b, err := h.service.CreateBooking(r.Context(), principalID, req.EventID, req.Seats)
	if err != nil {
		h.respondError(w, err, "create booking")
		return
	}
	httpx.JSON(w, http.StatusCreated, toBookingView(*b))
}

func (h *Handler) cancelBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CancelBooking(r.Context(), chi.URLParam(r, "bookingID")); err != nil {
		h.respondError(w, err, "cancel booking")
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "resource not found")
	case errors.Is(err, ErrEventClosed), errors.Is(err, ErrSoldOut):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func toInput(req eventRequest) CreateEventInput {
	return CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Capacity:    req.Capacity,
	}
}

func toEventView(ev Event) eventView {
	return eventView{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		OrganizerID: ev.OrganizerID,
		Venue:       ev.Venue,
		StartsAt:    ev.StartsAt,
		EndsAt:      ev.EndsAt,
		Capacity:    ev.Capacity,
		Status:      ev.Status,
	}
}

func toBookingView(b Booking) bookingView {
	return bookingView{
		ID:          b.ID,
		EventID:     b.EventID,
		PrincipalID: b.PrincipalID,
		Seats:       b.Seats,
		Status:      b.Status,
	}
}
