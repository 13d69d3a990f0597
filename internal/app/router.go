package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/gatehouse-io/gatehouse/internal/audit/http"
	"github.com/gatehouse-io/gatehouse/internal/auth"
	"github.com/gatehouse-io/gatehouse/internal/authz"
	"github.com/gatehouse-io/gatehouse/internal/events"
	"github.com/gatehouse-io/gatehouse/internal/observability"
	"github.com/gatehouse-io/gatehouse/internal/principals"
	"github.com/gatehouse-io/gatehouse/internal/shared"
	"github.com/gatehouse-io/gatehouse/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	AuthHandler       *auth.Handler
	AuthzHandler      *authz.Handler
	AuthzMiddleware   authz.Middleware
	PrincipalsHandler *principals.Handler
	EventsHandler     *events.Handler
	AuditHandler      *audithttp.Handler
	JobsHandler       *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Gatehouse defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/authz", params.AuthzHandler.MountRoutes)
	if params.PrincipalsHandler != nil {
		r.Route("/principals", params.PrincipalsHandler.MountRoutes)
	}
	if params.EventsHandler != nil {
		r.Route("/events", params.EventsHandler.MountRoutes)
		r.Route("/bookings", params.EventsHandler.MountBookingRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", func(gr chi.Router) {
			params.AuditHandler.MountRoutes(gr, params.AuthzMiddleware)
		})
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
