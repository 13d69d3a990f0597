package audithttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/gatehouse-io/gatehouse/internal/authz"
	"github.com/gatehouse-io/gatehouse/internal/shared"
)

const rateLimit = 10
const rateWindow = time.Minute

// MountRoutes registers the audit timeline and export endpoints. Reading
// timelines requires the audit.read capability; exports additionally require
// audit.export and are rate limited per principal.
func (h *Handler) MountRoutes(r chi.Router, mw authz.Middleware) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Group(func(gr chi.Router) {
		gr.Use(mw.Require("audit", authz.ActionRead))
		gr.Get("/security", h.handleSecurityTimeline)
		gr.Get("/mutations", h.handleMutationTimeline)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(mw.Require("audit", authz.ActionExport))
		gr.Use(limiter)
		gr.Get("/security/export.csv", h.handleSecurityExport)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if principal := strings.TrimSpace(shared.PrincipalFromContext(r.Context())); principal != "" {
		return "principal:" + principal, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
