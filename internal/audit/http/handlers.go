package audithttp

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/audit"
	"github.com/gatehouse-io/gatehouse/internal/platform/httpx"
)

const maxDateRange = 90 * 24 * time.Hour

// Handler serves the audit timeline endpoints.
type Handler struct {
	logger  *slog.Logger
	service *audit.Service
	now     func() time.Time
}

// NewHandler builds an audit handler.
func NewHandler(logger *slog.Logger, service *audit.Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

func (h *Handler) handleSecurityTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseSecurityFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	result, err := h.service.SecurityTimeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load security timeline", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"events": result.Rows,
		"paging": pagingView(result.Paging),
	})
}

func (h *Handler) handleMutationTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseMutationFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	result, err := h.service.MutationTimeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load mutation timeline", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"mutations": result.Rows,
		"paging":    pagingView(result.Paging),
	})
}

func (h *Handler) handleSecurityExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseSecurityFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	rows, err := h.service.ExportSecurity(r.Context(), filters)
	if err != nil {
		h.logger.Error("export security events", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	data, err := writeSecurityCSV(rows)
	if err != nil {
		h.logger.Error("encode security export", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	filename := fmt.Sprintf("security-events-%s.csv", h.now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) parseSecurityFilters(r *http.Request) (audit.SecurityFilters, error) {
	q := r.URL.Query()
	from, to, err := h.parseRange(q.Get("from"), q.Get("to"))
	if err != nil {
		return audit.SecurityFilters{}, err
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	return audit.SecurityFilters{
		From:        from,
		To:          to,
		PrincipalID: strings.TrimSpace(q.Get("principal")),
		Resource:    strings.TrimSpace(q.Get("resource")),
		Type:        strings.TrimSpace(q.Get("type")),
		Page:        page,
		PageSize:    pageSize,
	}, nil
}

func (h *Handler) parseMutationFilters(r *http.Request) (audit.MutationFilters, error) {
	q := r.URL.Query()
	from, to, err := h.parseRange(q.Get("from"), q.Get("to"))
	if err != nil {
		return audit.MutationFilters{}, err
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	return audit.MutationFilters{
		From:     from,
		To:       to,
		ActorID:  strings.TrimSpace(q.Get("actor")),
		TargetID: strings.TrimSpace(q.Get("target")),
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// parseRange accepts RFC3339 timestamps or YYYY-MM-DD dates. An empty range
// defaults to the trailing seven days; ranges are capped at ninety days.
func (h *Handler) parseRange(fromRaw, toRaw string) (time.Time, time.Time, error) {
	to := h.now()
	if toRaw != "" {
		parsed, err := parseTimestamp(toRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %q", toRaw)
		}
		to = parsed
	}
	from := to.Add(-7 * 24 * time.Hour)
	if fromRaw != "" {
		parsed, err := parseTimestamp(fromRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %q", fromRaw)
		}
		from = parsed
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("from must precede to")
	}
	if to.Sub(from) > maxDateRange {
		from = to.Add(-maxDateRange)
	}
	return from, to, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}

func pagingView(p audit.PagingInfo) map[string]any {
	return map[string]any{
		"page":      p.Page,
		"page_size": p.PageSize,
		"total":     p.Total,
		"has_next":  p.HasNext,
	}
}
