package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/fleetdesk/fleetdesk/internal/impersonation"
	"github.com/fleetdesk/fleetdesk/internal/platform/httpx"
	"github.com/fleetdesk/fleetdesk/internal/rbac"
)

const (
	exportRateLimit  = 10
	exportRateWindow = time.Minute
)

// Handler serves the audit log endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs the audit handler.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: mw}
}

// MountRoutes registers the audit endpoints. Exports are rate limited per
// user since they scan the whole log.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(rbac.PermAuditView))
	r.Get("/", h.timeline)
	r.Get("/summary", h.summary)
	r.Group(func(gr chi.Router) {
		gr.Use(httprate.Limit(exportRateLimit, exportRateWindow,
			httprate.WithKeyFuncs(exportRateKey),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit exceeded")
			}),
		))
		gr.Get("/export.csv", h.exportCSV)
	})
}

func exportRateKey(r *http.Request) (string, error) {
	if identity, ok := rbac.IdentityFromContext(r.Context()); ok {
		return "audit-export:" + strconv.FormatInt(identity.Real.ID, 10), nil
	}
	return httprate.KeyByIP(r)
}

type timelineEntry struct {
	ID              string                 `json:"id"`
	AdminID         int64                  `json:"admin_id"`
	AdminName       string                 `json:"admin_name"`
	TargetID        int64                  `json:"target_id"`
	TargetName      string                 `json:"target_name"`
	OriginIP        string                 `json:"origin_ip,omitempty"`
	StartedAt       time.Time              `json:"started_at"`
	EndedAt         *time.Time             `json:"ended_at,omitempty"`
	DurationMinutes int64                  `json:"duration_minutes"`
	Open            bool                   `json:"open"`
	Actions         []impersonation.Action `json:"actions"`
}

type timelineResponse struct {
	Records  []timelineEntry `json:"records"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Total    int             `json:"total"`
	HasNext  bool            `json:"has_next"`
}

func toTimelineEntry(rec impersonation.Record) timelineEntry {
	return timelineEntry{
		ID:              rec.ID.String(),
		AdminID:         rec.AdminID,
		AdminName:       rec.AdminName,
		TargetID:        rec.TargetID,
		TargetName:      rec.TargetName,
		OriginIP:        rec.OriginIP,
		StartedAt:       rec.StartedAt,
		EndedAt:         rec.EndedAt,
		DurationMinutes: rec.DurationMinutes,
		Open:            rec.Open(),
		Actions:         rec.Actions,
	}
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	entries := make([]timelineEntry, 0, len(result.Records))
	for _, rec := range result.Records {
		entries = append(entries, toTimelineEntry(rec))
	}
	httpx.JSON(w, http.StatusOK, timelineResponse{
		Records:  entries,
		Page:     result.Paging.Page,
		PageSize: result.Paging.PageSize,
		Total:    result.Paging.Total,
		HasNext:  result.Paging.HasNext,
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("load audit summary", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	open := make([]timelineEntry, 0, len(overview.OpenSessions))
	for _, rec := range overview.OpenSessions {
		open = append(open, toTimelineEntry(rec))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"open_sessions": open,
		"total_open":    overview.TotalOpen,
		"total_closed":  overview.TotalClosed,
	})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	data, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit log", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	filename := "impersonation-log-" + time.Now().UTC().Format("20060102-150405") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseFilters(r *http.Request) (Filters, error) {
	q := r.URL.Query()
	var filters Filters

	if raw := q.Get("admin_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Filters{}, errInvalidParam("admin_id")
		}
		filters.AdminID = id
	}
	if raw := q.Get("target_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Filters{}, errInvalidParam("target_id")
		}
		filters.TargetID = id
	}
	switch status := impersonation.Status(q.Get("status")); status {
	case impersonation.StatusAny, impersonation.StatusOpen, impersonation.StatusClosed:
		filters.Status = status
	default:
		return Filters{}, errInvalidParam("status")
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page <= 0 {
			return Filters{}, errInvalidParam("page")
		}
		filters.Page = page
	}
	if raw := q.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return Filters{}, errInvalidParam("page_size")
		}
		filters.PageSize = size
	}
	return filters, nil
}

type paramError string

func errInvalidParam(name string) error { return paramError(name) }

func (e paramError) Error() string { return "invalid query parameter: " + string(e) }
