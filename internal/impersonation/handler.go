package impersonation

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fleetdesk/fleetdesk/internal/platform/httpx"
	"github.com/fleetdesk/fleetdesk/internal/rbac"
	"github.com/fleetdesk/fleetdesk/internal/shared"
)

// Handler wires the impersonation lifecycle endpoints.
type Handler struct {
	logger    *slog.Logger
	manager   *Manager
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, manager *Manager, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, manager: manager, rbac: mw, validator: validator.New()}
}

// MountRoutes registers impersonation routes. Start is additionally gated on
// the impersonation permission; status and stop only need authentication so
// teardown keeps working for an admin whose effective role lost the
// permission mid-session.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/status", h.status)
	r.Post("/stop", h.stop)
	r.Post("/actions", h.recordAction)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermTenantImpersonate))
		r.Post("/start", h.start)
	})
}

type startRequest struct {
	TargetID int64 `json:"target_id" validate:"required,gt=0"`
}

type actionRequest struct {
	Description string `json:"description" validate:"required,max=500"`
}

type recordView struct {
	ID              string   `json:"id"`
	AdminID         int64    `json:"admin_id"`
	AdminName       string   `json:"admin_name"`
	TargetID        int64    `json:"target_id"`
	TargetName      string   `json:"target_name"`
	StartedAt       string   `json:"started_at"`
	EndedAt         *string  `json:"ended_at,omitempty"`
	DurationMinutes int64    `json:"duration_minutes"`
	Actions         []Action `json:"actions"`
	OriginIP        string   `json:"origin_ip,omitempty"`
}

func toRecordView(rec Record) recordView {
	view := recordView{
		ID:              rec.ID.String(),
		AdminID:         rec.AdminID,
		AdminName:       rec.AdminName,
		TargetID:        rec.TargetID,
		TargetName:      rec.TargetName,
		StartedAt:       rec.StartedAt.Format(time.RFC3339),
		DurationMinutes: rec.DurationMinutes,
		Actions:         rec.Actions,
		OriginIP:        rec.OriginIP,
	}
	if rec.EndedAt != nil {
		ended := rec.EndedAt.Format(time.RFC3339)
		view.EndedAt = &ended
	}
	return view
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	identity, ok := rbac.IdentityFromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	if !ok || sess == nil {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "authentication required")
		return
	}

	var req startRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "target_id is required")
		return
	}

	rec, err := h.manager.Start(r.Context(), sess, identity, req.TargetID, clientIP(r))
	if err != nil {
		h.respondStartError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRecordView(*rec))
}

func (h *Handler) respondStartError(w http.ResponseWriter, err error) {
	if denial, ok := AsDenial(err); ok {
		httpx.JSON(w, http.StatusForbidden, httpx.ProblemDetail{
			Type:   string(denial.Reason),
			Title:  "Impersonation Refused",
			Status: http.StatusForbidden,
			Detail: denial.Reason.Message(),
		})
		return
	}
	if errors.Is(err, shared.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "target user not found")
		return
	}
	h.logger.Error("start impersonation", slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func (h *Handler) stop(w http.ResponseWriter, r *http.Request) {
	identity, ok := rbac.IdentityFromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	if !ok || sess == nil {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "authentication required")
		return
	}

	rec, err := h.manager.Stop(r.Context(), sess, identity.Real.ID)
	if err != nil {
		h.logger.Error("stop impersonation", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if rec == nil {
		// Stopping while idle is a no-op, not an error.
		httpx.JSON(w, http.StatusOK, map[string]any{"impersonating": false})
		return
	}
	httpx.JSON(w, http.StatusOK, toRecordView(*rec))
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	identity, ok := rbac.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "authentication required")
		return
	}

	payload := map[string]any{
		"impersonating": identity.Impersonating,
		"admin": map[string]any{
			"id":   identity.Real.ID,
			"name": identity.Real.Name,
			"role": string(identity.Real.Role),
		},
	}
	if identity.Impersonating {
		payload["target"] = map[string]any{
			"id":   identity.Effective.ID,
			"name": identity.Effective.Name,
			"role": string(identity.Effective.Role),
		}
		if rec, err := h.manager.Current(r.Context(), identity.Real.ID); err == nil {
			view := toRecordView(*rec)
			payload["record"] = view
		}
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) recordAction(w http.ResponseWriter, r *http.Request) {
	identity, ok := rbac.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "authentication required")
		return
	}

	var req actionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "description is required")
		return
	}

	if err := h.manager.RecordAction(r.Context(), identity.Real.ID, req.Description); err != nil {
		if errors.Is(err, ErrNotImpersonating) {
			httpx.Problem(w, http.StatusConflict, "Not Impersonating", "no active impersonation session")
			return
		}
		h.logger.Error("record impersonation action", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"recorded": true})
}

func clientIP(r *http.Request) string {
	// chi's RealIP middleware rewrites RemoteAddr from X-Forwarded-For.
	return r.RemoteAddr
}
