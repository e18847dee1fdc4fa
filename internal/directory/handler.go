package directory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fleetdesk/fleetdesk/internal/platform/httpx"
	"github.com/fleetdesk/fleetdesk/internal/rbac"
	"github.com/fleetdesk/fleetdesk/internal/shared"
)

// Handler exposes directory endpoints to the console UI.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: mw}
}

// MountRoutes registers directory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireModule(rbac.ModuleUserManagement))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermTenantImpersonate))
		r.Get("/impersonable", h.listImpersonable)
	})
}

type userView struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	RoleLabel string `json:"role_label"`
	TenantID  *int64 `json:"tenant_id,omitempty"`
	Suspended bool   `json:"suspended"`
}

func toView(u User) userView {
	return userView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		RoleLabel: u.RoleLabel(),
		TenantID:  u.TenantID,
		Suspended: u.Suspended,
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	filter := Filter{}
	if raw := r.URL.Query().Get("tenant_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant_id must be numeric")
			return
		}
		filter.TenantID = &id
	}
	if role := r.URL.Query().Get("role"); role != "" {
		filter.Role = rbac.RoleID(role)
	}

	users, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, toView(u))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": views})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be numeric")
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "user not found")
			return
		}
		h.logger.Error("get user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(user))
}

func (h *Handler) listImpersonable(w http.ResponseWriter, r *http.Request) {
	identity, ok := rbac.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "authentication required")
		return
	}
	targets, err := h.service.ListImpersonationTargets(r.Context(), identity.Real)
	if err != nil {
		h.logger.Error("list impersonation targets", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]userView, 0, len(targets))
	for _, u := range targets {
		views = append(views, toView(u))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": views})
}
