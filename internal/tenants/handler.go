package tenants

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fleetdesk/fleetdesk/internal/platform/httpx"
	"github.com/fleetdesk/fleetdesk/internal/rbac"
	"github.com/fleetdesk/fleetdesk/internal/shared"
)

// Handler serves tenant read endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs the tenants handler.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: mw}
}

// MountRoutes registers tenant routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireModule(rbac.ModuleTenants))
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
}

type tenantView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Plan      string `json:"plan"`
	Suspended bool   `json:"suspended"`
	CreatedAt string `json:"created_at"`
}

func toTenantView(t Tenant) tenantView {
	return tenantView{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		Plan:      t.Plan,
		Suspended: t.Suspended,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	f := Filter{
		Plan:       r.URL.Query().Get("plan"),
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}
	tenants, err := h.service.ListTenants(r.Context(), f)
	if err != nil {
		h.logger.Error("list tenants", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	views := make([]tenantView, 0, len(tenants))
	for _, t := range tenants {
		views = append(views, toTenantView(t))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tenants": views})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid tenant id")
		return
	}
	tenant, err := h.service.GetTenant(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "tenant not found")
			return
		}
		h.logger.Error("get tenant", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toTenantView(tenant))
}
