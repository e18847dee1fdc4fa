package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fleetdesk/fleetdesk/internal/audit"
	"github.com/fleetdesk/fleetdesk/internal/auth"
	"github.com/fleetdesk/fleetdesk/internal/directory"
	"github.com/fleetdesk/fleetdesk/internal/impersonation"
	"github.com/fleetdesk/fleetdesk/internal/observability"
	"github.com/fleetdesk/fleetdesk/internal/shared"
	"github.com/fleetdesk/fleetdesk/internal/tenants"
	"github.com/fleetdesk/fleetdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Directory      *directory.Service

	AuthHandler          *auth.Handler
	UsersHandler         *directory.Handler
	TenantsHandler       *tenants.Handler
	ImpersonationHandler *impersonation.Handler
	AuditHandler         *audit.Handler
	JobHandler           *jobs.Handler
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router with FleetDesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Directory:      params.Directory,
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
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.TenantsHandler != nil {
		r.Route("/tenants", params.TenantsHandler.MountRoutes)
	}
	if params.ImpersonationHandler != nil {
		r.Route("/impersonation", params.ImpersonationHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
