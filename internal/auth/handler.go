package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fleetdesk/fleetdesk/internal/impersonation"
	"github.com/fleetdesk/fleetdesk/internal/platform/httpx"
	"github.com/fleetdesk/fleetdesk/internal/rbac"
	"github.com/fleetdesk/fleetdesk/internal/shared"
)

// ImpersonationStopper tears down a live impersonation before the owning
// session goes away. Implemented by the impersonation manager.
type ImpersonationStopper interface {
	Stop(ctx context.Context, sess *shared.Session, adminID int64) (*impersonation.Record, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	impersonation  ImpersonationStopper
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, stopper ImpersonationStopper) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		impersonation:  stopper,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.handleCSRF)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

// handleCSRF hands the client the session's CSRF token. Clients send it back
// in the X-CSRF-Token header on every mutating request.
func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || h.csrfManager == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("ensure csrf token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type accountView struct {
	ID        int64    `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Role      string   `json:"role"`
	RoleLabel string   `json:"role_label"`
	Modules   []string `json:"modules"`
}

func toAccountView(subject rbac.Subject, email string) accountView {
	modules := rbac.AccessibleModules(subject)
	names := make([]string, 0, len(modules))
	for _, m := range modules {
		names = append(names, string(m))
	}
	return accountView{
		ID:        subject.ID,
		Email:     email,
		Name:      subject.Name,
		Role:      string(subject.Role),
		RoleLabel: rbac.RoleLabel(subject.Role),
		Modules:   names,
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and password are required")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	httpx.JSON(w, http.StatusOK, toAccountView(user.Subject(), user.Email))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		// End any live impersonation first so its audit record closes with
		// the session instead of waiting for the sweeper.
		if identity, ok := rbac.IdentityFromContext(r.Context()); ok && h.impersonation != nil {
			if _, err := h.impersonation.Stop(r.Context(), sess, identity.Real.ID); err != nil {
				h.logger.Warn("stop impersonation on logout", slog.Any("error", err))
			}
		}
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"logged_out": true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := rbac.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not signed in")
		return
	}
	payload := map[string]any{
		"user":          toAccountView(identity.Effective, ""),
		"impersonating": identity.Impersonating,
	}
	if identity.Impersonating {
		payload["real_user"] = toAccountView(identity.Real, "")
	}
	httpx.JSON(w, http.StatusOK, payload)
}

// LoginForTest exposes the login handler for tests.
func (h *Handler) LoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// LogoutForTest exposes the logout handler for tests.
func (h *Handler) LogoutForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogout(w, r)
}
