package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/fleetdesk/fleetdesk/internal/app"
	"github.com/fleetdesk/fleetdesk/internal/audit"
	"github.com/fleetdesk/fleetdesk/internal/auth"
	"github.com/fleetdesk/fleetdesk/internal/directory"
	"github.com/fleetdesk/fleetdesk/internal/impersonation"
	"github.com/fleetdesk/fleetdesk/internal/observability"
	"github.com/fleetdesk/fleetdesk/internal/platform/db"
	"github.com/fleetdesk/fleetdesk/internal/rbac"
	"github.com/fleetdesk/fleetdesk/internal/shared"
	"github.com/fleetdesk/fleetdesk/internal/tenants"
	"github.com/fleetdesk/fleetdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()

	directoryRepo := directory.NewRepository(dbpool)
	directoryService := directory.NewService(directoryRepo)

	rbacMiddleware := rbac.Middleware{Logger: logger, Denials: metrics}

	impersonationStore := impersonation.NewPGStore(dbpool)
	metrics.RegisterOpenImpersonations(impersonation.OpenRecordCount(impersonationStore, logger))
	impersonationManager := impersonation.NewManager(impersonationStore, directoryService, logger, metrics)
	impersonationHandler := impersonation.NewHandler(logger, impersonationManager, rbacMiddleware)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, impersonationManager)

	usersHandler := directory.NewHandler(logger, directoryService, rbacMiddleware)

	tenantsRepo := tenants.NewRepository(dbpool)
	tenantsHandler := tenants.NewHandler(logger, tenants.NewService(tenantsRepo), rbacMiddleware)

	auditService := audit.NewService(impersonationStore)
	auditHandler := audit.NewHandler(logger, auditService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		CSRFManager:          csrfManager,
		Directory:            directoryService,
		AuthHandler:          authHandler,
		UsersHandler:         usersHandler,
		TenantsHandler:       tenantsHandler,
		ImpersonationHandler: impersonationHandler,
		AuditHandler:         auditHandler,
		JobHandler:           jobHandler,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
