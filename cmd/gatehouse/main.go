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

	"github.com/gatehouse-io/gatehouse/internal/app"
	"github.com/gatehouse-io/gatehouse/internal/audit"
	audithttp "github.com/gatehouse-io/gatehouse/internal/audit/http"
	"github.com/gatehouse-io/gatehouse/internal/auth"
	"github.com/gatehouse-io/gatehouse/internal/authz"
	"github.com/gatehouse-io/gatehouse/internal/events"
	"github.com/gatehouse-io/gatehouse/internal/observability"
	"github.com/gatehouse-io/gatehouse/internal/platform/cache"
	"github.com/gatehouse-io/gatehouse/internal/platform/db"
	"github.com/gatehouse-io/gatehouse/internal/principals"
	"github.com/gatehouse-io/gatehouse/internal/shared"
	"github.com/gatehouse-io/gatehouse/jobs"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "gatehouse_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	auditSink := audit.NewAsynqEmitter(jobsClient.Asynq(), logger)

	metrics := observability.NewMetrics()

	catalog := authz.DefaultCatalog()
	authzRepo := authz.NewRepository(dbpool)
	resolver := authz.NewResolver(authzRepo, catalog, auditSink, logger).WithMetrics(metrics)
	guard := authz.NewGuard(authzRepo, catalog, logger)
	owners := authz.NewOwnerRegistry()
	authzMiddleware := authz.Middleware{
		Resolver: resolver,
		Guard:    guard,
		Owners:   owners,
		Logger:   logger,
	}
	authzService := authz.NewService(authzRepo, guard, catalog, auditSink, logger)
	authzHandler := authz.NewHandler(logger, authzService, resolver, catalog, authzMiddleware)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	principalsRepo := principals.NewRepository(dbpool)
	principalsService := principals.NewService(principalsRepo)
	principalsHandler := principals.NewHandler(logger, principalsService, authzMiddleware)

	eventsRepo := events.NewRepository(dbpool)
	eventsService := events.NewService(eventsRepo, logger)
	eventsHandler := events.NewHandler(logger, eventsService, authzMiddleware)
	events.RegisterOwnership(owners, eventsRepo)

	auditRepo := audit.NewPGRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audithttp.NewHandler(logger, auditService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		AuthHandler:       authHandler,
		AuthzHandler:      authzHandler,
		AuthzMiddleware:   authzMiddleware,
		PrincipalsHandler: principalsHandler,
		EventsHandler:     eventsHandler,
		AuditHandler:      auditHandler,
		JobsHandler:       jobsHandler,
		Metrics:           metrics,
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
