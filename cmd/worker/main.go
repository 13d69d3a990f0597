package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/gatehouse-io/gatehouse/internal/app"
	"github.com/gatehouse-io/gatehouse/internal/audit"
	"github.com/gatehouse-io/gatehouse/internal/authz"
	jobmetrics "github.com/gatehouse-io/gatehouse/internal/jobs"
	"github.com/gatehouse-io/gatehouse/internal/platform/db"
	"github.com/gatehouse-io/gatehouse/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	writer := audit.NewWriter(pool, logger)
	authzRepo := authz.NewRepository(pool)
	metrics := jobmetrics.NewMetrics(nil)
	sweepHandler := jobs.NewExpirySweepHandler(authzRepo, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: audit.TaskSecurityEvent, Handler: jobs.Instrument("audit_security", metrics, writer.HandleSecurityEventTask)},
			{Type: audit.TaskMutationRecord, Handler: jobs.Instrument("audit_mutation", metrics, writer.HandleMutationRecordTask)},
			{Type: jobs.TaskExpirySweep, Handler: jobs.Instrument("expiry_sweep", metrics, sweepHandler)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: jobs.NewExpirySweepTask(), Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
