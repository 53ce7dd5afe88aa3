package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/assetline/assetline/internal/app"
	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/budget"
	jobmetrics "github.com/assetline/assetline/internal/jobs"
	"github.com/assetline/assetline/internal/platform/db"
	"github.com/assetline/assetline/internal/shared"
	"github.com/assetline/assetline/jobs"
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

	auditLogger := shared.NewAuditLogger(pool)
	metrics := jobmetrics.NewMetrics(nil)

	assetRepo := asset.NewRepository(pool)
	budgetRepo := budget.NewRepository(pool)

	depreciationJob := jobs.NewDepreciationJob(assetRepo, auditLogger, metrics, logger, cfg.DepreciationRateYearly, nil)
	warrantyJob := jobs.NewWarrantyScanJob(assetRepo, metrics, logger, cfg.WarrantyScanDays, nil)
	overrunJob := jobs.NewOverrunScanJob(budgetRepo, metrics, logger, cfg.BudgetOverrunThreshold)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDepreciationRun, Handler: depreciationJob.Handle},
			{Type: jobs.TaskWarrantyScan, Handler: warrantyJob.Handle},
			{Type: jobs.TaskBudgetOverrunScan, Handler: overrunJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 2 1 * *", Task: jobs.NewDepreciationRunTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: jobs.NewWarrantyScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 3 * * *", Task: jobs.NewBudgetOverrunScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
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
