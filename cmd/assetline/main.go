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

	"github.com/assetline/assetline/internal/app"
	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/audit"
	"github.com/assetline/assetline/internal/budget"
	"github.com/assetline/assetline/internal/disposal"
	"github.com/assetline/assetline/internal/inventorycheck"
	"github.com/assetline/assetline/internal/maintenance"
	"github.com/assetline/assetline/internal/observability"
	"github.com/assetline/assetline/internal/platform/cache"
	"github.com/assetline/assetline/internal/platform/db"
	"github.com/assetline/assetline/internal/shared"
	"github.com/assetline/assetline/internal/transfer"
	"github.com/assetline/assetline/jobs"
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
		logger.Warn("redis connect", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	assetRepo := asset.NewRepository(dbpool)
	assetService := asset.NewService(assetRepo, auditLogger, nil)
	assetHandler := asset.NewHandler(logger, assetService)

	transferRepo := transfer.NewRepository(dbpool)
	transferService := transfer.NewService(transferRepo, assetRepo, auditLogger, approvalRecorder, nil)
	transferHandler := transfer.NewHandler(logger, transferService)

	disposalRepo := disposal.NewRepository(dbpool)
	disposalService := disposal.NewService(disposalRepo, assetRepo, auditLogger, approvalRecorder, nil)
	disposalHandler := disposal.NewHandler(logger, disposalService)

	budgetRepo := budget.NewRepository(dbpool)
	budgetCache := budget.NewCache(redisClient, cfg.CacheTTL)
	budgetService := budget.NewService(budgetRepo, auditLogger, approvalRecorder, budgetCache, idempotencyStore, nil)
	budgetHandler := budget.NewHandler(logger, budgetService)

	inventoryRepo := inventorycheck.NewRepository(dbpool)
	inventoryService := inventorycheck.NewService(inventoryRepo, assetRepo, auditLogger, nil)
	inventoryHandler := inventorycheck.NewHandler(logger, inventoryService)

	maintenanceRepo := maintenance.NewRepository(dbpool)
	maintenanceService := maintenance.NewService(maintenanceRepo, assetRepo, budgetRepo, auditLogger, nil)
	maintenanceHandler := maintenance.NewHandler(logger, maintenanceService)

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AssetHandler:       assetHandler,
		TransferHandler:    transferHandler,
		DisposalHandler:    disposalHandler,
		BudgetHandler:      budgetHandler,
		InventoryHandler:   inventoryHandler,
		MaintenanceHandler: maintenanceHandler,
		AuditHandler:       auditHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
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
