package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/girder-erp/girder-erp/internal/adapter"
	"github.com/girder-erp/girder-erp/internal/app"
	"github.com/girder-erp/girder-erp/internal/export"
	"github.com/girder-erp/girder-erp/internal/ledger"
	"github.com/girder-erp/girder-erp/internal/observability"
	"github.com/girder-erp/girder-erp/internal/platform/cache"
	"github.com/girder-erp/girder-erp/internal/platform/db"
	"github.com/girder-erp/girder-erp/internal/refdata"
	"github.com/girder-erp/girder-erp/jobs"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis connect, export run locking disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	refService := refdata.NewService(refdata.NewRepository(pool))

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, refService)

	selector := adapter.NewSelector(
		adapter.NewLive(adapter.LiveConfig{
			BaseURL: cfg.AcctBaseURL,
			APIKey:  cfg.AcctAPIKey,
			Company: cfg.AcctCompany,
			Timeout: cfg.AcctTimeout,
		}),
		adapter.NewSimulated(),
		logger,
	)

	runLock := export.NewRunLock(redisClient, cfg.ExportRunLockTTL)
	exportService := export.NewService(logger, ledgerService, refService, selector, runLock, metrics, export.Options{
		Workers:     cfg.ExportWorkers,
		PushTimeout: cfg.ExportPushTimeout,
	})

	projectIDs := func(ctx context.Context) ([]int64, error) {
		projects, err := refService.GetProjects(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, 0, len(projects))
		for _, p := range projects {
			ids = append(ids, p.ID)
		}
		return ids, nil
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskExportRun, Handler: jobs.NewExportRunHandler(logger, exportService, projectIDs)},
			{Type: jobs.TaskLedgerIntegrity, Handler: jobs.NewLedgerIntegrityHandler(logger, ledgerRepo)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 1 * * *", Task: jobs.NewLedgerIntegrityTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
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
