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

	"github.com/girder-erp/girder-erp/internal/adapter"
	"github.com/girder-erp/girder-erp/internal/app"
	"github.com/girder-erp/girder-erp/internal/export"
	"github.com/girder-erp/girder-erp/internal/ledger"
	"github.com/girder-erp/girder-erp/internal/observability"
	"github.com/girder-erp/girder-erp/internal/platform/cache"
	"github.com/girder-erp/girder-erp/internal/platform/db"
	"github.com/girder-erp/girder-erp/internal/refdata"
	"github.com/girder-erp/girder-erp/internal/trace"
	"github.com/girder-erp/girder-erp/jobs"
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
		logger.Warn("redis connect, export run locking disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	refService := refdata.NewService(refdata.NewRepository(dbpool))

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, refService)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, refService)

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
	exportHandler := export.NewHandler(logger, exportService, refService)

	resolver := trace.NewResolver(trace.NewPgSources(dbpool).Sources())
	traceHandler := trace.NewHandler(logger, resolver, ledgerService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("job client", slog.Any("error", err))
	} else {
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
	}
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		LedgerHandler: ledgerHandler,
		ExportHandler: exportHandler,
		TraceHandler:  traceHandler,
		JobHandler:    jobHandler,
		Metrics:       metrics,
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
