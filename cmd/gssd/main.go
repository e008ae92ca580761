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

	"github.com/jordymora1978/GSS-Utilidad/internal/app"
	"github.com/jordymora1978/GSS-Utilidad/internal/ingest"
	"github.com/jordymora1978/GSS-Utilidad/internal/observability"
	"github.com/jordymora1978/GSS-Utilidad/internal/orders"
	"github.com/jordymora1978/GSS-Utilidad/internal/platform/cache"
	"github.com/jordymora1978/GSS-Utilidad/internal/platform/db"
	"github.com/jordymora1978/GSS-Utilidad/internal/rates"
	"github.com/jordymora1978/GSS-Utilidad/internal/reports"
	"github.com/jordymora1978/GSS-Utilidad/internal/shared"
	"github.com/jordymora1978/GSS-Utilidad/jobs"
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
		logger.Warn("redis unavailable, rate cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	runMetrics := observability.NewRunMetrics(metrics.Registerer())

	auditLogger := shared.NewActivityLogger(dbpool)
	ordersRepo := orders.NewRepository(dbpool)

	recalcClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := recalcClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	ingestService := ingest.NewService(logger, ordersRepo, auditLogger, runMetrics, cfg.IngestBatchSize)
	ingestService.SetRecalculator(recalcClient)
	ingestHandler := ingest.NewHandler(logger, ingestService)

	var rateCache *rates.Cache
	if redisClient != nil {
		rateCache = rates.NewCache(redisClient)
	}
	ratesRepo := rates.NewRepository(dbpool)
	ratesService := rates.NewService(logger, ratesRepo, rateCache, auditLogger)
	ratesService.SetRecalculator(recalcClient)
	ratesHandler := rates.NewHandler(logger, ratesService)

	reportsService := reports.NewService(logger, ordersRepo, ratesService)
	reportsHandler := reports.NewHandler(logger, reportsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		IngestHandler:  ingestHandler,
		RatesHandler:   ratesHandler,
		ReportsHandler: reportsHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
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
