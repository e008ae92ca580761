package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/jordymora1978/GSS-Utilidad/internal/app"
	jobmetrics "github.com/jordymora1978/GSS-Utilidad/internal/jobs"
	"github.com/jordymora1978/GSS-Utilidad/internal/orders"
	"github.com/jordymora1978/GSS-Utilidad/internal/platform/cache"
	"github.com/jordymora1978/GSS-Utilidad/internal/platform/db"
	"github.com/jordymora1978/GSS-Utilidad/internal/rates"
	"github.com/jordymora1978/GSS-Utilidad/jobs"
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
		logger.Warn("redis unavailable, running unlocked", slog.Any("error", err))
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

	ordersRepo := orders.NewRepository(pool)
	var rateCache *rates.Cache
	if redisClient != nil {
		rateCache = rates.NewCache(redisClient)
	}
	ratesRepo := rates.NewRepository(pool)
	ratesService := rates.NewService(logger, ratesRepo, rateCache, nil)

	metrics := jobmetrics.NewMetrics(nil)
	recalcJob := jobs.NewRecalcJob(logger, ordersRepo, ratesService, redisClient, metrics)

	// Nightly full recalculation keeps stored profits aligned with any rate
	// drift below the significance threshold.
	nightlyTask, err := jobs.NewProfitRecalcTask(jobs.ProfitRecalcPayload{Reason: "nightly"})
	if err != nil {
		logger.Error("build nightly task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeProfitRecalc, Handler: recalcJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: nightlyTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
