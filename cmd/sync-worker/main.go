package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/prodflow-backend/internal/cron"
	"github.com/angelmondragon/prodflow-backend/internal/hierarchy"
	"github.com/angelmondragon/prodflow-backend/internal/importer"
	"github.com/angelmondragon/prodflow-backend/internal/notifications"
	"github.com/angelmondragon/prodflow-backend/internal/orders"
	"github.com/angelmondragon/prodflow-backend/pkg/config"
	"github.com/angelmondragon/prodflow-backend/pkg/db"
	"github.com/angelmondragon/prodflow-backend/pkg/logger"
	"github.com/angelmondragon/prodflow-backend/pkg/metrics"
	"github.com/angelmondragon/prodflow-backend/pkg/migrate"
	"github.com/angelmondragon/prodflow-backend/pkg/outbox"
	"github.com/angelmondragon/prodflow-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sync-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	hierarchyService, err := hierarchy.NewService(hierarchy.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create hierarchy service", err)
		os.Exit(1)
	}

	accountingAdapter, err := importer.NewHTTPAdapter(cfg.Accounting)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounting adapter", err)
		os.Exit(1)
	}

	syncService, err := importer.NewSyncService(
		orders.NewRepository(dbClient.DB()),
		importer.NewTenantRepository(dbClient.DB()),
		hierarchyService,
		accountingAdapter,
		dbClient,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounting sync service", err)
		os.Exit(1)
	}

	syncJob, err := cron.NewAccountingSyncJob(cron.AccountingSyncJobParams{
		Logger:   logg,
		Sync:     syncService,
		Schedule: cfg.Sync.AccountingSchedule,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create accounting sync job", err)
		os.Exit(1)
	}

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notifications.NewRepository(dbClient.DB()),
		Retention:  cfg.Sync.NotificationDays,
		Schedule:   cfg.Sync.CleanupSchedule,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Outbox.RetentionDays,
		Schedule:   cfg.Sync.CleanupSchedule,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	scheduler, err := cron.NewScheduler(cron.SchedulerParams{
		Logger:   logg,
		Registry: cron.NewRegistry(syncJob, cleanupJob, retentionJob),
		Locker:   redisClient,
		Metrics:  metrics.NewCronJobMetrics(registry),
		LockTTL:  time.Duration(cfg.Sync.LockTTLMinutes) * time.Minute,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "sync-worker",
	})

	metricsServer := &http.Server{
		Addr:    cfg.Sync.MetricsListenAddress,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	go func() {
		logg.Info(logg.WithField(ctx, "addr", cfg.Sync.MetricsListenAddress), "metrics listener started")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "metrics listener stopped unexpectedly", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logg.Info(ctx, "starting sync worker")

	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sync worker shutting down gracefully")
}
