package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/prodflow-backend/api/routes"
	"github.com/angelmondragon/prodflow-backend/internal/externaljobs"
	"github.com/angelmondragon/prodflow-backend/internal/hierarchy"
	"github.com/angelmondragon/prodflow-backend/internal/importer"
	"github.com/angelmondragon/prodflow-backend/internal/notifications"
	"github.com/angelmondragon/prodflow-backend/internal/orders"
	"github.com/angelmondragon/prodflow-backend/internal/workflowrules"
	"github.com/angelmondragon/prodflow-backend/pkg/config"
	"github.com/angelmondragon/prodflow-backend/pkg/db"
	"github.com/angelmondragon/prodflow-backend/pkg/logger"
	"github.com/angelmondragon/prodflow-backend/pkg/migrate"
	"github.com/angelmondragon/prodflow-backend/pkg/outbox"
	"github.com/angelmondragon/prodflow-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	rulesService, err := workflowrules.NewService(workflowrules.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create workflow rules service", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(orderRepo, rulesService, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}
	workflow, err := orders.NewWorkflow(orderRepo, rulesService, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create order workflow", err)
		os.Exit(1)
	}

	jobService, err := externaljobs.NewService(
		externaljobs.NewRepository(dbClient.DB()),
		orderRepo,
		rulesService,
		dbClient,
		outboxService,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create external job service", err)
		os.Exit(1)
	}

	hierarchyService, err := hierarchy.NewService(hierarchy.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create hierarchy service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	excelService, err := importer.NewExcelService(orderRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create excel import service", err)
		os.Exit(1)
	}

	accountingAdapter, err := importer.NewHTTPAdapter(cfg.Accounting)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounting adapter", err)
		os.Exit(1)
	}
	syncService, err := importer.NewSyncService(
		orderRepo,
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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	router := routes.NewRouter(cfg, logg, redisClient,
		routes.HealthDeps{DB: dbClient, Redis: redisClient},
		routes.Services{
			Orders:        orderService,
			Workflow:      workflow,
			ExternalJobs:  jobService,
			Notifications: notificationService,
			WorkflowRules: rulesService,
			Hierarchy:     hierarchyService,
			ExcelImport:   excelService,
			Sync:          syncService,
		},
	)

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
