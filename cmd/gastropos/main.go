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
	"golang.org/x/text/language"

	"github.com/gastropos/gastropos/internal/analytics"
	"github.com/gastropos/gastropos/internal/app"
	"github.com/gastropos/gastropos/internal/audit"
	"github.com/gastropos/gastropos/internal/auth"
	"github.com/gastropos/gastropos/internal/inventory"
	"github.com/gastropos/gastropos/internal/invoices"
	"github.com/gastropos/gastropos/internal/menu"
	"github.com/gastropos/gastropos/internal/observability"
	"github.com/gastropos/gastropos/internal/orders"
	"github.com/gastropos/gastropos/internal/platform/cache"
	"github.com/gastropos/gastropos/internal/platform/db"
	"github.com/gastropos/gastropos/internal/rbac"
	"github.com/gastropos/gastropos/internal/shared"
	"github.com/gastropos/gastropos/internal/users"
	"github.com/gastropos/gastropos/jobs"
	"github.com/gastropos/gastropos/report"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "gastropos_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	rbacService := rbac.NewService(pool)
	rbacService.SetMetrics(metrics)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger, Metrics: metrics}
	permissionsHandler := rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware)

	menuRepo := menu.NewRepository(pool)
	menuService := menu.NewService(menuRepo, auditLogger)
	menuHandler := menu.NewHandler(logger, menuService, rbacMiddleware)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, rbacMiddleware)

	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsService := analytics.NewService(pool, analyticsCache)
	analyticsHandler := analytics.NewHandler(logger, analyticsService, rbacMiddleware)

	ordersRepo := orders.NewRepository(pool)
	ordersService := orders.NewService(logger, ordersRepo, menuService, analyticsCache, auditLogger)
	ordersHandler := orders.NewHandler(logger, ordersService, rbacMiddleware)

	formatter := invoices.NewFormatter(cfg.InvoiceCurrency, language.Make(cfg.InvoiceLocale))
	invoicesRepo := invoices.NewRepository(pool)
	invoicesService := invoices.NewService(invoicesRepo, ordersService, formatter, auditLogger)
	pdfClient := report.NewClient(cfg.GotenbergURL)
	invoicesHandler := invoices.NewHandler(logger, invoicesService, pdfClient, rbacMiddleware)

	auditService := audit.NewService(pool)
	auditHandler := audit.NewHandler(logger, auditService, rbacMiddleware)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, auditLogger)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("init job client", slog.Any("error", err))
	} else {
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		if _, err := jobClient.EnqueueAnalyticsWarmup(ctx); err != nil {
			logger.Warn("enqueue dashboard warmup", slog.Any("error", err))
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        authHandler,
		PermissionsHandler: permissionsHandler,
		MenuHandler:        menuHandler,
		InventoryHandler:   inventoryHandler,
		OrdersHandler:      ordersHandler,
		InvoicesHandler:    invoicesHandler,
		UsersHandler:       usersHandler,
		AnalyticsHandler:   analyticsHandler,
		AuditHandler:       auditHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	}, app.MiddlewareConfig{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
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
