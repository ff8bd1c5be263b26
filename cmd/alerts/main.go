package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	_ "github.com/renewalwatch/backend/docs"
	"github.com/renewalwatch/backend/internal/config"
	"github.com/renewalwatch/backend/internal/dispatch"
	"github.com/renewalwatch/backend/internal/handler"
	"github.com/renewalwatch/backend/internal/joblock"
	"github.com/renewalwatch/backend/internal/logger"
	"github.com/renewalwatch/backend/internal/repository"
	"github.com/renewalwatch/backend/internal/scheduler"
	"github.com/renewalwatch/backend/internal/service"
)

// @title Renewal Alerts API
// @version 1.0
// @description Subscription renewal alert engine: manual alert runs, alert logs and health.

// @contact.name API Support
// @contact.email support@renewalwatch.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	appLogger := logger.Setup(logger.Options{
		JSON:       cfg.IsProduction(),
		Level:      cfg.Log.Level,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if cfg.AutoMigrate {
		if err := repository.Migrate(context.Background(), db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize repositories
	tenantRepo := repository.NewTenantRepository(db)
	settingsRepo := repository.NewAlertSettingsRepository(db)
	channelRepo := repository.NewAlertChannelRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	logRepo := repository.NewAlertLogRepository(db)

	// Initialize services
	dispatcher := dispatch.NewDefaultDispatcher(cfg.FrontendURL, cfg.Alerts.DispatchTimeout, appLogger)
	alertService := service.NewAlertService(tenantRepo, settingsRepo, channelRepo, subRepo, logRepo, dispatcher, appLogger)

	locker, closeLocker := newLocker(cfg, appLogger)
	defer closeLocker()

	retry := scheduler.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Alerts.RetryAttempts
	retry.InitialDelay = cfg.Alerts.RetryBaseDelay

	alertScheduler := scheduler.New(scheduler.Config{
		DailySchedule:   cfg.Alerts.DailySchedule,
		MonthlySchedule: cfg.Alerts.MonthlySchedule,
		Location:        cfg.SchedulerLocation(),
		Timeout:         cfg.Alerts.JobTimeout,
		Retry:           retry,
		DeferQuietHours: cfg.Alerts.DeferQuietHours,
		Enabled:         cfg.Alerts.Enabled,
	}, alertService, locker, appLogger)
	if err := alertScheduler.Start(); err != nil {
		log.Fatalf("Failed to start alert scheduler: %v", err)
	}
	appLogger.Info("Alert scheduler started",
		slog.Bool("cron_enabled", cfg.Alerts.Enabled),
		slog.String("daily", cfg.Alerts.DailySchedule),
		slog.String("monthly", cfg.Alerts.MonthlySchedule),
		slog.String("timezone", cfg.Alerts.SchedulerTZ),
	)

	router := handler.NewRouter(
		handler.RouterConfig{AllowedOrigins: cfg.AllowedOrigins, JWTSecret: cfg.JWTSecret},
		handler.NewAlertHandler(alertScheduler, alertService, appLogger),
		handler.NewHealthHandler(db, alertScheduler),
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		appLogger.Info("Shutting down server...")

		// Stop scheduler first so no new dispatches start
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Alerts.DispatchTimeout+30*time.Second)
		defer cancel()
		if err := alertScheduler.Stop(stopCtx); err != nil {
			appLogger.Error("Scheduler stop error", slog.String("error", err.Error()))
		} else {
			appLogger.Info("Scheduler stopped")
		}

		if err := server.Shutdown(stopCtx); err != nil {
			appLogger.Error("Server shutdown error", slog.String("error", err.Error()))
		}
	}()

	appLogger.Info("Server starting", slog.String("port", cfg.Port))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Server failed: %v", err)
		return
	}
	<-done
}

// newLocker returns the Redis lease when REDIS_URL is set, otherwise an
// in-process one.
func newLocker(cfg *config.Config, log *slog.Logger) (joblock.Locker, func()) {
	if cfg.RedisURL == "" {
		log.Info("Using in-process job lease")
		return joblock.NewLocalLocker(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rdb, err := joblock.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn("Redis unavailable, falling back to in-process job lease", slog.String("error", err.Error()))
		return joblock.NewLocalLocker(), func() {}
	}
	log.Info("Using Redis job lease")
	return joblock.NewRedisLocker(rdb), func() { _ = rdb.Close() }
}
