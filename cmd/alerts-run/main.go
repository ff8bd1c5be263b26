package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/renewalwatch/backend/internal/config"
	"github.com/renewalwatch/backend/internal/dispatch"
	"github.com/renewalwatch/backend/internal/joblock"
	"github.com/renewalwatch/backend/internal/logger"
	"github.com/renewalwatch/backend/internal/repository"
	"github.com/renewalwatch/backend/internal/scheduler"
	"github.com/renewalwatch/backend/internal/service"
)

// alerts-run performs one alert run outside the server, holding the same
// job lease the scheduler uses.
func main() {
	occasion := flag.String("occasion", "daily", "Run to perform: daily or monthly")
	tenant := flag.String("tenant", "", "Limit the run to one tenant ID")
	output := flag.String("output", "", "Output file for the JSON report (default: stdout)")
	timeout := flag.Duration("timeout", 30*time.Minute, "Run timeout")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(logger.Options{Level: cfg.Log.Level})

	occ := service.Occasion(*occasion)
	if occ != service.OccasionDaily && occ != service.OccasionMonthly {
		fmt.Fprintf(os.Stderr, "Error: unknown occasion %q\n", *occasion)
		os.Exit(2)
	}
	var tenantID *uuid.UUID
	if *tenant != "" {
		id, err := uuid.Parse(*tenant)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid tenant ID: %v\n", err)
			os.Exit(2)
		}
		tenantID = &id
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: connect to database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	svc := service.NewAlertService(
		repository.NewTenantRepository(db),
		repository.NewAlertSettingsRepository(db),
		repository.NewAlertChannelRepository(db),
		repository.NewSubscriptionRepository(db),
		repository.NewAlertLogRepository(db),
		dispatch.NewDefaultDispatcher(cfg.FrontendURL, cfg.Alerts.DispatchTimeout, log),
		log,
	)

	jobID := scheduler.OccasionJobID(occ, time.Now(), cfg.SchedulerLocation())
	if tenantID != nil {
		jobID = scheduler.TenantJobID(*tenantID, occ)
	}

	var locker joblock.Locker = joblock.NewLocalLocker()
	if cfg.RedisURL != "" {
		rdb, err := joblock.Connect(ctx, cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = rdb.Close() }()
		locker = joblock.NewRedisLocker(rdb)
	}

	lease, err := locker.Acquire(ctx, jobID, *timeout)
	if errors.Is(err, joblock.ErrHeld) {
		fmt.Fprintf(os.Stderr, "Job %s is already running elsewhere\n", jobID)
		os.Exit(3)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = lease.Release(context.Background()) }()

	startTime := time.Now()
	var report interface{}
	if tenantID != nil {
		report, err = svc.RunTenant(ctx, *tenantID, occ)
	} else {
		report, err = svc.RunOccasion(ctx, occ)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Info("Alert run finished", slog.String("job_id", jobID), slog.Duration("elapsed", time.Since(startTime)))

	data, _ := json.MarshalIndent(report, "", "  ")
	if *output == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(*output, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}
