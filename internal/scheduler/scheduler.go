// Package scheduler triggers the alert occasions on cron schedules and runs
// them one at a time through a single-worker job queue.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/renewalwatch/backend/internal/joblock"
	"github.com/renewalwatch/backend/internal/logger"
	"github.com/renewalwatch/backend/internal/metrics"
	"github.com/renewalwatch/backend/internal/repository"
	"github.com/renewalwatch/backend/internal/service"
	"github.com/robfig/cron/v3"
)

// Config holds the scheduler configuration
type Config struct {
	// DailySchedule is a 5-field cron expression for lead-time, overdue and
	// data-quality alerts.
	DailySchedule string
	// MonthlySchedule is a 5-field cron expression for the monthly summary.
	MonthlySchedule string
	// Location is the timezone both schedules and job ids are read in.
	Location *time.Location
	// Timeout is the maximum duration of one job attempt
	Timeout time.Duration
	Retry   RetryConfig
	// DeferQuietHours reruns a tenant when its quiet hours end later the same day.
	DeferQuietHours bool
	// Enabled determines if the cron triggers are registered
	Enabled bool
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		DailySchedule:   "0 9 * * *",
		MonthlySchedule: "0 8 1 * *",
		Location:        time.UTC,
		Timeout:         30 * time.Minute,
		Retry:           DefaultRetryConfig(),
		DeferQuietHours: true,
		Enabled:         true,
	}
}

// Runner executes alert runs. *service.AlertService satisfies it.
type Runner interface {
	RunOccasion(ctx context.Context, occasion service.Occasion) (*service.OccasionReport, error)
	RunTenant(ctx context.Context, tenantID uuid.UUID, occasion service.Occasion) (*service.RunReport, error)
}

// Job is one queued unit of work. Jobs with the same ID are collapsed while
// one is queued or running.
type Job struct {
	ID       string
	Occasion service.Occasion
	TenantID *uuid.UUID
}

// OccasionJobID is the stable identity of an occasion run, e.g.
// "daily:2026-10-16" or "monthly:2026-10".
func OccasionJobID(occasion service.Occasion, t time.Time, loc *time.Location) string {
	t = t.In(loc)
	if occasion == service.OccasionMonthly {
		return fmt.Sprintf("monthly:%s", t.Format("2006-01"))
	}
	return fmt.Sprintf("%s:%s", occasion, t.Format("2006-01-02"))
}

// TenantJobID is the identity of a single-tenant run, e.g. "tenant:<id>:daily".
func TenantJobID(tenantID uuid.UUID, occasion service.Occasion) string {
	return fmt.Sprintf("tenant:%s:%s", tenantID, occasion)
}

// Scheduler manages the cron triggers and the job queue.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	locker joblock.Locker
	config Config
	logger *slog.Logger
	now    func() time.Time

	entries map[service.Occasion]cron.EntryID

	mu       sync.Mutex
	queue    []Job
	active   map[string]bool
	timers   map[string]*time.Timer
	running  string
	stopping bool
	wake     chan struct{}

	// stopCtx is cancelled on Stop. Jobs run under it and stop at the next
	// tenant or candidate boundary; backoff waits are abandoned.
	stopCtx    context.Context
	cancelStop context.CancelFunc
	done       chan struct{}
	started    bool
}

// New creates a new Scheduler instance
func New(cfg Config, runner Runner, locker joblock.Locker, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if locker == nil {
		locker = joblock.NewLocalLocker()
	}
	stopCtx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location)),
		runner:     runner,
		locker:     locker,
		config:     cfg,
		logger:     log,
		now:        time.Now,
		entries:    make(map[service.Occasion]cron.EntryID),
		active:     make(map[string]bool),
		timers:     make(map[string]*time.Timer),
		wake:       make(chan struct{}, 1),
		stopCtx:    stopCtx,
		cancelStop: cancel,
		done:       make(chan struct{}),
	}
}

// Start registers the cron triggers and starts the worker.
func (s *Scheduler) Start() error {
	if s.config.Enabled {
		for occasion, schedule := range map[service.Occasion]string{
			service.OccasionDaily:   s.config.DailySchedule,
			service.OccasionMonthly: s.config.MonthlySchedule,
		} {
			occasion := occasion
			// Convert standard cron (5 fields) to cron with seconds (6 fields)
			entryID, err := s.cron.AddFunc("0 "+schedule, func() {
				s.EnqueueOccasion(occasion)
			})
			if err != nil {
				return fmt.Errorf("invalid %s schedule %q: %w", occasion, schedule, err)
			}
			s.entries[occasion] = entryID
		}
		s.cron.Start()
	} else {
		s.logger.Info("Alert cron triggers are disabled, manual runs only")
	}

	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	go s.work()

	s.logger.Info("Scheduler started",
		slog.String("daily_schedule", s.config.DailySchedule),
		slog.String("monthly_schedule", s.config.MonthlySchedule),
		slog.String("timezone", s.config.Location.String()),
		slog.Duration("timeout", s.config.Timeout),
	)
	return nil
}

// Stop stops the triggers, drops queued and deferred jobs, signals the
// in-flight job to stop at its next boundary and waits for it to return or
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("Stopping scheduler...")
	<-s.cron.Stop().Done()

	s.mu.Lock()
	s.stopping = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	dropped := len(s.queue)
	s.queue = nil
	started := s.started
	s.mu.Unlock()

	s.cancelStop()
	s.signal()

	if dropped > 0 {
		s.logger.Warn("Dropped queued jobs on shutdown", slog.Int("jobs", dropped))
	}
	if !started {
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnqueueOccasion queues the run for occasion at the current time.
func (s *Scheduler) EnqueueOccasion(occasion service.Occasion) (string, bool) {
	id := OccasionJobID(occasion, s.now(), s.config.Location)
	return id, s.Enqueue(Job{ID: id, Occasion: occasion})
}

// EnqueueTenant queues a single-tenant run.
func (s *Scheduler) EnqueueTenant(tenantID uuid.UUID, occasion service.Occasion) (string, bool) {
	id := TenantJobID(tenantID, occasion)
	return id, s.Enqueue(Job{ID: id, Occasion: occasion, TenantID: &tenantID})
}

// Enqueue adds job to the queue. It reports false when a job with the same
// ID is already queued or running, or the scheduler is stopping.
func (s *Scheduler) Enqueue(job Job) bool {
	s.mu.Lock()
	if s.stopping || s.active[job.ID] {
		s.mu.Unlock()
		return false
	}
	s.active[job.ID] = true
	s.queue = append(s.queue, job)
	s.mu.Unlock()

	s.signal()
	s.logger.Info("Job enqueued", slog.String("job_id", job.ID))
	return true
}

// DeferTenant enqueues a tenant run at the given time. Deferrals live in
// memory only and are lost on restart.
func (s *Scheduler) DeferTenant(tenantID uuid.UUID, occasion service.Occasion, at time.Time) bool {
	id := TenantJobID(tenantID, occasion)
	delay := at.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	if _, exists := s.timers[id]; exists {
		return false
	}
	s.timers[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
		s.EnqueueTenant(tenantID, occasion)
	})

	s.logger.Info("Tenant run deferred until quiet hours end",
		slog.String("job_id", id),
		slog.Time("at", at),
	)
	return true
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) work() {
	defer close(s.done)
	for {
		s.mu.Lock()
		if s.stopping {
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			<-s.wake
			continue
		}
		job := s.queue[0]
		s.queue = s.queue[1:]
		s.running = job.ID
		s.mu.Unlock()

		s.runJob(job)

		s.mu.Lock()
		delete(s.active, job.ID)
		s.running = ""
		s.mu.Unlock()
	}
}

func (s *Scheduler) runJob(job Job) {
	ctx := logger.WithJobID(s.stopCtx, job.ID)
	log := logger.FromContext(ctx, s.logger)
	startTime := s.now()
	log.Info("Starting alert job", slog.String("occasion", string(job.Occasion)))

	err := WithRetry(s.stopCtx, s.config.Retry, log, func(attempt int) error {
		if err := s.attempt(ctx, job); err != nil {
			return NewJobError(job.ID, attempt, err)
		}
		return nil
	})
	duration := time.Since(startTime)

	switch {
	case errors.Is(err, joblock.ErrHeld):
		metrics.RecordJob(string(job.Occasion), "skipped")
		log.Info("Alert job skipped, lease held elsewhere")
	case errors.Is(err, context.Canceled) && s.stopCtx.Err() != nil:
		metrics.RecordJob(string(job.Occasion), "interrupted")
		log.Warn("Alert job interrupted by shutdown", slog.Duration("duration", duration))
	case err != nil:
		metrics.RecordJob(string(job.Occasion), "failed")
		log.Error("Alert job failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		)
	default:
		metrics.RecordJob(string(job.Occasion), "success")
		log.Info("Alert job completed successfully", slog.Duration("duration", duration))
	}
}

// attempt runs one try of job under its lease.
func (s *Scheduler) attempt(parent context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(parent, s.config.Timeout)
	defer cancel()

	lease, err := s.locker.Acquire(ctx, job.ID, s.config.Timeout)
	if err != nil {
		if errors.Is(err, joblock.ErrHeld) {
			return Permanent(err)
		}
		return err
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			s.logger.Warn("Failed to release job lease", slog.String("job_id", job.ID), slog.String("error", err.Error()))
		}
	}()

	if job.TenantID != nil {
		report, err := s.runner.RunTenant(ctx, *job.TenantID, job.Occasion)
		if errors.Is(err, repository.ErrTenantNotFound) {
			return Permanent(err)
		}
		if err != nil {
			return err
		}
		if report.ResumeAt != nil {
			s.deferRun(*job.TenantID, job.Occasion, *report.ResumeAt)
		}
		return nil
	}

	report, err := s.runner.RunOccasion(ctx, job.Occasion)
	if err != nil {
		return err
	}
	for _, d := range report.Deferred {
		s.deferRun(d.TenantID, d.Occasion, d.At)
	}
	s.logger.Info("Occasion run finished",
		slog.String("job_id", job.ID),
		slog.Int("tenants", report.Tenants),
		slog.Int("tenants_failed", report.Failed),
		slog.Int("alerts_sent", report.Sent),
	)
	return nil
}

func (s *Scheduler) deferRun(tenantID uuid.UUID, occasion service.Occasion, at time.Time) {
	if !s.config.DeferQuietHours {
		return
	}
	s.DeferTenant(tenantID, occasion, at)
}

// Status is a snapshot for the health endpoint.
type Status struct {
	Running     string               `json:"running,omitempty"`
	Queued      []string             `json:"queued"`
	Deferred    int                  `json:"deferred"`
	NextRuns    map[string]time.Time `json:"nextRuns,omitempty"`
	CronEnabled bool                 `json:"cronEnabled"`
}

func (s *Scheduler) Status() Status {
	st := Status{CronEnabled: s.config.Enabled, Queued: []string{}}
	for occasion, id := range s.entries {
		if st.NextRuns == nil {
			st.NextRuns = make(map[string]time.Time)
		}
		st.NextRuns[string(occasion)] = s.cron.Entry(id).Next
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st.Running = s.running
	for _, j := range s.queue {
		st.Queued = append(st.Queued, j.ID)
	}
	st.Deferred = len(s.timers)
	return st
}
