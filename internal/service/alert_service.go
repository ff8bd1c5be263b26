// Package service holds the alert engine's business logic: rule evaluation,
// quiet hours, the delivery ledger and the per-tenant runner.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/renewalwatch/backend/internal/apperror"
	"github.com/renewalwatch/backend/internal/dispatch"
	"github.com/renewalwatch/backend/internal/logger"
	"github.com/renewalwatch/backend/internal/metrics"
	"github.com/renewalwatch/backend/internal/model"
	"github.com/renewalwatch/backend/internal/repository"
	"github.com/renewalwatch/backend/pkg/datetime"
)

// Occasion is a kind of scheduled alert run.
type Occasion string

const (
	OccasionDaily   Occasion = "daily"
	OccasionMonthly Occasion = "monthly"
)

// RunState tracks one tenant run.
type RunState string

const (
	StateNotStarted  RunState = "not_started"
	StateGateChecked RunState = "gate_checked"
	StateEvaluated   RunState = "evaluated"
	StateDispatching RunState = "dispatching"
	StateDone        RunState = "done"
)

// RunReport summarises one tenant run.
type RunReport struct {
	TenantID   uuid.UUID  `json:"tenantId"`
	Occasion   Occasion   `json:"occasion"`
	State      RunState   `json:"state"`
	Suppressed bool       `json:"suppressed"`
	ResumeAt   *time.Time `json:"resumeAt,omitempty"`
	Candidates int        `json:"candidates"`
	Sent       int        `json:"sent"`
	Failed     int        `json:"failed"`
	Skipped    int        `json:"skipped"`
}

// Deferral asks the scheduler to rerun a tenant once quiet hours end.
type Deferral struct {
	TenantID uuid.UUID `json:"tenantId"`
	Occasion Occasion  `json:"occasion"`
	At       time.Time `json:"at"`
}

// OccasionReport summarises a run over all active tenants.
type OccasionReport struct {
	Occasion Occasion   `json:"occasion"`
	Tenants  int        `json:"tenants"`
	Failed   int        `json:"failed"`
	Sent     int        `json:"sent"`
	Deferred []Deferral `json:"deferred,omitempty"`
}

// DeliveryTimeout bounds one reserve, dispatch and finalize sequence.
const DeliveryTimeout = 2 * time.Minute

// AlertDispatcher delivers one message to one channel.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, channel model.AlertChannel, msg dispatch.Message) dispatch.Result
}

// AlertService runs the alert pipeline for tenants: quiet-hours gate, rule
// evaluation, then reserve, dispatch and finalize per candidate and channel.
type AlertService struct {
	tenantRepo   repository.TenantRepositoryInterface
	settingsRepo repository.AlertSettingsRepositoryInterface
	channelRepo  repository.AlertChannelRepositoryInterface
	subRepo      repository.SubscriptionRepositoryInterface
	recorder     *DeliveryRecorder
	dispatcher   AlertDispatcher
	evaluator    *RuleEvaluator
	logger       *slog.Logger
	now          func() time.Time
}

func NewAlertService(
	tenantRepo repository.TenantRepositoryInterface,
	settingsRepo repository.AlertSettingsRepositoryInterface,
	channelRepo repository.AlertChannelRepositoryInterface,
	subRepo repository.SubscriptionRepositoryInterface,
	logRepo repository.AlertLogRepositoryInterface,
	dispatcher AlertDispatcher,
	log *slog.Logger,
) *AlertService {
	if log == nil {
		log = slog.Default()
	}
	return &AlertService{
		tenantRepo:   tenantRepo,
		settingsRepo: settingsRepo,
		channelRepo:  channelRepo,
		subRepo:      subRepo,
		recorder:     NewDeliveryRecorder(logRepo, log),
		dispatcher:   dispatcher,
		evaluator:    NewRuleEvaluator(),
		logger:       log,
		now:          time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (s *AlertService) SetClock(now func() time.Time) {
	s.now = now
	s.recorder.now = now
}

// ProcessAlertsForTenant runs the daily rules for one tenant.
func (s *AlertService) ProcessAlertsForTenant(ctx context.Context, tenantID uuid.UUID) (*RunReport, error) {
	return s.RunTenant(ctx, tenantID, OccasionDaily)
}

// SendMonthlySummary sends the monthly summary for one tenant.
func (s *AlertService) SendMonthlySummary(ctx context.Context, tenantID uuid.UUID) (*RunReport, error) {
	return s.RunTenant(ctx, tenantID, OccasionMonthly)
}

// RunTenant runs one occasion for a single tenant.
func (s *AlertService) RunTenant(ctx context.Context, tenantID uuid.UUID, occasion Occasion) (*RunReport, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	if !tenant.IsActive {
		return &RunReport{TenantID: tenantID, Occasion: occasion, State: StateDone}, nil
	}
	return s.runTenant(ctx, *tenant, occasion)
}

// RunOccasion walks every active tenant in order. Only failing to list
// tenants is an error; a tenant that fails is logged and skipped. When ctx
// is cancelled the run returns at the next tenant or candidate boundary.
func (s *AlertService) RunOccasion(ctx context.Context, occasion Occasion) (*OccasionReport, error) {
	tenants, err := s.tenantRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}

	report := &OccasionReport{Occasion: occasion, Tenants: len(tenants)}
	for _, tenant := range tenants {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		run, err := s.runTenant(ctx, tenant, occasion)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			report.Failed++
			metrics.RecordTenantFailure()
			s.logger.Error("tenant alert run failed",
				"tenant_id", tenant.ID,
				"occasion", occasion,
				"error", err,
			)
			continue
		}

		report.Sent += run.Sent
		if run.ResumeAt != nil {
			report.Deferred = append(report.Deferred, Deferral{TenantID: tenant.ID, Occasion: occasion, At: *run.ResumeAt})
		}
	}
	return report, nil
}

func (s *AlertService) runTenant(ctx context.Context, tenant model.Tenant, occasion Occasion) (*RunReport, error) {
	ctx = logger.WithTenantID(ctx, tenant.ID.String())
	log := logger.FromContext(ctx, s.logger)
	report := &RunReport{TenantID: tenant.ID, Occasion: occasion, State: StateNotStarted}

	settings, err := s.settingsRepo.GetOrCreate(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("load alert settings: %w", err)
	}
	if settings.Timezone == "" {
		settings.Timezone = tenant.Timezone
	}

	now := s.now()
	report.State = StateGateChecked
	if InQuietHours(settings, now) {
		report.Suppressed = true
		if resume, ok := QuietHoursResume(settings, now); ok {
			report.ResumeAt = &resume
		}
		report.State = StateDone
		metrics.RecordSkip(metrics.SkipQuietHours)
		log.Info("alerts suppressed by quiet hours", "occasion", occasion, "resume_at", report.ResumeAt)
		return report, nil
	}

	var candidates []model.AlertCandidate
	switch occasion {
	case OccasionMonthly:
		candidates, err = s.monthlyCandidates(ctx, tenant.ID, settings, now)
	default:
		candidates, err = s.dailyCandidates(ctx, tenant.ID, settings, now)
	}
	if err != nil {
		return nil, err
	}
	report.State = StateEvaluated
	report.Candidates = len(candidates)
	if len(candidates) == 0 {
		report.State = StateDone
		return report, nil
	}

	channels, err := s.activeChannels(ctx, tenant.ID, log)
	if err != nil {
		return nil, err
	}

	report.State = StateDispatching
	msgLoc := settings.Location()
	for _, c := range candidates {
		msg := dispatch.Message{Candidate: c, TenantName: tenant.Name, Location: msgLoc}
		for _, ch := range channels {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			s.deliver(ctx, log, ch, msg, report)
		}
	}

	report.State = StateDone
	log.Info("tenant alert run complete",
		"occasion", occasion,
		"candidates", report.Candidates,
		"sent", report.Sent,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)
	return report, nil
}

// deliver ignores ctx cancellation so a started delivery always finalizes
// its ledger row.
func (s *AlertService) deliver(ctx context.Context, log *slog.Logger, ch model.AlertChannel, msg dispatch.Message, report *RunReport) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DeliveryTimeout)
	defer cancel()
	key := msg.Candidate.Key(ch.ID)

	res, err := s.recorder.Reserve(ctx, key)
	if err != nil {
		report.Failed++
		log.Error("failed to reserve alert",
			"channel_id", ch.ID,
			"rule_type", key.RuleType,
			"error", err,
		)
		return
	}
	if !res.Reserved {
		report.Skipped++
		metrics.RecordSkip(metrics.SkipDuplicate)
		return
	}

	result := s.dispatcher.Dispatch(ctx, ch, msg)
	s.recorder.Finalize(ctx, res.LogID, result)
	if result.Sent() {
		report.Sent++
	} else {
		report.Failed++
	}
}

func (s *AlertService) dailyCandidates(ctx context.Context, tenantID uuid.UUID, settings *model.AlertSettings, now time.Time) ([]model.AlertCandidate, error) {
	loc := settings.Location()
	in := EvaluationInput{
		TenantID: tenantID,
		Now:      now,
		Location: loc,
		Settings: settings,
		Renewals: make(map[model.RuleType][]model.Subscription),
	}

	for _, rule := range model.LeadTimeRules {
		if !settings.Enabled(rule) {
			continue
		}
		window, _ := LeadTimeWindow(rule, now, loc)
		subs, err := s.subRepo.FindDueBetween(ctx, tenantID, window.Start, window.End, model.SubscriptionStatusActive)
		if err != nil {
			return nil, fmt.Errorf("%s renewals: %w", rule, err)
		}
		in.Renewals[rule] = subs
	}

	if settings.Enabled(model.RuleOverdue) {
		subs, err := s.subRepo.FindOverdue(ctx, tenantID, datetime.DateOf(now, loc).AddDate(0, 0, 1))
		if err != nil {
			return nil, fmt.Errorf("overdue renewals: %w", err)
		}
		in.Overdue = subs
	}

	if settings.Enabled(model.RuleDataQuality) {
		last, err := s.recorder.LastAlertAt(ctx, tenantID, model.RuleDataQuality)
		if err != nil {
			return nil, fmt.Errorf("last data quality alert: %w", err)
		}
		in.LastDataQualityAlert = last
		if s.evaluator.DataQualityThrottled(last, now) {
			metrics.RecordSkip(metrics.SkipThrottled)
		} else {
			gaps, err := s.subRepo.FindDataQualityGaps(ctx, tenantID)
			if err != nil {
				return nil, fmt.Errorf("data quality gaps: %w", err)
			}
			in.DataQualityGaps = gaps
		}
	}

	return s.evaluator.Evaluate(in), nil
}

func (s *AlertService) monthlyCandidates(ctx context.Context, tenantID uuid.UUID, settings *model.AlertSettings, now time.Time) ([]model.AlertCandidate, error) {
	if !settings.Enabled(model.RuleMonthlySummary) {
		return nil, nil
	}
	agg, err := s.subRepo.MonthlyAggregate(ctx, tenantID, datetime.DateOf(now, settings.Location()))
	if err != nil {
		return nil, fmt.Errorf("monthly aggregate: %w", err)
	}
	c, ok := s.evaluator.MonthlySummary(tenantID, settings, now, agg)
	if !ok {
		return nil, nil
	}
	return []model.AlertCandidate{c}, nil
}

// activeChannels drops channels that fail validation; they are never dispatched.
func (s *AlertService) activeChannels(ctx context.Context, tenantID uuid.UUID, log *slog.Logger) ([]model.AlertChannel, error) {
	all, err := s.channelRepo.ListActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list alert channels: %w", err)
	}
	channels := make([]model.AlertChannel, 0, len(all))
	for _, ch := range all {
		if err := ch.Validate(); err != nil {
			verr := apperror.FromValidation(err)
			metrics.RecordSkip(metrics.SkipInvalidChannel)
			log.Warn("skipping invalid alert channel", "channel_id", ch.ID, "field", verr.Field, "error", verr.Message)
			continue
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// ListLogs returns the tenant's most recent ledger entries.
func (s *AlertService) ListLogs(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.AlertLog, error) {
	return s.recorder.logs.ListByTenant(ctx, tenantID, limit)
}
