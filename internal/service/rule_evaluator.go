package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/renewalwatch/backend/internal/model"
	"github.com/renewalwatch/backend/pkg/datetime"
)

// DataQualityInterval is the minimum gap between two data-quality alerts
// for the same tenant.
const DataQualityInterval = 7 * 24 * time.Hour

// EvaluationInput is everything the evaluator looks at. The runner fills it
// from the repositories so evaluation itself does no I/O.
type EvaluationInput struct {
	TenantID uuid.UUID
	Now      time.Time
	Location *time.Location
	Settings *model.AlertSettings
	// Renewals holds the candidates fetched for each lead-time rule's window.
	Renewals             map[model.RuleType][]model.Subscription
	Overdue              []model.Subscription
	DataQualityGaps      []model.Subscription
	LastDataQualityAlert *time.Time
}

// RuleEvaluator turns an EvaluationInput into alert candidates.
type RuleEvaluator struct {
	dataQualityInterval time.Duration
}

func NewRuleEvaluator() *RuleEvaluator {
	return &RuleEvaluator{dataQualityInterval: DataQualityInterval}
}

// LeadTimeWindow is the calendar date a lead-time rule targets: the tenant's
// local today plus the rule's lead days, as a UTC date range.
func LeadTimeWindow(rule model.RuleType, now time.Time, loc *time.Location) (datetime.Range, bool) {
	days, ok := rule.LeadDays()
	if !ok {
		return datetime.Range{}, false
	}
	return datetime.DaysFrom(now, loc, days), true
}

// Evaluate returns candidates in rule order: lead-time rules from the
// furthest out, then overdue, then data quality. Rows that fail the rule's
// own conditions are dropped even if the caller passed them in.
func (e *RuleEvaluator) Evaluate(in EvaluationInput) []model.AlertCandidate {
	loc := in.Location
	if loc == nil {
		loc = in.Settings.Location()
	}

	var out []model.AlertCandidate

	for _, rule := range model.LeadTimeRules {
		if !in.Settings.Enabled(rule) {
			continue
		}
		window, _ := LeadTimeWindow(rule, in.Now, loc)
		for i := range in.Renewals[rule] {
			sub := in.Renewals[rule][i]
			if !e.eligible(in.TenantID, sub) || !window.Contains(datetime.CalendarDate(sub.NextRenewalDate)) {
				continue
			}
			out = append(out, e.subscriptionCandidate(in.TenantID, rule, sub))
		}
	}

	if in.Settings.Enabled(model.RuleOverdue) {
		for _, sub := range in.Overdue {
			due := datetime.StartOfDate(datetime.CalendarDate(sub.NextRenewalDate), loc)
			if !e.eligible(in.TenantID, sub) || !due.Before(in.Now) {
				continue
			}
			out = append(out, e.subscriptionCandidate(in.TenantID, model.RuleOverdue, sub))
		}
	}

	if c, ok := e.dataQuality(in, loc); ok {
		out = append(out, c)
	}

	return out
}

// DataQualityThrottled reports whether a data-quality alert went out within
// the last interval.
func (e *RuleEvaluator) DataQualityThrottled(last *time.Time, now time.Time) bool {
	return last != nil && now.Sub(*last) < e.dataQualityInterval
}

func (e *RuleEvaluator) dataQuality(in EvaluationInput, loc *time.Location) (model.AlertCandidate, bool) {
	if !in.Settings.Enabled(model.RuleDataQuality) || e.DataQualityThrottled(in.LastDataQualityAlert, in.Now) {
		return model.AlertCandidate{}, false
	}

	var gaps []model.Subscription
	for _, sub := range in.DataQualityGaps {
		if e.eligible(in.TenantID, sub) && len(sub.MissingFields()) > 0 {
			gaps = append(gaps, sub)
		}
	}
	if len(gaps) == 0 {
		return model.AlertCandidate{}, false
	}

	return model.AlertCandidate{
		TenantID: in.TenantID,
		RuleType: model.RuleDataQuality,
		DueDate:  datetime.DateOf(in.Now, loc),
		Gaps:     gaps,
	}, true
}

// MonthlySummary builds the single monthly summary candidate, due on the
// first of the tenant-local month.
func (e *RuleEvaluator) MonthlySummary(tenantID uuid.UUID, settings *model.AlertSettings, now time.Time, agg *model.MonthlyAggregate) (model.AlertCandidate, bool) {
	if !settings.Enabled(model.RuleMonthlySummary) || agg == nil {
		return model.AlertCandidate{}, false
	}
	return model.AlertCandidate{
		TenantID: tenantID,
		RuleType: model.RuleMonthlySummary,
		DueDate:  datetime.StartOfMonth(now, settings.Location()),
		Summary:  agg,
	}, true
}

func (e *RuleEvaluator) eligible(tenantID uuid.UUID, sub model.Subscription) bool {
	return sub.TenantID == tenantID && sub.Status == model.SubscriptionStatusActive
}

func (e *RuleEvaluator) subscriptionCandidate(tenantID uuid.UUID, rule model.RuleType, sub model.Subscription) model.AlertCandidate {
	return model.AlertCandidate{
		TenantID:     tenantID,
		RuleType:     rule,
		DueDate:      datetime.CalendarDate(sub.NextRenewalDate),
		Subscription: &sub,
	}
}
