package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

// RuleType identifies one alert condition. Rules are defined in code and
// switched on per tenant through AlertSettings.
type RuleType string

const (
	RuleDays14         RuleType = "days_14"
	RuleDays7          RuleType = "days_7"
	RuleDays3          RuleType = "days_3"
	RuleTomorrow       RuleType = "tomorrow"
	RuleOverdue        RuleType = "overdue"
	RuleDataQuality    RuleType = "data_quality"
	RuleMonthlySummary RuleType = "monthly_summary"
)

// LeadTimeRules are the renewal reminders in evaluation order.
var LeadTimeRules = []RuleType{RuleDays14, RuleDays7, RuleDays3, RuleTomorrow}

// LeadDays returns the number of days before renewal a lead-time rule fires.
func (r RuleType) LeadDays() (int, bool) {
	switch r {
	case RuleDays14:
		return 14, true
	case RuleDays7:
		return 7, true
	case RuleDays3:
		return 3, true
	case RuleTomorrow:
		return 1, true
	default:
		return 0, false
	}
}

type ChannelKind string

const (
	ChannelGoogleChat ChannelKind = "google_chat"
	ChannelSlack      ChannelKind = "slack"
	ChannelWebhook    ChannelKind = "webhook"
)

type AlertStatus string

const (
	AlertStatusPending AlertStatus = "pending"
	AlertStatusSent    AlertStatus = "sent"
	AlertStatusFailed  AlertStatus = "failed"
)

// AlertSettings holds per-tenant rule switches and quiet hours.
// Quiet hours are tenant-local "HH:MM" strings.
type AlertSettings struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	TenantID              uuid.UUID `db:"tenant_id" json:"tenantId"`
	Days14Enabled         bool      `db:"days14_enabled" json:"days14Enabled"`
	Days7Enabled          bool      `db:"days7_enabled" json:"days7Enabled"`
	Days3Enabled          bool      `db:"days3_enabled" json:"days3Enabled"`
	TomorrowEnabled       bool      `db:"tomorrow_enabled" json:"tomorrowEnabled"`
	OverdueEnabled        bool      `db:"overdue_enabled" json:"overdueEnabled"`
	DataQualityEnabled    bool      `db:"data_quality_enabled" json:"dataQualityEnabled"`
	MonthlySummaryEnabled bool      `db:"monthly_summary_enabled" json:"monthlySummaryEnabled"`
	QuietHoursStart       *string   `db:"quiet_hours_start" json:"quietHoursStart,omitempty"`
	QuietHoursEnd         *string   `db:"quiet_hours_end" json:"quietHoursEnd,omitempty"`
	Timezone              string    `db:"timezone" json:"timezone"`
	CreatedAt             time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time `db:"updated_at" json:"updatedAt"`
}

// DefaultAlertSettings is what a tenant gets on first access.
func DefaultAlertSettings(tenantID uuid.UUID) *AlertSettings {
	return &AlertSettings{
		ID:                    uuid.New(),
		TenantID:              tenantID,
		Days14Enabled:         true,
		Days7Enabled:          true,
		Days3Enabled:          true,
		TomorrowEnabled:       true,
		OverdueEnabled:        true,
		DataQualityEnabled:    true,
		MonthlySummaryEnabled: true,
		Timezone:              "UTC",
	}
}

// Enabled reports whether the given rule is switched on.
func (s *AlertSettings) Enabled(rule RuleType) bool {
	switch rule {
	case RuleDays14:
		return s.Days14Enabled
	case RuleDays7:
		return s.Days7Enabled
	case RuleDays3:
		return s.Days3Enabled
	case RuleTomorrow:
		return s.TomorrowEnabled
	case RuleOverdue:
		return s.OverdueEnabled
	case RuleDataQuality:
		return s.DataQualityEnabled
	case RuleMonthlySummary:
		return s.MonthlySummaryEnabled
	default:
		return false
	}
}

// Location resolves the settings timezone, falling back to UTC.
func (s *AlertSettings) Location() *time.Location {
	if s == nil || s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

var clockRule = validation.Match(clockPattern).Error("must be HH:MM")

func (s AlertSettings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.TenantID, validation.By(requiredUUID)),
		validation.Field(&s.QuietHoursStart, validation.NilOrNotEmpty, clockRule),
		validation.Field(&s.QuietHoursEnd, validation.NilOrNotEmpty, clockRule),
		validation.Field(&s.Timezone, validation.By(validTimezone)),
	)
}

// AlertChannel is one outbound destination for a tenant's alerts.
type AlertChannel struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	TenantID   uuid.UUID   `db:"tenant_id" json:"tenantId"`
	Name       string      `db:"name" json:"name"`
	Kind       ChannelKind `db:"kind" json:"kind"`
	WebhookURL string      `db:"webhook_url" json:"webhookUrl"`
	IsActive   bool        `db:"is_active" json:"isActive"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updatedAt"`
}

func (c AlertChannel) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.By(requiredUUID)),
		validation.Field(&c.Kind, validation.Required,
			validation.In(ChannelGoogleChat, ChannelSlack, ChannelWebhook)),
		validation.Field(&c.WebhookURL, validation.Required, validation.Length(8, 2048), is.RequestURL),
	)
}

// AlertLog is one attempted or sent alert on one channel. Rows are never
// deleted; together they form the dedup ledger.
type AlertLog struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	TenantID       uuid.UUID   `db:"tenant_id" json:"tenantId"`
	SubscriptionID *uuid.UUID  `db:"subscription_id" json:"subscriptionId,omitempty"`
	RuleType       RuleType    `db:"rule_type" json:"ruleType"`
	DueDate        time.Time   `db:"due_date" json:"dueDate"`
	ChannelID      uuid.UUID   `db:"channel_id" json:"channelId"`
	Status         AlertStatus `db:"status" json:"status"`
	ResponseCode   *int        `db:"response_code" json:"responseCode,omitempty"`
	ResponseBody   *string     `db:"response_body" json:"responseBody,omitempty"`
	ErrorMessage   *string     `db:"error_message" json:"errorMessage,omitempty"`
	SentAt         *time.Time  `db:"sent_at" json:"sentAt,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updatedAt"`
}

// IsTerminal reports whether the log can no longer change.
func (l *AlertLog) IsTerminal() bool {
	return l.Status == AlertStatusSent || l.Status == AlertStatusFailed
}

// AlertKey identifies one alert occurrence on one channel. It is the dedup
// key of the ledger; SubscriptionID is nil for tenant-level alerts.
type AlertKey struct {
	TenantID       uuid.UUID
	SubscriptionID *uuid.UUID
	RuleType       RuleType
	DueDate        time.Time
	ChannelID      uuid.UUID
}

// AlertCandidate is one alert the evaluator wants delivered. Subscription is
// nil for tenant-level alerts (data quality, monthly summary); those carry
// Gaps or Summary instead.
type AlertCandidate struct {
	TenantID     uuid.UUID
	RuleType     RuleType
	DueDate      time.Time
	Subscription *Subscription
	Gaps         []Subscription
	Summary      *MonthlyAggregate
}

// Key returns the dedup key of the candidate on one channel.
func (c AlertCandidate) Key(channelID uuid.UUID) AlertKey {
	key := AlertKey{
		TenantID:  c.TenantID,
		RuleType:  c.RuleType,
		DueDate:   c.DueDate,
		ChannelID: channelID,
	}
	if c.Subscription != nil {
		id := c.Subscription.ID
		key.SubscriptionID = &id
	}
	return key
}
