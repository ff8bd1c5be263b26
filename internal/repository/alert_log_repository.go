package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/renewalwatch/backend/internal/model"
)

// ErrAlertLogNotPending is returned when finalizing a log that is already
// terminal or does not exist. Terminal logs are immutable.
var ErrAlertLogNotPending = errors.New("alert log is not pending")

type AlertLogRepository struct {
	db *sqlx.DB
}

func NewAlertLogRepository(db *sqlx.DB) *AlertLogRepository {
	return &AlertLogRepository{db: db}
}

const alertLogColumns = `id, tenant_id, subscription_id, rule_type, due_date, channel_id, status,
	response_code, response_body, error_message, sent_at, created_at, updated_at`

// FindLive returns the pending or sent log for key, or nil when there is none.
func (r *AlertLogRepository) FindLive(ctx context.Context, key model.AlertKey) (*model.AlertLog, error) {
	var log model.AlertLog
	query := `
		SELECT ` + alertLogColumns + `
		FROM alert_logs
		WHERE tenant_id = $1
			AND subscription_id IS NOT DISTINCT FROM $2
			AND rule_type = $3
			AND due_date = $4
			AND channel_id = $5
			AND status IN ('pending', 'sent')
		LIMIT 1`
	err := r.db.GetContext(ctx, &log, query, key.TenantID, key.SubscriptionID, key.RuleType, key.DueDate, key.ChannelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find live alert log: %w", err)
	}
	return &log, nil
}

// CreatePending inserts a pending log. It reports false, without error, when
// the live-row unique index already holds an entry for the same key.
func (r *AlertLogRepository) CreatePending(ctx context.Context, log *model.AlertLog) (bool, error) {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	log.Status = model.AlertStatusPending

	query := `
		INSERT INTO alert_logs (id, tenant_id, subscription_id, rule_type, due_date, channel_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT DO NOTHING
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		log.ID, log.TenantID, log.SubscriptionID, log.RuleType, log.DueDate, log.ChannelID, log.Status,
	).Scan(&log.CreatedAt, &log.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create pending alert log: %w", err)
	}
	return true, nil
}

func (r *AlertLogRepository) MarkSent(ctx context.Context, id uuid.UUID, responseCode int, responseBody string, sentAt time.Time) error {
	query := `
		UPDATE alert_logs
		SET status = 'sent', response_code = $2, response_body = $3, sent_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`
	return r.finalize(ctx, query, id, responseCode, responseBody, sentAt)
}

func (r *AlertLogRepository) MarkFailed(ctx context.Context, id uuid.UUID, responseCode *int, responseBody *string, errMsg string) error {
	query := `
		UPDATE alert_logs
		SET status = 'failed', response_code = $2, response_body = $3, error_message = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`
	return r.finalize(ctx, query, id, responseCode, responseBody, errMsg)
}

func (r *AlertLogRepository) finalize(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("finalize alert log: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize alert log: %w", err)
	}
	if rows == 0 {
		return ErrAlertLogNotPending
	}
	return nil
}

// LastCreatedAt returns when the tenant last logged an alert of rule, in any status.
func (r *AlertLogRepository) LastCreatedAt(ctx context.Context, tenantID uuid.UUID, rule model.RuleType) (*time.Time, error) {
	var last sql.NullTime
	query := `SELECT MAX(created_at) FROM alert_logs WHERE tenant_id = $1 AND rule_type = $2`
	if err := r.db.GetContext(ctx, &last, query, tenantID, rule); err != nil {
		return nil, fmt.Errorf("last alert time: %w", err)
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}

// ListByTenant returns the tenant's most recent logs first.
func (r *AlertLogRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.AlertLog, error) {
	logs := []model.AlertLog{}
	query := `SELECT ` + alertLogColumns + ` FROM alert_logs WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`
	if err := r.db.SelectContext(ctx, &logs, query, tenantID, limit); err != nil {
		return nil, fmt.Errorf("list alert logs: %w", err)
	}
	return logs, nil
}
