package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/renewalwatch/backend/internal/model"
	"github.com/renewalwatch/backend/pkg/datetime"
)

// SubscriptionRepository reads the subscriptions owned by the CRUD layer.
// Soft-deleted rows are excluded explicitly on every query.
type SubscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionSelect = `
	SELECT s.id, s.tenant_id, s.vendor_name, s.service_name, s.status, s.amount, s.currency,
		s.billing_cycle, s.next_renewal_date, s.owner_id, u.full_name AS owner_name,
		s.department_id, d.name AS department_name, s.cost_center
	FROM subscriptions s
	LEFT JOIN users u ON u.id = s.owner_id AND u.tenant_id = s.tenant_id
	LEFT JOIN departments d ON d.id = s.department_id AND d.tenant_id = s.tenant_id`

// FindDueBetween returns subscriptions in status whose next renewal date falls
// in [start, end). Bounds are compared as calendar dates.
func (r *SubscriptionRepository) FindDueBetween(ctx context.Context, tenantID uuid.UUID, start, end time.Time, status model.SubscriptionStatus) ([]model.Subscription, error) {
	var subs []model.Subscription
	query := subscriptionSelect + `
	WHERE s.tenant_id = $1
		AND s.status = $2
		AND s.deleted_at IS NULL
		AND s.next_renewal_date >= $3::date
		AND s.next_renewal_date < $4::date
	ORDER BY s.next_renewal_date ASC, s.vendor_name ASC`
	err := r.db.SelectContext(ctx, &subs, query, tenantID, status,
		start.Format(datetime.DateFormat), end.Format(datetime.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("find subscriptions due: %w", err)
	}
	return subs, nil
}

// FindOverdue returns active subscriptions whose renewal date is strictly
// before the given calendar date.
func (r *SubscriptionRepository) FindOverdue(ctx context.Context, tenantID uuid.UUID, before time.Time) ([]model.Subscription, error) {
	var subs []model.Subscription
	query := subscriptionSelect + `
	WHERE s.tenant_id = $1
		AND s.status = $2
		AND s.deleted_at IS NULL
		AND s.next_renewal_date < $3::date
	ORDER BY s.next_renewal_date ASC, s.vendor_name ASC`
	err := r.db.SelectContext(ctx, &subs, query, tenantID, model.SubscriptionStatusActive,
		before.Format(datetime.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("find overdue subscriptions: %w", err)
	}
	return subs, nil
}

// FindDataQualityGaps returns active subscriptions missing an owner,
// department or cost center.
func (r *SubscriptionRepository) FindDataQualityGaps(ctx context.Context, tenantID uuid.UUID) ([]model.Subscription, error) {
	var subs []model.Subscription
	query := subscriptionSelect + `
	WHERE s.tenant_id = $1
		AND s.status = $2
		AND s.deleted_at IS NULL
		AND (s.owner_id IS NULL OR s.department_id IS NULL OR COALESCE(s.cost_center, '') = '')
	ORDER BY s.vendor_name ASC`
	err := r.db.SelectContext(ctx, &subs, query, tenantID, model.SubscriptionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("find data quality gaps: %w", err)
	}
	return subs, nil
}

// MonthlyAggregate summarises active spend for the monthly summary alert.
// Quarterly and yearly amounts are spread to a monthly equivalent and the
// tenant's most common currency labels the total. Upcoming counts renewal
// dates in the 30 days from today, the tenant-local calendar date.
func (r *SubscriptionRepository) MonthlyAggregate(ctx context.Context, tenantID uuid.UUID, today time.Time) (*model.MonthlyAggregate, error) {
	var agg model.MonthlyAggregate
	query := `
		SELECT
			COUNT(*) AS active_count,
			COALESCE(SUM(CASE s.billing_cycle
				WHEN 'yearly' THEN s.amount / 12
				WHEN 'quarterly' THEN s.amount / 3
				ELSE s.amount END), 0) AS total_monthly_amount,
			COUNT(*) FILTER (WHERE s.next_renewal_date >= $3::date AND s.next_renewal_date < $3::date + 30) AS upcoming_count,
			COALESCE(MODE() WITHIN GROUP (ORDER BY s.currency), 'USD') AS currency
		FROM subscriptions s
		WHERE s.tenant_id = $1 AND s.status = $2 AND s.deleted_at IS NULL`
	err := r.db.GetContext(ctx, &agg, query, tenantID, model.SubscriptionStatusActive,
		today.Format(datetime.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("monthly aggregate: %w", err)
	}
	return &agg, nil
}
