package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/renewalwatch/backend/internal/model"
)

type AlertSettingsRepository struct {
	db *sqlx.DB
}

func NewAlertSettingsRepository(db *sqlx.DB) *AlertSettingsRepository {
	return &AlertSettingsRepository{db: db}
}

const alertSettingsColumns = `id, tenant_id, days14_enabled, days7_enabled, days3_enabled, tomorrow_enabled,
	overdue_enabled, data_quality_enabled, monthly_summary_enabled, quiet_hours_start, quiet_hours_end,
	timezone, created_at, updated_at`

// GetOrCreate loads a tenant's settings, inserting the defaults on first
// access. A concurrent insert for the same tenant is absorbed by the
// no-op upsert, which still returns the stored row.
func (r *AlertSettingsRepository) GetOrCreate(ctx context.Context, tenantID uuid.UUID) (*model.AlertSettings, error) {
	var settings model.AlertSettings
	query := `SELECT ` + alertSettingsColumns + ` FROM alert_settings WHERE tenant_id = $1`
	err := r.db.GetContext(ctx, &settings, query, tenantID)
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get alert settings: %w", err)
	}

	d := model.DefaultAlertSettings(tenantID)
	insert := `
		INSERT INTO alert_settings (id, tenant_id, days14_enabled, days7_enabled, days3_enabled, tomorrow_enabled,
			overdue_enabled, data_quality_enabled, monthly_summary_enabled, quiet_hours_start, quiet_hours_end,
			timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id
		RETURNING ` + alertSettingsColumns

	err = r.db.QueryRowxContext(ctx, insert,
		d.ID, d.TenantID, d.Days14Enabled, d.Days7Enabled, d.Days3Enabled, d.TomorrowEnabled,
		d.OverdueEnabled, d.DataQualityEnabled, d.MonthlySummaryEnabled, d.QuietHoursStart, d.QuietHoursEnd,
		d.Timezone,
	).StructScan(&settings)
	if err != nil {
		return nil, fmt.Errorf("create default alert settings: %w", err)
	}
	return &settings, nil
}
