package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settingsColumns = []string{
	"id", "tenant_id", "days14_enabled", "days7_enabled", "days3_enabled", "tomorrow_enabled",
	"overdue_enabled", "data_quality_enabled", "monthly_summary_enabled", "quiet_hours_start", "quiet_hours_end",
	"timezone", "created_at", "updated_at",
}

func TestAlertSettingsRepository_GetOrCreate(t *testing.T) {
	t.Parallel()

	t.Run("existing settings", func(t *testing.T) {
		t.Parallel()

		mockDB, mock, _ := sqlmock.New()
		defer func() { _ = mockDB.Close() }()
		repo := NewAlertSettingsRepository(sqlx.NewDb(mockDB, "sqlmock"))

		tenantID := uuid.New()
		now := time.Now()
		mock.ExpectQuery(`SELECT id, tenant_id, .* FROM alert_settings WHERE tenant_id = \$1`).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows(settingsColumns).
				AddRow(uuid.New().String(), tenantID.String(), true, false, true, true, true, false, true, "22:00", "06:00", "Asia/Tokyo", now, now))

		settings, err := repo.GetOrCreate(context.Background(), tenantID)

		require.NoError(t, err)
		assert.Equal(t, tenantID, settings.TenantID)
		assert.False(t, settings.Days7Enabled)
		require.NotNil(t, settings.QuietHoursStart)
		assert.Equal(t, "22:00", *settings.QuietHoursStart)
		assert.Equal(t, "Asia/Tokyo", settings.Timezone)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("creates defaults on first access", func(t *testing.T) {
		t.Parallel()

		mockDB, mock, _ := sqlmock.New()
		defer func() { _ = mockDB.Close() }()
		repo := NewAlertSettingsRepository(sqlx.NewDb(mockDB, "sqlmock"))

		tenantID := uuid.New()
		now := time.Now()
		mock.ExpectQuery(`FROM alert_settings WHERE tenant_id = \$1`).
			WithArgs(tenantID).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`INSERT INTO alert_settings .* ON CONFLICT \(tenant_id\)`).
			WithArgs(sqlmock.AnyArg(), tenantID, true, true, true, true, true, true, true, nil, nil, "UTC").
			WillReturnRows(sqlmock.NewRows(settingsColumns).
				AddRow(uuid.New().String(), tenantID.String(), true, true, true, true, true, true, true, nil, nil, "UTC", now, now))

		settings, err := repo.GetOrCreate(context.Background(), tenantID)

		require.NoError(t, err)
		assert.True(t, settings.Days14Enabled)
		assert.True(t, settings.MonthlySummaryEnabled)
		assert.Nil(t, settings.QuietHoursStart)
		assert.Nil(t, settings.QuietHoursEnd)
		assert.Equal(t, "UTC", settings.Timezone)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		t.Parallel()

		mockDB, mock, _ := sqlmock.New()
		defer func() { _ = mockDB.Close() }()
		repo := NewAlertSettingsRepository(sqlx.NewDb(mockDB, "sqlmock"))

		tenantID := uuid.New()
		mock.ExpectQuery(`FROM alert_settings WHERE tenant_id = \$1`).
			WithArgs(tenantID).
			WillReturnError(errors.New("timeout"))

		settings, err := repo.GetOrCreate(context.Background(), tenantID)

		assert.Error(t, err)
		assert.Nil(t, settings)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
