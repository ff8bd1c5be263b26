package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/renewalwatch/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertChannelRepository_ListActive(t *testing.T) {
	t.Parallel()

	mockDB, mock, _ := sqlmock.New()
	defer func() { _ = mockDB.Close() }()
	repo := NewAlertChannelRepository(sqlx.NewDb(mockDB, "sqlmock"))

	tenantID := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "name", "kind", "webhook_url", "is_active", "created_at", "updated_at"}).
		AddRow(uuid.New().String(), tenantID.String(), "Finance room", "google_chat", "https://chat.googleapis.com/v1/spaces/x", true, now, now).
		AddRow(uuid.New().String(), tenantID.String(), "Ops", "slack", "https://hooks.slack.com/services/x", true, now, now)

	mock.ExpectQuery(`FROM alert_channels\s+WHERE tenant_id = \$1 AND is_active = TRUE`).
		WithArgs(tenantID).
		WillReturnRows(rows)

	channels, err := repo.ListActive(context.Background(), tenantID)

	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, model.ChannelGoogleChat, channels[0].Kind)
	assert.Equal(t, model.ChannelSlack, channels[1].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}
