package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/renewalwatch/backend/internal/model"
)

type AlertChannelRepository struct {
	db *sqlx.DB
}

func NewAlertChannelRepository(db *sqlx.DB) *AlertChannelRepository {
	return &AlertChannelRepository{db: db}
}

func (r *AlertChannelRepository) ListActive(ctx context.Context, tenantID uuid.UUID) ([]model.AlertChannel, error) {
	var channels []model.AlertChannel
	query := `
		SELECT id, tenant_id, name, kind, webhook_url, is_active, created_at, updated_at
		FROM alert_channels
		WHERE tenant_id = $1 AND is_active = TRUE
		ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &channels, query, tenantID)
	return channels, err
}
