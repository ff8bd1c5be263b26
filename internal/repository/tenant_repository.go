package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/renewalwatch/backend/internal/model"
)

var ErrTenantNotFound = errors.New("tenant not found")

type TenantRepository struct {
	db *sqlx.DB
}

func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// ListActive returns active tenants in creation order, the order the
// scheduler walks them in.
func (r *TenantRepository) ListActive(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	query := `
		SELECT id, name, timezone, is_active, created_at
		FROM tenants
		WHERE is_active = TRUE
		ORDER BY created_at ASC, id ASC`
	err := r.db.SelectContext(ctx, &tenants, query)
	return tenants, err
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	var t model.Tenant
	query := `SELECT id, name, timezone, is_active, created_at FROM tenants WHERE id = $1`
	err := r.db.GetContext(ctx, &t, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
