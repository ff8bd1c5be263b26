package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/renewalwatch/backend/internal/model"
)

// Every query takes the tenant id explicitly; nothing here filters by an
// ambient tenant scope.

//go:generate mockery --name=TenantRepositoryInterface --output=../mocks --outpkg=mocks
type TenantRepositoryInterface interface {
	ListActive(ctx context.Context) ([]model.Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
}

//go:generate mockery --name=AlertSettingsRepositoryInterface --output=../mocks --outpkg=mocks
type AlertSettingsRepositoryInterface interface {
	GetOrCreate(ctx context.Context, tenantID uuid.UUID) (*model.AlertSettings, error)
}

//go:generate mockery --name=AlertChannelRepositoryInterface --output=../mocks --outpkg=mocks
type AlertChannelRepositoryInterface interface {
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]model.AlertChannel, error)
}

//go:generate mockery --name=SubscriptionRepositoryInterface --output=../mocks --outpkg=mocks
type SubscriptionRepositoryInterface interface {
	FindDueBetween(ctx context.Context, tenantID uuid.UUID, start, end time.Time, status model.SubscriptionStatus) ([]model.Subscription, error)
	FindOverdue(ctx context.Context, tenantID uuid.UUID, before time.Time) ([]model.Subscription, error)
	FindDataQualityGaps(ctx context.Context, tenantID uuid.UUID) ([]model.Subscription, error)
	MonthlyAggregate(ctx context.Context, tenantID uuid.UUID, today time.Time) (*model.MonthlyAggregate, error)
}

//go:generate mockery --name=AlertLogRepositoryInterface --output=../mocks --outpkg=mocks
type AlertLogRepositoryInterface interface {
	FindLive(ctx context.Context, key model.AlertKey) (*model.AlertLog, error)
	CreatePending(ctx context.Context, log *model.AlertLog) (bool, error)
	MarkSent(ctx context.Context, id uuid.UUID, responseCode int, responseBody string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, responseCode *int, responseBody *string, errMsg string) error
	LastCreatedAt(ctx context.Context, tenantID uuid.UUID, rule model.RuleType) (*time.Time, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.AlertLog, error)
}
