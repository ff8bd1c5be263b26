package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/renewalwatch/backend/internal/model"
	"github.com/renewalwatch/backend/internal/scheduler"
	"github.com/renewalwatch/backend/internal/service"
)

// AlertJobQueue for handler testing. Manual runs go through the scheduler
// queue so they never overlap a cron-triggered run.
type AlertJobQueue interface {
	EnqueueTenant(tenantID uuid.UUID, occasion service.Occasion) (string, bool)
	Status() scheduler.Status
}

// AlertLogReader for handler testing
type AlertLogReader interface {
	ListLogs(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.AlertLog, error)
}

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}
