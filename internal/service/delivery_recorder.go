package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/renewalwatch/backend/internal/dispatch"
	"github.com/renewalwatch/backend/internal/model"
	"github.com/renewalwatch/backend/internal/repository"
)

// Reservation is the answer to Reserve. When Reserved is false the key is
// already pending or sent and must not be dispatched again; LogID then
// points at the existing row if one was found.
type Reservation struct {
	LogID    uuid.UUID
	Reserved bool
}

// DeliveryRecorder owns the alert log ledger. A key is reserved as pending
// before any HTTP call and finalized afterwards, so a crash between the two
// leaves a pending row that blocks a re-send.
type DeliveryRecorder struct {
	logs   repository.AlertLogRepositoryInterface
	logger *slog.Logger
	now    func() time.Time
}

func NewDeliveryRecorder(logs repository.AlertLogRepositoryInterface, logger *slog.Logger) *DeliveryRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeliveryRecorder{logs: logs, logger: logger, now: time.Now}
}

// Reserve claims key for dispatch.
func (r *DeliveryRecorder) Reserve(ctx context.Context, key model.AlertKey) (Reservation, error) {
	existing, err := r.logs.FindLive(ctx, key)
	if err != nil {
		return Reservation{}, fmt.Errorf("check alert ledger: %w", err)
	}
	if existing != nil {
		return Reservation{LogID: existing.ID}, nil
	}

	log := &model.AlertLog{
		ID:             uuid.New(),
		TenantID:       key.TenantID,
		SubscriptionID: key.SubscriptionID,
		RuleType:       key.RuleType,
		DueDate:        key.DueDate,
		ChannelID:      key.ChannelID,
	}
	created, err := r.logs.CreatePending(ctx, log)
	if err != nil {
		return Reservation{}, fmt.Errorf("reserve alert: %w", err)
	}
	if !created {
		// Lost the race to a concurrent writer.
		return Reservation{}, nil
	}
	return Reservation{LogID: log.ID, Reserved: true}, nil
}

// Finalize records the dispatch outcome on a pending log. Errors are logged
// and swallowed; the row then stays pending.
func (r *DeliveryRecorder) Finalize(ctx context.Context, logID uuid.UUID, result dispatch.Result) {
	var err error
	if result.Sent() {
		code := 0
		if result.ResponseCode != nil {
			code = *result.ResponseCode
		}
		body := ""
		if result.ResponseBody != nil {
			body = *result.ResponseBody
		}
		err = r.logs.MarkSent(ctx, logID, code, body, r.now())
	} else {
		err = r.logs.MarkFailed(ctx, logID, result.ResponseCode, result.ResponseBody, result.ErrorMessage())
	}
	if err != nil {
		r.logger.Error("failed to finalize alert log",
			"log_id", logID,
			"status", result.Status,
			"error", err,
		)
	}
}

// LastAlertAt returns the tenant's most recent log time for rule.
func (r *DeliveryRecorder) LastAlertAt(ctx context.Context, tenantID uuid.UUID, rule model.RuleType) (*time.Time, error) {
	return r.logs.LastCreatedAt(ctx, tenantID, rule)
}
