package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/renewalwatch/backend/internal/apperror"
	_ "github.com/renewalwatch/backend/internal/model" // swagger types
	"github.com/renewalwatch/backend/internal/service"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 200
)

type AlertHandler struct {
	queue  AlertJobQueue
	logs   AlertLogReader
	logger *slog.Logger
}

func NewAlertHandler(queue AlertJobQueue, logs AlertLogReader, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{queue: queue, logs: logs, logger: logger}
}

// EnqueueResponse is returned by the manual run endpoints. Queued is false
// when an identical job was already waiting or running.
type EnqueueResponse struct {
	JobID  string `json:"jobId"`
	Queued bool   `json:"queued"`
}

// RunDaily godoc
// @Summary Run daily alerts
// @Description Queue a daily alert run (lead-time, overdue and data-quality rules) for one tenant
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Success 202 {object} EnqueueResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /tenants/{tenantID}/alerts/run [post]
func (h *AlertHandler) RunDaily(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, service.OccasionDaily)
}

// RunMonthlySummary godoc
// @Summary Send monthly summary
// @Description Queue a monthly summary run for one tenant
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Success 202 {object} EnqueueResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /tenants/{tenantID}/alerts/monthly-summary [post]
func (h *AlertHandler) RunMonthlySummary(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, service.OccasionMonthly)
}

func (h *AlertHandler) enqueue(w http.ResponseWriter, r *http.Request, occasion service.Occasion) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		respondAppError(w, apperror.BadRequest("invalid tenant ID"))
		return
	}
	if err := authorizeTenant(r.Context(), tenantID); err != nil {
		respondAppError(w, err)
		return
	}

	jobID, queued := h.queue.EnqueueTenant(tenantID, occasion)
	h.logger.Info("Manual alert run requested",
		slog.String("job_id", jobID),
		slog.Bool("queued", queued),
		slog.String("user_id", GetUserID(r.Context()).String()))

	respondJSON(w, http.StatusAccepted, EnqueueResponse{JobID: jobID, Queued: queued})
}

// ListLogs godoc
// @Summary List alert logs
// @Description Get a tenant's most recent alert log entries, newest first
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param tenantId query string true "Tenant ID"
// @Param limit query int false "Maximum entries (default 50, max 200)"
// @Success 200 {array} model.AlertLog
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /alerts/logs [get]
func (h *AlertHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tenantID, err := uuid.Parse(q.Get("tenantId"))
	if err != nil {
		respondAppError(w, apperror.ValidationError("tenantId", "tenantId must be a valid UUID"))
		return
	}
	if err := authorizeTenant(r.Context(), tenantID); err != nil {
		respondAppError(w, err)
		return
	}
	limit, err := parseLimit(q.Get("limit"), defaultLogLimit, maxLogLimit)
	if err != nil {
		respondAppError(w, err)
		return
	}

	logs, err := h.logs.ListLogs(r.Context(), tenantID, limit)
	if err != nil {
		h.logger.Error("Failed to list alert logs", slog.Any("error", err))
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, logs)
}
