package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/renewalwatch/backend/internal/scheduler"
)

type HealthHandler struct {
	db    Pinger
	queue AlertJobQueue
}

func NewHealthHandler(db Pinger, queue AlertJobQueue) *HealthHandler {
	return &HealthHandler{db: db, queue: queue}
}

type HealthResponse struct {
	Status    string           `json:"status"`
	Database  string           `json:"database"`
	Scheduler scheduler.Status `json:"scheduler"`
}

// Health godoc
// @Summary Health check
// @Description Report database reachability and the alert scheduler's queue
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Database: "ok", Scheduler: h.queue.Status()}
	status := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}
