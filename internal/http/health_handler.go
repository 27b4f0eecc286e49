package http

import (
	"context"
	"net/http"

	"github.com/fjod/snapeat/internal/health"
)

type HealthReporter interface {
	Check(ctx context.Context) health.Report
}

// HealthHandler serves GET /health: 200 when every dependency answers,
// 503 otherwise.
type HealthHandler struct {
	checker HealthReporter
}

func NewHealthHandler(checker HealthReporter) *HealthHandler {
	return &HealthHandler{checker: checker}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.checker.Check(r.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, report)
}
