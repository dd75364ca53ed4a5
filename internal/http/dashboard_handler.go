package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/daguilastro/Los5deSergito/internal/upstream"
)

// SummaryFetcher is the upstream dashboard surface.
type SummaryFetcher interface {
	DashboardSummary(ctx context.Context) (*upstream.DashboardSummary, error)
}

type DashboardHandler struct {
	upstream SummaryFetcher
	timeout  time.Duration
	logger   *zap.Logger
}

func NewDashboardHandler(upstream SummaryFetcher, timeout time.Duration, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		upstream: upstream,
		timeout:  timeout,
		logger:   logger,
	}
}

// GET /api/v1/dashboard
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	summary, err := h.upstream.DashboardSummary(ctx)
	if err != nil {
		h.logger.Error("dashboard fetch failed",
			zap.String("request_id", getRequestID(r.Context())),
			zap.Error(err))
		respondError(w, http.StatusBadGateway, "upstream_error", "could not load the dashboard")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
