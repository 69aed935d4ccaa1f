package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mstgnz/gopos/infra/logger"
	"github.com/mstgnz/gopos/infra/response"
)

// StatsProvider reports aggregate counts of the audit store
type StatsProvider interface {
	GetStats(ctx context.Context) (map[string]any, error)
}

// AnalyticsHandler handles audit statistics requests
type AnalyticsHandler struct {
	stats    StatsProvider
	gateways GatewayLister
}

// NewAnalyticsHandler creates a new analytics handler, stats may be nil
func NewAnalyticsHandler(stats StatsProvider, gateways GatewayLister) *AnalyticsHandler {
	return &AnalyticsHandler{
		stats:    stats,
		gateways: gateways,
	}
}

// GetAuditStats returns record counts per gateway next to the registered gateways
func (h *AnalyticsHandler) GetAuditStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		response.Error(w, r, http.StatusServiceUnavailable, "Audit store not available", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	stats, err := h.stats.GetStats(ctx)
	if err != nil {
		logger.WithRequest("", middleware.GetReqID(r.Context())).Error("failed to read audit stats", err)
		response.Error(w, r, http.StatusInternalServerError, "Failed to retrieve stats", err)
		return
	}

	var registered []string
	if h.gateways != nil {
		registered = h.gateways.Gateways()
	}

	response.Success(w, r, http.StatusOK, "Stats retrieved successfully", map[string]any{
		"audit":    stats,
		"gateways": registered,
	})
}
