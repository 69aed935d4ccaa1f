package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mstgnz/gopos/infra/logger"
	"github.com/mstgnz/gopos/infra/opensearch"
	"github.com/mstgnz/gopos/infra/response"
	"github.com/spf13/cast"
)

const (
	defaultHours = 24
	maxHours     = 168 // 7 days
)

// LogSearcher defines the search operations over indexed mapping logs
type LogSearcher interface {
	GetOrderLogs(ctx context.Context, gateway, orderID string) ([]opensearch.MappingLog, error)
	GetRecentDeclines(ctx context.Context, gateway string, hours int) ([]opensearch.MappingLog, error)
	GetGatewayStats(ctx context.Context, gateway string, hours int) (map[string]any, error)
}

// LogsHandler handles log search requests backed by OpenSearch
type LogsHandler struct {
	searcher LogSearcher
}

// NewLogsHandler creates a new logs handler, searcher may be nil
func NewLogsHandler(searcher LogSearcher) *LogsHandler {
	return &LogsHandler{
		searcher: searcher,
	}
}

// GetOrderLogs retrieves every mapping logged for an order ID
func (h *LogsHandler) GetOrderLogs(w http.ResponseWriter, r *http.Request) {
	if h.searcher == nil {
		response.Error(w, r, http.StatusServiceUnavailable, "Log search not available", nil)
		return
	}

	gateway := chi.URLParam(r, "gateway")
	orderID := chi.URLParam(r, "orderID")

	if gateway == "" {
		response.Error(w, r, http.StatusBadRequest, "gateway parameter is required", nil)
		return
	}

	if orderID == "" {
		response.Error(w, r, http.StatusBadRequest, "orderID parameter is required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	logs, err := h.searcher.GetOrderLogs(ctx, gateway, orderID)
	if err != nil {
		logger.WithRequest(gateway, middleware.GetReqID(r.Context())).Error("failed to search order logs", err)
		response.Error(w, r, http.StatusInternalServerError, "Failed to retrieve logs", err)
		return
	}

	response.Success(w, r, http.StatusOK, "Logs retrieved successfully", map[string]any{
		"gateway":  gateway,
		"order_id": orderID,
		"count":    len(logs),
		"logs":     logs,
	})
}

// GetDeclineLogs retrieves declined or failed mappings of the last hours
func (h *LogsHandler) GetDeclineLogs(w http.ResponseWriter, r *http.Request) {
	if h.searcher == nil {
		response.Error(w, r, http.StatusServiceUnavailable, "Log search not available", nil)
		return
	}

	gateway := chi.URLParam(r, "gateway")
	hours := parseHours(r)

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	logs, err := h.searcher.GetRecentDeclines(ctx, gateway, hours)
	if err != nil {
		logger.WithRequest(gateway, middleware.GetReqID(r.Context())).Error("failed to search decline logs", err)
		response.Error(w, r, http.StatusInternalServerError, "Failed to get decline logs", err)
		return
	}

	response.Success(w, r, http.StatusOK, "Decline logs retrieved successfully", map[string]any{
		"gateway": gateway,
		"hours":   hours,
		"count":   len(logs),
		"logs":    logs,
	})
}

// GetLogStats aggregates the mapping logs of a gateway
func (h *LogsHandler) GetLogStats(w http.ResponseWriter, r *http.Request) {
	if h.searcher == nil {
		response.Error(w, r, http.StatusServiceUnavailable, "Log search not available", nil)
		return
	}

	gateway := chi.URLParam(r, "gateway")
	hours := parseHours(r)

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	stats, err := h.searcher.GetGatewayStats(ctx, gateway, hours)
	if err != nil {
		logger.WithRequest(gateway, middleware.GetReqID(r.Context())).Error("failed to aggregate logs", err)
		response.Error(w, r, http.StatusInternalServerError, "Failed to retrieve log statistics", err)
		return
	}

	response.Success(w, r, http.StatusOK, "Log statistics retrieved successfully", map[string]any{
		"gateway": gateway,
		"hours":   hours,
		"stats":   stats,
	})
}

// parseHours reads the hours query parameter, falling back to a day
func parseHours(r *http.Request) int {
	hours := cast.ToInt(r.URL.Query().Get("hours"))
	if hours <= 0 || hours > maxHours {
		return defaultHours
	}
	return hours
}
