package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gopos/infra/logger"
	"github.com/mstgnz/gopos/infra/response"
	"github.com/mstgnz/gopos/mapper"
	"github.com/spf13/cast"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// MappingServiceInterface defines the operations the handler needs from the mapping service
type MappingServiceInterface interface {
	Map(ctx context.Context, gateway string, req mapper.Request) (mapper.Result, error)
	Gateways() []string
}

// AuditReader lists stored mapping audit records
type AuditReader interface {
	List(ctx context.Context, gateway string, limit int) ([]mapper.AuditRecord, error)
}

// MapRequest is the body of a mapping call, the operation comes from the path.
// The tx_type rule and the order checks are registered by package validate.
type MapRequest struct {
	TxType mapper.TxType  `json:"tx_type,omitempty" validate:"omitempty,tx_type"`
	Order  mapper.Order   `json:"order"`
	Raw    map[string]any `json:"raw"`
	Raw3D  map[string]any `json:"raw_3d,omitempty"`
}

// MappingHandler exposes the mapping service over HTTP
type MappingHandler struct {
	service  MappingServiceInterface
	audit    AuditReader
	validate *validator.Validate
}

// NewMappingHandler creates a new mapping handler, audit may be nil
func NewMappingHandler(service MappingServiceInterface, audit AuditReader, validate *validator.Validate) *MappingHandler {
	return &MappingHandler{
		service:  service,
		audit:    audit,
		validate: validate,
	}
}

// ListGateways returns every registered gateway identifier and the supported operation names
func (h *MappingHandler) ListGateways(w http.ResponseWriter, r *http.Request) {
	response.Success(w, r, http.StatusOK, "Gateways retrieved", map[string]any{
		"gateways":   h.service.Gateways(),
		"operations": mapper.Operations,
	})
}

// MapResponse maps a raw bank response to the canonical result
func (h *MappingHandler) MapResponse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	gateway := chi.URLParam(r, "gateway")
	operation := chi.URLParam(r, "operation")
	log := logger.WithRequest(gateway, middleware.GetReqID(r.Context())).AddField("operation", operation)

	var body MapRequest
	if err := response.ReadJSON(w, r, &body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validate.Struct(body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "Validation error", err)
		return
	}

	req := mapper.Request{
		Operation: operation,
		TxType:    body.TxType,
		Order:     body.Order,
		Raw:       body.Raw,
		Raw3D:     body.Raw3D,
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "Unknown operation", err)
		return
	}

	result, err := h.service.Map(ctx, gateway, req)
	if err != nil {
		status, message := mapError(err)
		if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
			log.Error(message, err)
		} else {
			log.Debug(message)
		}
		response.Error(w, r, status, message, err)
		return
	}

	log.AddField("status", result.Status()).Debug("response mapped")
	response.Success(w, r, http.StatusOK, "Response mapped", result)
}

// ListLogs returns the latest audit records of a gateway
func (h *MappingHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		response.Error(w, r, http.StatusServiceUnavailable, "Audit log not available", nil)
		return
	}

	gateway := chi.URLParam(r, "gateway")
	if gateway == "" {
		response.Error(w, r, http.StatusBadRequest, "Gateway parameter is required", nil)
		return
	}

	limit := cast.ToInt(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultLogLimit
	}
	limit = min(limit, maxLogLimit)

	records, err := h.audit.List(r.Context(), gateway, limit)
	if err != nil {
		logger.WithRequest(gateway, middleware.GetReqID(r.Context())).Error("failed to list audit records", err)
		response.Error(w, r, http.StatusInternalServerError, "Failed to retrieve logs", err)
		return
	}

	response.Success(w, r, http.StatusOK, "Logs retrieved", map[string]any{
		"gateway": gateway,
		"count":   len(records),
		"limit":   limit,
		"logs":    records,
	})
}

// mapError translates service errors to a status code and message
func mapError(err error) (int, string) {
	switch {
	case mapper.IsUnsupported(err):
		return http.StatusNotImplemented, "Operation not supported by gateway"
	case errors.Is(err, mapper.ErrUnknownGateway):
		return http.StatusNotFound, "Unknown gateway"
	case errors.Is(err, mapper.ErrUnknownOperation):
		return http.StatusBadRequest, "Unknown operation"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "Mapping timed out"
	}
	return http.StatusInternalServerError, "Mapping failed"
}
