package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gopos/infra/response"
	"github.com/mstgnz/gopos/infra/validate"
	"github.com/mstgnz/gopos/mapper"
	_ "github.com/mstgnz/gopos/mapper/estpos"
	_ "github.com/mstgnz/gopos/mapper/payflexcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock MappingService for testing
type mockMappingService struct {
	mapFunc  func(ctx context.Context, gateway string, req mapper.Request) (mapper.Result, error)
	gateways []string

	lastGateway string
	lastRequest mapper.Request
}

func (m *mockMappingService) Map(ctx context.Context, gateway string, req mapper.Request) (mapper.Result, error) {
	m.lastGateway = gateway
	m.lastRequest = req
	if m.mapFunc != nil {
		return m.mapFunc(ctx, gateway, req)
	}
	return mapper.Result{"status": mapper.TxApproved, "order_id": req.Order.ID}, nil
}

func (m *mockMappingService) Gateways() []string {
	return m.gateways
}

type mockAuditReader struct {
	records   []mapper.AuditRecord
	err       error
	lastLimit int
}

func (m *mockAuditReader) List(ctx context.Context, gateway string, limit int) ([]mapper.AuditRecord, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

// withURLParams attaches chi route params to the request
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestMappingHandler_ListGateways(t *testing.T) {
	service := &mockMappingService{gateways: []string{"estpos", "garanti"}}
	h := NewMappingHandler(service, nil, validate.New())

	w := httptest.NewRecorder()
	h.ListGateways(w, httptest.NewRequest(http.MethodGet, "/v1/gateways", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"estpos", "garanti"}, data["gateways"])
	assert.Len(t, data["operations"], len(mapper.Operations))
}

func TestMappingHandler_MapResponse(t *testing.T) {
	tests := []struct {
		name           string
		operation      string
		body           string
		mapErr         error
		expectedStatus int
		expectCalled   bool
	}{
		{
			name:           "mapped",
			operation:      mapper.OpPayment,
			body:           `{"tx_type":"pay","order":{"id":"ORD-1","amount":10.01,"currency":"TRY"},"raw":{"ProcReturnCode":"00","Response":"Approved"}}`,
			expectedStatus: http.StatusOK,
			expectCalled:   true,
		},
		{
			name:           "invalid_json",
			operation:      mapper.OpPayment,
			body:           `{"raw":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown_body_field",
			operation:      mapper.OpPayment,
			body:           `{"rawdata":{}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid_tx_type",
			operation:      mapper.OpPayment,
			body:           `{"tx_type":"capture","raw":{}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative_amount",
			operation:      mapper.OpPayment,
			body:           `{"order":{"id":"ORD-1","amount":-5},"raw":{}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "numeric_currency",
			operation:      mapper.OpPayment,
			body:           `{"order":{"id":"ORD-1","currency":"949"},"raw":{}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown_operation",
			operation:      "capture",
			body:           `{"raw":{}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unsupported_operation",
			operation:      mapper.OpHistory,
			body:           `{"raw":{}}`,
			mapErr:         mapper.NotSupported("posnet", "history"),
			expectedStatus: http.StatusNotImplemented,
			expectCalled:   true,
		},
		{
			name:           "unknown_gateway",
			operation:      mapper.OpStatus,
			body:           `{"raw":{}}`,
			mapErr:         fmt.Errorf("%w: 'iyzico'", mapper.ErrUnknownGateway),
			expectedStatus: http.StatusNotFound,
			expectCalled:   true,
		},
		{
			name:           "unexpected_error",
			operation:      mapper.OpStatus,
			body:           `{"raw":{}}`,
			mapErr:         errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectCalled:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			service := &mockMappingService{
				mapFunc: func(ctx context.Context, gateway string, req mapper.Request) (mapper.Result, error) {
					called = true
					if tt.mapErr != nil {
						return nil, tt.mapErr
					}
					return mapper.Result{"status": mapper.TxApproved, "order_id": req.Order.ID}, nil
				},
			}
			h := NewMappingHandler(service, nil, validate.New())

			req := httptest.NewRequest(http.MethodPost, "/v1/gateways/estpos/"+tt.operation, strings.NewReader(tt.body))
			req = withURLParams(req, map[string]string{"gateway": "estpos", "operation": tt.operation})
			w := httptest.NewRecorder()

			h.MapResponse(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectCalled, called)

			resp := decodeBody(t, w)
			assert.Equal(t, tt.expectedStatus == http.StatusOK, resp.Success)
			assert.Equal(t, "estpos", resp.Gateway)
			if tt.mapErr != nil {
				assert.Equal(t, tt.mapErr.Error(), resp.Error)
			}
		})
	}
}

func TestMappingHandler_MapResponseForwardsRequest(t *testing.T) {
	service := &mockMappingService{}
	h := NewMappingHandler(service, nil, validate.New())

	body := `{
		"tx_type": "refund_partial",
		"order": {"id": "ORD-7", "amount": 100, "currency": "EUR", "installment": 3, "refund_amount": 40.5},
		"raw": {"ProcReturnCode": "00", "Amount": 40.5},
		"raw_3d": {"mdStatus": "1"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/v1/gateways/payten/3d_payment", strings.NewReader(body))
	req = withURLParams(req, map[string]string{"gateway": "payten", "operation": mapper.Op3DPayment})
	w := httptest.NewRecorder()

	h.MapResponse(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "payten", service.lastGateway)
	got := service.lastRequest
	assert.Equal(t, mapper.Op3DPayment, got.Operation)
	assert.Equal(t, mapper.TxTypeRefundPartial, got.TxType)
	assert.Equal(t, mapper.Order{ID: "ORD-7", Amount: 100, Currency: "EUR", Installment: 3, RefundAmount: 40.5}, got.Order)
	assert.Equal(t, "00", got.Raw["ProcReturnCode"])
	// numbers keep their text until a mapper formats them
	assert.Equal(t, json.Number("40.5"), got.Raw["Amount"])
	assert.Equal(t, "1", got.Raw3D["mdStatus"])
}

func TestMappingHandler_WithService(t *testing.T) {
	service := mapper.NewService()
	h := NewMappingHandler(service, nil, validate.New())

	router := chi.NewRouter()
	router.Post("/v1/gateways/{gateway}/{operation}", h.MapResponse)

	tests := []struct {
		name           string
		path           string
		body           string
		expectedStatus int
		expectedResult string
	}{
		{
			name:           "estpos_alias_payment",
			path:           "/v1/gateways/payten/payment",
			body:           `{"order":{"id":"ORD-1","amount":1.01,"currency":"TRY"},"raw":{"OrderId":"ORD-1","ProcReturnCode":"00","Response":"Approved","TransId":"24099"}}`,
			expectedStatus: http.StatusOK,
			expectedResult: mapper.TxApproved,
		},
		{
			name:           "estpos_declined_is_not_an_error",
			path:           "/v1/gateways/estpos/payment",
			body:           `{"raw":{"ProcReturnCode":"99","Response":"Declined","ErrMsg":"Kart limiti yetersiz"}}`,
			expectedStatus: http.StatusOK,
			expectedResult: mapper.TxDeclined,
		},
		{
			name:           "payflexcp_has_no_payment",
			path:           "/v1/gateways/payflexcp/payment",
			body:           `{"raw":{}}`,
			expectedStatus: http.StatusNotImplemented,
		},
		{
			name:           "unregistered_gateway",
			path:           "/v1/gateways/iyzico/payment",
			body:           `{"raw":{}}`,
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body)))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedResult == "" {
				return
			}

			resp := decodeBody(t, w)
			data, ok := resp.Data.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.expectedResult, data["status"])
		})
	}
}

func TestMappingHandler_ListLogs(t *testing.T) {
	records := []mapper.AuditRecord{
		{ID: "rec-2", Gateway: "garanti", Operation: mapper.OpRefund, Status: mapper.TxDeclined},
		{ID: "rec-1", Gateway: "garanti", Operation: mapper.OpPayment, Status: mapper.TxApproved},
	}

	tests := []struct {
		name           string
		audit          *mockAuditReader
		query          string
		expectedStatus int
		expectedLimit  int
	}{
		{"default_limit", &mockAuditReader{records: records}, "", http.StatusOK, 50},
		{"custom_limit", &mockAuditReader{records: records}, "?limit=10", http.StatusOK, 10},
		{"invalid_limit", &mockAuditReader{records: records}, "?limit=abc", http.StatusOK, 50},
		{"capped_limit", &mockAuditReader{records: records}, "?limit=100000", http.StatusOK, 500},
		{"reader_error", &mockAuditReader{err: errors.New("database is locked")}, "", http.StatusInternalServerError, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMappingHandler(&mockMappingService{}, tt.audit, validate.New())

			req := httptest.NewRequest(http.MethodGet, "/v1/gateways/garanti/logs"+tt.query, nil)
			req = withURLParams(req, map[string]string{"gateway": "garanti"})
			w := httptest.NewRecorder()

			h.ListLogs(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedLimit, tt.audit.lastLimit)

			if tt.expectedStatus != http.StatusOK {
				return
			}
			data, ok := decodeBody(t, w).Data.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, float64(2), data["count"])
			assert.Equal(t, "garanti", data["gateway"])
			assert.Len(t, data["logs"], 2)
		})
	}
}

func TestMappingHandler_ListLogsWithoutAudit(t *testing.T) {
	h := NewMappingHandler(&mockMappingService{}, nil, validate.New())

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/v1/gateways/akbank/logs", nil), map[string]string{"gateway": "akbank"})
	w := httptest.NewRecorder()

	h.ListLogs(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"unsupported", mapper.NotSupported("tosla", "history"), http.StatusNotImplemented},
		{"unknown_gateway", fmt.Errorf("%w: 'x'", mapper.ErrUnknownGateway), http.StatusNotFound},
		{"unknown_operation", fmt.Errorf("%w: 'x'", mapper.ErrUnknownOperation), http.StatusBadRequest},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := mapError(tt.err)
			assert.Equal(t, tt.expected, status)
			assert.NotEmpty(t, message)
		})
	}
}
