package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gopos/infra/response"
	"github.com/mstgnz/gopos/mapper"
	_ "github.com/mstgnz/gopos/mapper/estpos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAudit struct {
	records []mapper.AuditRecord
}

func (s stubAudit) List(ctx context.Context, gateway string, limit int) ([]mapper.AuditRecord, error) {
	return s.records, nil
}

func newRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	Routes(r, deps)
	return r
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		name string
		deps Deps
	}{
		{name: "service_only", deps: Deps{Service: mapper.NewService()}},
		{name: "with_audit", deps: Deps{Service: mapper.NewService(), Audit: stubAudit{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				newRouter(tt.deps)
			})
		})
	}
}

func TestRoutes_EndpointRegistration(t *testing.T) {
	r := newRouter(Deps{Service: mapper.NewService()})

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		expectCode int
	}{
		{"list_gateways", http.MethodGet, "/gateways", "", http.StatusOK},
		{"map_payment", http.MethodPost, "/gateways/estpos/payment", `{"raw":{"ProcReturnCode":"00","Response":"Approved"}}`, http.StatusOK},
		{"map_unknown_operation", http.MethodPost, "/gateways/estpos/capture", `{"raw":{}}`, http.StatusBadRequest},
		{"logs_without_audit", http.MethodGet, "/gateways/estpos/logs", "", http.StatusServiceUnavailable},
		{"order_logs_without_search", http.MethodGet, "/gateways/estpos/logs/orders/ORD-1", "", http.StatusServiceUnavailable},
		{"declines_without_search", http.MethodGet, "/gateways/estpos/logs/declines", "", http.StatusServiceUnavailable},
		{"log_stats_without_search", http.MethodGet, "/gateways/estpos/logs/stats", "", http.StatusServiceUnavailable},
		{"audit_stats_without_store", http.MethodGet, "/stats", "", http.StatusServiceUnavailable},
		{"get_on_mapping_route", http.MethodGet, "/gateways/estpos/payment", "", http.StatusMethodNotAllowed},
		{"delete_gateways", http.MethodDelete, "/gateways", "", http.StatusMethodNotAllowed},
		{"unknown_route", http.MethodGet, "/payments", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectCode, rec.Code)
		})
	}
}

func TestRoutes_LogsWithAudit(t *testing.T) {
	r := newRouter(Deps{
		Service: mapper.NewService(),
		Audit:   stubAudit{records: []mapper.AuditRecord{{ID: "rec-1", Gateway: "estpos", Operation: mapper.OpPayment}}},
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gateways/estpos/logs?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["count"])
	assert.Equal(t, float64(5), data["limit"])
}
