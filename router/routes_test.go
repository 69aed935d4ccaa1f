package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gopos/mapper"
	v1 "github.com/mstgnz/gopos/router/v1"
	"github.com/stretchr/testify/assert"
)

func TestRoutes_Auth(t *testing.T) {
	tests := []struct {
		name       string
		apiKey     string
		authHeader string
		expectCode int
	}{
		{"open_api", "", "", http.StatusOK},
		{"missing_token", "secret", "", http.StatusUnauthorized},
		{"wrong_token", "secret", "Bearer nope", http.StatusUnauthorized},
		{"valid_token", "secret", "Bearer secret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			Routes(r, v1.Deps{Service: mapper.NewService()}, tt.apiKey)

			req := httptest.NewRequest(http.MethodGet, "/v1/gateways", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectCode, rec.Code)
		})
	}
}

func TestPackageImports(t *testing.T) {
	expected := []string{
		"akbank", "asseco", "estpos", "estv3", "garanti", "interpos", "kuveyt", "param",
		"payflex", "payflex-cp", "payflexcp", "payfor", "payten", "posnet", "posnetv1",
		"tosla", "vakifbank-cp", "vakifkatilim",
	}

	gateways := mapper.Gateways()
	for _, gateway := range expected {
		assert.Contains(t, gateways, gateway)
	}
}
