package opensearch

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mstgnz/gopos/infra/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeServer answers the small part of the OpenSearch API the client uses
type fakeServer struct {
	*httptest.Server

	mu             sync.Mutex
	requests       []recordedRequest
	existing       map[string]bool
	searchResponse string
	searchStatus   int
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	fs := &fakeServer{
		existing:       map[string]bool{"": true},
		searchResponse: `{"hits":{"total":{"value":0},"hits":[]}}`,
		searchStatus:   http.StatusOK,
	}

	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		fs.mu.Lock()
		fs.requests = append(fs.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		exists := fs.existing[strings.Trim(r.URL.Path, "/")]
		searchResponse, searchStatus := fs.searchResponse, fs.searchStatus
		fs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/":
			_, _ = w.Write([]byte(`{"version":{"number":"2.11.0","distribution":"opensearch"}}`))
		case r.Method == http.MethodHead:
			if exists {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		case strings.HasSuffix(r.URL.Path, "/_search"):
			w.WriteHeader(searchStatus)
			_, _ = w.Write([]byte(searchResponse))
		case strings.Contains(r.URL.Path, "/_doc"):
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"result":"created"}`))
		case r.Method == http.MethodPut:
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"unexpected request"}`))
		}
	}))
	t.Cleanup(fs.Close)

	return fs
}

// find returns the recorded requests matching method and path
func (fs *fakeServer) find(method, path string) []recordedRequest {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var found []recordedRequest
	for _, r := range fs.requests {
		if r.Method == method && r.Path == path {
			found = append(found, r)
		}
	}
	return found
}

func (fs *fakeServer) config(enabled bool) *config.AppConfig {
	return &config.AppConfig{
		OpenSearchURL: fs.URL,
		Environment:   "test",
		EnableLogging: enabled,
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name string
		user string
		pass string
	}{
		{name: "no_auth"},
		{name: "with_auth", user: "admin", pass: "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFakeServer(t)
			cfg := fs.config(true)
			cfg.OpenSearchUser = tt.user
			cfg.OpenSearchPass = tt.pass

			client, err := NewClient(cfg)
			require.NoError(t, err)
			require.NotNil(t, client)
			assert.NotNil(t, client.GetClient())
			assert.True(t, client.IsEnabled())
		})
	}
}

func TestNewClientCreatesMissingIndices(t *testing.T) {
	fs := newFakeServer(t)
	fs.existing["gopos-estpos-mappings"] = true

	_, err := NewClient(fs.config(true), "akbank", "estpos")
	require.NoError(t, err)

	assert.Len(t, fs.find(http.MethodHead, "/gopos-akbank-mappings"), 1)
	assert.Len(t, fs.find(http.MethodHead, "/gopos-estpos-mappings"), 1)

	created := fs.find(http.MethodPut, "/gopos-akbank-mappings")
	require.Len(t, created, 1)
	assert.Contains(t, created[0].Body, `"record_id"`)
	assert.Contains(t, created[0].Body, `"number_of_shards": 1`)

	assert.Empty(t, fs.find(http.MethodPut, "/gopos-estpos-mappings"))
}

func TestGetLogIndexName(t *testing.T) {
	client := &Client{config: &config.AppConfig{}}

	tests := []struct {
		gateway  string
		expected string
	}{
		{"estpos", "gopos-estpos-mappings"},
		{"payflex-cp", "gopos-payflex-cp-mappings"},
		{"", "gopos--mappings"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, client.GetLogIndexName(tt.gateway))
		})
	}
}

func TestIsEnabled(t *testing.T) {
	assert.True(t, (&Client{config: &config.AppConfig{EnableLogging: true}}).IsEnabled())
	assert.False(t, (&Client{config: &config.AppConfig{EnableLogging: false}}).IsEnabled())
}

func TestPing(t *testing.T) {
	fs := newFakeServer(t)

	client, err := NewClient(fs.config(true))
	require.NoError(t, err)
	assert.NoError(t, client.Ping(t.Context()))

	fs.mu.Lock()
	fs.existing[""] = false
	fs.mu.Unlock()
	assert.Error(t, client.Ping(t.Context()))
}

func TestCreateLogIndexError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode(map[string]any{"version": map[string]any{"number": "2.11.0"}})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"resource_already_exists_exception"}`))
	}))
	defer server.Close()

	client, err := NewClient(&config.AppConfig{OpenSearchURL: server.URL})
	require.NoError(t, err)

	err = client.setupIndices(t.Context(), []string{"garanti"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gopos-garanti-mappings")
}
