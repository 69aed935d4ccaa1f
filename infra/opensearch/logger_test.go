package opensearch

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/mstgnz/gopos/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, enabled bool) (*Logger, *fakeServer) {
	t.Helper()
	fs := newFakeServer(t)
	client, err := NewClient(fs.config(enabled))
	require.NoError(t, err)
	return NewLogger(client), fs
}

func TestLogger_Record(t *testing.T) {
	logger, fs := newTestLogger(t, true)
	createdAt := time.Date(2024, 4, 9, 10, 30, 0, 0, time.UTC)

	err := logger.Record(context.Background(), mapper.AuditRecord{
		ID:         "rec-1",
		Gateway:    "estpos",
		Operation:  mapper.OpPayment,
		TxType:     mapper.TxTypePayAuth,
		OrderID:    "ORD-1",
		Status:     mapper.TxApproved,
		DurationMs: 3,
		CreatedAt:  createdAt,
		Result: mapper.Result{
			"status": mapper.TxApproved,
			"all":    map[string]any{"Pan": "4355084355084358", "ProcReturnCode": "00"},
		},
	})
	require.NoError(t, err)

	indexed := fs.find(http.MethodPut, "/gopos-estpos-mappings/_doc/rec-1")
	require.Len(t, indexed, 1)

	var doc MappingLog
	require.NoError(t, json.Unmarshal([]byte(indexed[0].Body), &doc))
	assert.Equal(t, "rec-1", doc.RecordID)
	assert.Equal(t, mapper.OpPayment, doc.Operation)
	assert.Equal(t, mapper.TxTypePayAuth, doc.TxType)
	assert.True(t, createdAt.Equal(doc.Timestamp))
	assert.NotContains(t, doc.Result, "4355084355084358")
	assert.Contains(t, doc.Result, `"Pan":"***REDACTED***"`)
	assert.Contains(t, doc.Result, `"ProcReturnCode":"00"`)
}

func TestLogger_RecordDisabled(t *testing.T) {
	logger, fs := newTestLogger(t, false)

	err := logger.Record(context.Background(), mapper.AuditRecord{ID: "rec-1", Gateway: "garanti", Operation: mapper.OpStatus})
	require.NoError(t, err)
	assert.Empty(t, fs.find(http.MethodPut, "/gopos-garanti-mappings/_doc/rec-1"))

	_, err = logger.List(context.Background(), "garanti", 10)
	assert.Error(t, err)
}

func TestLogger_List(t *testing.T) {
	logger, fs := newTestLogger(t, true)
	fs.searchResponse = `{
		"hits": {
			"total": {"value": 2},
			"hits": [
				{"_source": {"timestamp": "2024-04-09T10:31:00Z", "record_id": "rec-2", "gateway": "kuveyt", "operation": "refund", "status": "declined", "error_code": "51", "error_message": "Yetersiz bakiye", "duration_ms": 4}},
				{"_source": {"timestamp": "2024-04-09T10:30:00Z", "record_id": "rec-1", "gateway": "kuveyt", "operation": "payment", "tx_type": "pay", "status": "approved", "result": "{\"status\":\"approved\",\"order_id\":\"ORD-1\"}"}}
			]
		}
	}`

	records, err := logger.List(context.Background(), "kuveyt", 5)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "rec-2", records[0].ID)
	assert.Equal(t, "51", records[0].ErrorCode)
	assert.Equal(t, "Yetersiz bakiye", records[0].ErrorMessage)
	assert.Equal(t, int64(4), records[0].DurationMs)
	assert.Nil(t, records[0].Result)

	assert.Equal(t, mapper.TxTypePayAuth, records[1].TxType)
	assert.Equal(t, "ORD-1", records[1].Result["order_id"])
	assert.Equal(t, time.Date(2024, 4, 9, 10, 30, 0, 0, time.UTC), records[1].CreatedAt.UTC())

	searches := fs.find(http.MethodPost, "/gopos-kuveyt-mappings/_search")
	require.Len(t, searches, 1)

	var query map[string]any
	require.NoError(t, json.Unmarshal([]byte(searches[0].Body), &query))
	assert.Equal(t, float64(5), query["size"])
	assert.Contains(t, query["query"], "match_all")
	assert.NotEmpty(t, query["sort"])
}

func TestLogger_SearchError(t *testing.T) {
	logger, fs := newTestLogger(t, true)
	fs.searchStatus = http.StatusBadRequest
	fs.searchResponse = `{"error":{"type":"index_not_found_exception"}}`

	_, err := logger.GetOrderLogs(context.Background(), "param", "ORD-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index_not_found_exception")
}

func TestLogger_GetRecentDeclines(t *testing.T) {
	logger, fs := newTestLogger(t, true)

	logs, err := logger.GetRecentDeclines(context.Background(), "posnet", 24)
	require.NoError(t, err)
	assert.Empty(t, logs)

	searches := fs.find(http.MethodPost, "/gopos-posnet-mappings/_search")
	require.Len(t, searches, 1)
	assert.Contains(t, searches[0].Body, `"now-24h"`)
	assert.Contains(t, searches[0].Body, `"declined"`)
}

func TestLogger_GetGatewayStats(t *testing.T) {
	logger, fs := newTestLogger(t, true)
	fs.searchResponse = `{"hits":{"total":{"value":7},"hits":[]},"aggregations":{"total_mappings":{"value":7}}}`

	stats, err := logger.GetGatewayStats(context.Background(), "tosla", 12)
	require.NoError(t, err)
	assert.Contains(t, stats, "aggregations")

	searches := fs.find(http.MethodPost, "/gopos-tosla-mappings/_search")
	require.Len(t, searches, 1)
	assert.Contains(t, searches[0].Body, `"aggs"`)
	assert.Contains(t, searches[0].Body, `"now-12h"`)
}

func TestLogger_LogSystemEvent(t *testing.T) {
	logger, fs := newTestLogger(t, true)

	err := logger.LogSystemEvent(context.Background(), map[string]any{"level": "INFO", "message": "started"})
	require.NoError(t, err)

	events := fs.find(http.MethodPost, "/gopos-system-logs/_doc")
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Body, `"started"`)
}

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json_card_fields",
			input:    `{"cardNumber":"4111111111111111","cvv":"123","amount":"10.01"}`,
			expected: `{"cardNumber":"***REDACTED***","cvv":"***REDACTED***","amount":"10.01"}`,
		},
		{
			name:     "json_with_spaces",
			input:    `{"Pan" : "4355084355084358", "ProcReturnCode": "00"}`,
			expected: `{"Pan":"***REDACTED***", "ProcReturnCode": "00"}`,
		},
		{
			name:     "form_encoded",
			input:    `ccno=4111111111111111&cv2=123&orderid=1`,
			expected: `ccno=***REDACTED***&cv2=***REDACTED***&orderid=1`,
		},
		{
			name:     "nothing_sensitive",
			input:    `{"status":"approved","order_id":"ORD-1"}`,
			expected: `{"status":"approved","order_id":"ORD-1"}`,
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeForLog(tt.input))
		})
	}
}
