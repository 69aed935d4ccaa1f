package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/mstgnz/gopos/mapper"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

const systemLogIndex = indexPrefix + "system-logs"

// MappingLog is the indexed form of a mapping audit record
type MappingLog struct {
	Timestamp    time.Time     `json:"timestamp"`
	RecordID     string        `json:"record_id"`
	Gateway      string        `json:"gateway"`
	Operation    string        `json:"operation"`
	TxType       mapper.TxType `json:"tx_type,omitempty"`
	OrderID      string        `json:"order_id,omitempty"`
	Status       string        `json:"status,omitempty"`
	ErrorCode    string        `json:"error_code,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Error        string        `json:"error,omitempty"`
	Result       string        `json:"result,omitempty"`
	DurationMs   int64         `json:"duration_ms"`
}

// Logger handles OpenSearch logging operations
type Logger struct {
	client *Client
}

// NewLogger creates a new OpenSearch logger
func NewLogger(client *Client) *Logger {
	return &Logger{
		client: client,
	}
}

// newMappingLog converts an audit record, the result is stored sanitized
func newMappingLog(record mapper.AuditRecord) (MappingLog, error) {
	entry := MappingLog{
		Timestamp:    record.CreatedAt,
		RecordID:     record.ID,
		Gateway:      record.Gateway,
		Operation:    record.Operation,
		TxType:       record.TxType,
		OrderID:      record.OrderID,
		Status:       record.Status,
		ErrorCode:    record.ErrorCode,
		ErrorMessage: record.ErrorMessage,
		Error:        record.Error,
		DurationMs:   record.DurationMs,
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if record.Result != nil {
		result, err := json.Marshal(record.Result)
		if err != nil {
			return entry, fmt.Errorf("failed to marshal result: %w", err)
		}
		entry.Result = SanitizeForLog(string(result))
	}

	return entry, nil
}

// AuditRecord converts the indexed form back
func (m MappingLog) AuditRecord() mapper.AuditRecord {
	record := mapper.AuditRecord{
		ID:           m.RecordID,
		Gateway:      m.Gateway,
		Operation:    m.Operation,
		TxType:       m.TxType,
		OrderID:      m.OrderID,
		Status:       m.Status,
		ErrorCode:    m.ErrorCode,
		ErrorMessage: m.ErrorMessage,
		Error:        m.Error,
		DurationMs:   m.DurationMs,
		CreatedAt:    m.Timestamp,
	}
	if m.Result != "" {
		var result mapper.Result
		if err := json.Unmarshal([]byte(m.Result), &result); err == nil {
			record.Result = result
		}
	}
	return record
}

// Record indexes one mapping audit record
func (l *Logger) Record(ctx context.Context, record mapper.AuditRecord) error {
	if !l.client.IsEnabled() {
		return nil
	}

	entry, err := newMappingLog(record)
	if err != nil {
		return err
	}

	logJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      l.client.GetLogIndexName(record.Gateway),
		DocumentID: record.ID,
		Body:       bytes.NewReader(logJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index log: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.String())
	}

	return nil
}

// SearchLogs searches the mapping logs of a gateway, newest first
func (l *Logger) SearchLogs(ctx context.Context, gateway string, query map[string]any, size int) ([]MappingLog, error) {
	if !l.client.IsEnabled() {
		return nil, fmt.Errorf("logging is disabled")
	}

	if size <= 0 {
		size = 100
	}

	searchQuery := map[string]any{
		"query": query,
		"sort": []map[string]any{
			{"timestamp": map[string]string{"order": "desc"}},
		},
		"size": size,
	}

	queryJSON, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{l.client.GetLogIndexName(gateway)},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("opensearch search error: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source MappingLog `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	logs := make([]MappingLog, len(searchResult.Hits.Hits))
	for i, hit := range searchResult.Hits.Hits {
		logs[i] = hit.Source
	}

	return logs, nil
}

// List returns the latest audit records of a gateway
func (l *Logger) List(ctx context.Context, gateway string, limit int) ([]mapper.AuditRecord, error) {
	logs, err := l.SearchLogs(ctx, gateway, map[string]any{"match_all": map[string]any{}}, limit)
	if err != nil {
		return nil, err
	}

	records := make([]mapper.AuditRecord, len(logs))
	for i, entry := range logs {
		records[i] = entry.AuditRecord()
	}
	return records, nil
}

// GetOrderLogs retrieves the mapping logs of one order
func (l *Logger) GetOrderLogs(ctx context.Context, gateway, orderID string) ([]MappingLog, error) {
	query := map[string]any{
		"term": map[string]any{
			"order_id": orderID,
		},
	}

	return l.SearchLogs(ctx, gateway, query, 0)
}

// GetRecentDeclines retrieves declined or failed mappings of the last hours
func (l *Logger) GetRecentDeclines(ctx context.Context, gateway string, hours int) ([]MappingLog, error) {
	query := map[string]any{
		"bool": map[string]any{
			"must": []map[string]any{
				{
					"range": map[string]any{
						"timestamp": map[string]any{
							"gte": fmt.Sprintf("now-%dh", hours),
						},
					},
				},
			},
			"should": []map[string]any{
				{"term": map[string]any{"status": mapper.TxDeclined}},
				{"exists": map[string]any{"field": "error"}},
			},
			"minimum_should_match": 1,
		},
	}

	return l.SearchLogs(ctx, gateway, query, 0)
}

// GetGatewayStats aggregates the mapping logs of a gateway
func (l *Logger) GetGatewayStats(ctx context.Context, gateway string, hours int) (map[string]any, error) {
	if !l.client.IsEnabled() {
		return nil, fmt.Errorf("logging is disabled")
	}

	aggQuery := map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				"timestamp": map[string]any{
					"gte": fmt.Sprintf("now-%dh", hours),
				},
			},
		},
		"aggs": map[string]any{
			"total_mappings": map[string]any{
				"value_count": map[string]any{
					"field": "record_id",
				},
			},
			"statuses": map[string]any{
				"terms": map[string]any{
					"field": "status",
					"size":  10,
				},
			},
			"operations": map[string]any{
				"terms": map[string]any{
					"field": "operation",
					"size":  10,
				},
			},
			"error_count": map[string]any{
				"filter": map[string]any{
					"exists": map[string]any{
						"field": "error",
					},
				},
			},
			"avg_duration": map[string]any{
				"avg": map[string]any{
					"field": "duration_ms",
				},
			},
		},
		"size": 0,
	}

	queryJSON, err := json.Marshal(aggQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal aggregation query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{l.client.GetLogIndexName(gateway)},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return nil, fmt.Errorf("aggregation search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("opensearch aggregation error: %s", res.String())
	}

	var result map[string]any
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode aggregation results: %w", err)
	}

	return result, nil
}

// card data and credentials that may appear in echoed bank payloads
var sensitiveFields = []string{
	"cardNumber", "card_number", "CardNumber", "Pan", "pan", "ccno",
	"cvv", "cvc", "Cvv2", "cv2", "ExpireDate", "expDate", "Expiry",
	"password", "Password", "token", "HashData", "hash",
}

var sensitivePatterns = func() []struct {
	json *regexp.Regexp
	form *regexp.Regexp
	name string
} {
	patterns := make([]struct {
		json *regexp.Regexp
		form *regexp.Regexp
		name string
	}, 0, len(sensitiveFields))
	for _, field := range sensitiveFields {
		patterns = append(patterns, struct {
			json *regexp.Regexp
			form *regexp.Regexp
			name string
		}{
			json: regexp.MustCompile(fmt.Sprintf(`"%s"\s*:\s*"[^"]*"`, regexp.QuoteMeta(field))),
			form: regexp.MustCompile(fmt.Sprintf(`\b%s=[^&"\s]+`, regexp.QuoteMeta(field))),
			name: field,
		})
	}
	return patterns
}()

// SanitizeForLog redacts card data and credentials before logging
func SanitizeForLog(data string) string {
	result := data
	for _, p := range sensitivePatterns {
		result = p.json.ReplaceAllString(result, fmt.Sprintf(`"%s":"***REDACTED***"`, p.name))
		result = p.form.ReplaceAllString(result, p.name+"=***REDACTED***")
	}
	return result
}

// LogSystemEvent logs a system event to OpenSearch
func (l *Logger) LogSystemEvent(ctx context.Context, log any) error {
	if !l.client.IsEnabled() {
		return nil
	}

	logJSON, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal system log: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: systemLogIndex,
		Body:  bytes.NewReader(logJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index system log: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch system log error: %s", res.String())
	}

	return nil
}
