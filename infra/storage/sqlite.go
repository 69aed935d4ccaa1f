package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mstgnz/gopos/mapper"
)

// SQLiteStore keeps mapping audit records in SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// retryOperation executes a database operation with retry logic for SQLITE_BUSY errors
func (s *SQLiteStore) retryOperation(operation func() error, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if !strings.Contains(err.Error(), "SQLITE_BUSY") && !strings.Contains(err.Error(), "database is locked") {
			return err
		}

		lastErr = err
		if attempt < maxRetries {
			// 10ms, 20ms, 40ms
			backoff := time.Duration(10*(1<<attempt)) * time.Millisecond
			log.Printf("SQLite busy, retrying in %v (attempt %d/%d)", backoff, attempt+1, maxRetries+1)
			time.Sleep(backoff)
		}
	}

	return fmt.Errorf("operation failed after %d retries, last error: %w", maxRetries+1, lastErr)
}

// NewSQLiteStore opens (or creates) the audit database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_timeout=20000&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:   db,
		path: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS mapping_logs (
		id TEXT PRIMARY KEY,
		gateway TEXT NOT NULL,
		operation TEXT NOT NULL,
		tx_type TEXT,
		order_id TEXT,
		status TEXT,
		error_code TEXT,
		error_message TEXT,
		error TEXT,
		result TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_mapping_logs_gateway ON mapping_logs(gateway, created_at);
	CREATE INDEX IF NOT EXISTS idx_mapping_logs_order ON mapping_logs(order_id);
	`

	_, err := s.db.Exec(query)
	return err
}

// Record stores one audit record
func (s *SQLiteStore) Record(ctx context.Context, record mapper.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []byte
	if record.Result != nil {
		var err error
		if result, err = json.Marshal(record.Result); err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
	}

	return s.retryOperation(func() error {
		query := `
		INSERT INTO mapping_logs (id, gateway, operation, tx_type, order_id, status, error_code, error_message, error, result, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		_, err := s.db.ExecContext(ctx, query,
			record.ID,
			record.Gateway,
			record.Operation,
			string(record.TxType),
			record.OrderID,
			record.Status,
			record.ErrorCode,
			record.ErrorMessage,
			record.Error,
			string(result),
			record.DurationMs,
			record.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to save mapping log: %w", err)
		}
		return nil
	}, 3)
}

// List returns the latest records of a gateway, newest first
func (s *SQLiteStore) List(ctx context.Context, gateway string, limit int) ([]mapper.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}

	query := `
	SELECT id, gateway, operation, tx_type, order_id, status, error_code, error_message, error, result, duration_ms, created_at
	FROM mapping_logs
	WHERE gateway = ?
	ORDER BY created_at DESC, rowid DESC
	LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, gateway, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query mapping logs: %w", err)
	}
	defer rows.Close()

	records := []mapper.AuditRecord{}
	for rows.Next() {
		var (
			record mapper.AuditRecord
			txType string
			result string
		)
		if err := rows.Scan(
			&record.ID,
			&record.Gateway,
			&record.Operation,
			&txType,
			&record.OrderID,
			&record.Status,
			&record.ErrorCode,
			&record.ErrorMessage,
			&record.Error,
			&result,
			&record.DurationMs,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		record.TxType = mapper.TxType(txType)

		if result != "" {
			if err := json.Unmarshal([]byte(result), &record.Result); err != nil {
				log.Printf("Warning: failed to unmarshal result of mapping log %s: %v", record.ID, err)
			}
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// Purge deletes records older than the retention window and returns how many were removed
func (s *SQLiteStore) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	err := s.retryOperation(func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM mapping_logs WHERE created_at < ?`, time.Now().UTC().Add(-retention))
		if err != nil {
			return fmt.Errorf("failed to purge mapping logs: %w", err)
		}
		removed, err = result.RowsAffected()
		return err
	}, 3)

	return removed, err
}

// GetStats returns record counts per gateway and the database size
func (s *SQLiteStore) GetStats(ctx context.Context) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[string]any)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM mapping_logs").Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count mapping logs: %w", err)
	}
	stats["total_records"] = total

	rows, err := s.db.QueryContext(ctx, "SELECT gateway, COUNT(*) FROM mapping_logs GROUP BY gateway ORDER BY gateway")
	if err != nil {
		return nil, fmt.Errorf("failed to count gateways: %w", err)
	}
	defer rows.Close()

	perGateway := make(map[string]int)
	for rows.Next() {
		var (
			gateway string
			count   int
		)
		if err := rows.Scan(&gateway, &count); err != nil {
			return nil, fmt.Errorf("failed to scan gateway count: %w", err)
		}
		perGateway[gateway] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gateway rows: %w", err)
	}
	stats["gateways"] = perGateway

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats["db_size_bytes"] = fileInfo.Size()
	}
	stats["db_path"] = s.path

	return stats, nil
}

// Ping checks the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
