package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mstgnz/gopos/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "gopos.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, dbPath, store.path)
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestSQLiteStore_RecordAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 4, 9, 10, 0, 0, 0, time.UTC)

	records := []mapper.AuditRecord{
		{
			ID:         "rec-1",
			Gateway:    "estpos",
			Operation:  mapper.OpPayment,
			TxType:     mapper.TxTypePayAuth,
			OrderID:    "ORD-1",
			Status:     mapper.TxApproved,
			Result:     mapper.Result{"status": mapper.TxApproved, "amount": 10.01, "error_code": nil},
			DurationMs: 2,
			CreatedAt:  base,
		},
		{
			ID:           "rec-2",
			Gateway:      "estpos",
			Operation:    mapper.OpRefund,
			OrderID:      "ORD-1",
			Status:       mapper.TxDeclined,
			ErrorCode:    "99",
			ErrorMessage: "Iade tutari hatali",
			CreatedAt:    base.Add(time.Minute),
		},
		{
			ID:        "rec-3",
			Gateway:   "estpos",
			Operation: mapper.OpHistory,
			Error:     "estpos: history is not supported",
			CreatedAt: base.Add(2 * time.Minute),
		},
		{
			ID:        "rec-4",
			Gateway:   "garanti",
			Operation: mapper.OpStatus,
			Status:    mapper.TxApproved,
			CreatedAt: base,
		},
	}
	for _, record := range records {
		require.NoError(t, store.Record(ctx, record))
	}

	list, err := store.List(ctx, "estpos", 10)
	require.NoError(t, err)
	require.Len(t, list, 3)

	// newest first
	assert.Equal(t, "rec-3", list[0].ID)
	assert.Equal(t, "estpos: history is not supported", list[0].Error)
	assert.Nil(t, list[0].Result)

	assert.Equal(t, "99", list[1].ErrorCode)
	assert.Equal(t, "Iade tutari hatali", list[1].ErrorMessage)

	first := list[2]
	assert.Equal(t, mapper.TxTypePayAuth, first.TxType)
	assert.Equal(t, "ORD-1", first.OrderID)
	assert.Equal(t, int64(2), first.DurationMs)
	assert.True(t, base.Equal(first.CreatedAt), first.CreatedAt)
	assert.Equal(t, mapper.TxApproved, first.Result["status"])
	assert.Equal(t, 10.01, first.Result["amount"])
	assert.Contains(t, first.Result, "error_code")

	limited, err := store.List(ctx, "estpos", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	empty, err := store.List(ctx, "tosla", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	// ids are unique
	assert.Error(t, store.Record(ctx, records[0]))
}

func TestSQLiteStore_Purge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, mapper.AuditRecord{ID: "old", Gateway: "param", Operation: mapper.OpStatus, CreatedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, store.Record(ctx, mapper.AuditRecord{ID: "new", Gateway: "param", Operation: mapper.OpStatus, CreatedAt: time.Now()}))

	removed, err := store.Purge(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	list, err := store.List(ctx, "param", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].ID)
}

func TestSQLiteStore_GetStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, gateway := range []string{"akbank", "akbank", "kuveyt"} {
		require.NoError(t, store.Record(ctx, mapper.AuditRecord{
			ID:        gateway + string(rune('a'+i)),
			Gateway:   gateway,
			Operation: mapper.OpPayment,
			CreatedAt: time.Now(),
		}))
	}

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats["total_records"])
	assert.Equal(t, map[string]int{"akbank": 2, "kuveyt": 1}, stats["gateways"])
	assert.Equal(t, store.path, stats["db_path"])
}

func TestSQLiteStore_ConcurrentRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Record(ctx, mapper.AuditRecord{
				ID:        "rec-" + string(rune('A'+i)),
				Gateway:   "payfor",
				Operation: mapper.OpCancel,
				CreatedAt: time.Now(),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	list, err := store.List(ctx, "payfor", 100)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}
