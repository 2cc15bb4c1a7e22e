package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/db"
)

func newTestSQLiteStore(t *testing.T, maxEvents int) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), &config.StoreConfig{
		Type:      config.StoreTypeSQLite,
		BasePath:  t.TempDir(),
		MaxEvents: maxEvents,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRecordAndQuery(t *testing.T) {
	store := newTestSQLiteStore(t, 100)
	ctx := context.Background()

	store.Record(ctx, "api_call", "GET /users", map[string]any{"status": 200, "endpoint": "/users"})
	time.Sleep(2 * time.Millisecond)
	store.Record(ctx, "test_execution", "go test ./...", nil)

	events, err := store.Query(ctx, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "go test ./...", events[0].Description)
	assert.Equal(t, "test_execution", events[0].Type)
	assert.Nil(t, events[0].Metadata)

	assert.Equal(t, "GET /users", events[1].Description)
	assert.EqualValues(t, 200, events[1].Metadata["status"])
	assert.Equal(t, "/users", events[1].Metadata["endpoint"])

	for _, event := range events {
		assert.NotEmpty(t, event.ID)
		assert.WithinDuration(t, time.Now(), event.Timestamp, 5*time.Second)
	}
}

func TestSQLiteStoreRetentionCap(t *testing.T) {
	store := newTestSQLiteStore(t, 5)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		store.Record(ctx, "api_call", fmt.Sprintf("event-%d", i), nil)
		time.Sleep(2 * time.Millisecond)
	}

	events, err := store.Query(ctx, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, events, 5, "oldest events beyond the cap should be pruned")

	for i, event := range events {
		assert.Equal(t, fmt.Sprintf("event-%d", 7-i), event.Description)
	}

	summary, err := store.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.TotalEvents)
	assert.Equal(t, 8, summary.TotalRecorded)
}

func TestSQLiteStoreQueryFilters(t *testing.T) {
	store := newTestSQLiteStore(t, 100)
	ctx := context.Background()

	base := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	seed := []Event{
		{ID: "1", Timestamp: base, Type: "api_call", Description: "a"},
		{ID: "2", Timestamp: base.Add(1 * time.Hour), Type: "test_execution", Description: "b"},
		{ID: "3", Timestamp: base.Add(2 * time.Hour), Type: "api_call", Description: "c"},
		{ID: "4", Timestamp: base.Add(3 * time.Hour), Type: "deployment", Description: "d"},
	}
	for _, event := range seed {
		require.NoError(t, store.insert(ctx, event))
	}

	tests := []struct {
		name    string
		opts    QueryOptions
		wantIDs []string
	}{
		{
			name:    "no filters returns all newest first",
			opts:    QueryOptions{},
			wantIDs: []string{"4", "3", "2", "1"},
		},
		{
			name:    "type matches exactly",
			opts:    QueryOptions{Type: "api_call"},
			wantIDs: []string{"3", "1"},
		},
		{
			name:    "since is inclusive",
			opts:    QueryOptions{Since: base.Add(1 * time.Hour)},
			wantIDs: []string{"4", "3", "2"},
		},
		{
			name:    "limit applies after sorting",
			opts:    QueryOptions{Limit: 2},
			wantIDs: []string{"4", "3"},
		},
		{
			name:    "combined filters",
			opts:    QueryOptions{Type: "api_call", Since: base.Add(1 * time.Hour), Limit: 1},
			wantIDs: []string{"3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := store.Query(ctx, tt.opts)
			require.NoError(t, err)

			gotIDs := make([]string, 0, len(events))
			for _, event := range events {
				gotIDs = append(gotIDs, event.ID)
			}
			assert.Equal(t, tt.wantIDs, gotIDs)
		})
	}
}

func TestSQLiteStoreSummary(t *testing.T) {
	store := newTestSQLiteStore(t, 100)
	ctx := context.Background()

	store.Record(ctx, "api_call", "GET /users", nil)
	time.Sleep(2 * time.Millisecond)
	store.Record(ctx, "api_call", "GET /orders", nil)
	time.Sleep(2 * time.Millisecond)
	store.Record(ctx, "deployment", "deploy v1.2.3", nil)

	summary, err := store.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalEvents)
	assert.Equal(t, 3, summary.TotalRecorded)
	assert.Equal(t, map[string]int{"api_call": 2, "deployment": 1}, summary.EventCounts)
	require.NotNil(t, summary.LastEvent)
	assert.Equal(t, "deploy v1.2.3", summary.LastEvent.Description)
}

func TestSQLiteStoreSummaryEmpty(t *testing.T) {
	store := newTestSQLiteStore(t, 100)

	summary, err := store.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalEvents)
	assert.Equal(t, 0, summary.TotalRecorded)
	assert.Empty(t, summary.EventCounts)
	assert.Nil(t, summary.LastEvent)
}

func TestSQLiteStoreWALConfigured(t *testing.T) {
	store := newTestSQLiteStore(t, 100)
	require.NoError(t, db.VerifyConfiguration(store.db))
}

func TestSQLiteStoreImport(t *testing.T) {
	store := newTestSQLiteStore(t, 100)
	ctx := context.Background()

	base := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	seed := []Event{
		{ID: "1", Timestamp: base, Type: "api_call", Description: "a"},
		{ID: "2", Timestamp: base.Add(1 * time.Hour), Type: "test_execution", Description: "b"},
		{ID: "3", Timestamp: base.Add(2 * time.Hour), Type: "api_call", Description: "c"},
	}

	imported, err := store.Import(ctx, seed, 9)
	require.NoError(t, err)
	assert.Equal(t, 3, imported)

	events, err := store.Query(ctx, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "3", events[0].ID)
	assert.WithinDuration(t, base.Add(2*time.Hour), events[0].Timestamp, time.Second)

	summary, err := store.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, summary.TotalRecorded, "lifetime counter comes from the source store, not the row count")

	// Re-running skips events already present.
	extra := append(seed, Event{ID: "4", Timestamp: base.Add(3 * time.Hour), Type: "deployment", Description: "d"})
	imported, err = store.Import(ctx, extra, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)

	events, err = store.Query(ctx, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, events, 4)

	summary, err = store.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, summary.TotalRecorded)
}

func TestSQLiteStoreImportKeepsNewestWhenOverCap(t *testing.T) {
	store := newTestSQLiteStore(t, 2)
	ctx := context.Background()

	base := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	seed := []Event{
		{ID: "1", Timestamp: base, Type: "api_call", Description: "oldest"},
		{ID: "2", Timestamp: base.Add(1 * time.Hour), Type: "api_call", Description: "middle"},
		{ID: "3", Timestamp: base.Add(2 * time.Hour), Type: "api_call", Description: "newest"},
	}

	imported, err := store.Import(ctx, seed, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, imported)

	events, err := store.Query(ctx, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "newest", events[0].Description)
	assert.Equal(t, "middle", events[1].Description)
}

func TestSQLiteStoreReopenKeepsData(t *testing.T) {
	cfg := &config.StoreConfig{
		Type:      config.StoreTypeSQLite,
		BasePath:  t.TempDir(),
		MaxEvents: 100,
	}
	ctx := context.Background()

	store, err := NewSQLiteStore(ctx, cfg)
	require.NoError(t, err)
	store.Record(ctx, "api_call", "persisted", nil)
	require.NoError(t, store.Close())

	// Reopening runs migrations again; they must be idempotent.
	reopened, err := NewSQLiteStore(ctx, cfg)
	require.NoError(t, err)
	defer reopened.Close()

	events, err := reopened.Query(ctx, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "persisted", events[0].Description)
}
