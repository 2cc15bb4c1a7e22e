package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/db"
	"github.com/jingkaihe/hindsight/pkg/db/migrations"
	"github.com/jingkaihe/hindsight/pkg/logger"
)

// SQLiteStore persists events in a SQLite database. SQLite's own
// locking replaces the advisory lock file the JSON store needs, and the
// retention cap is enforced inside the insert transaction.
type SQLiteStore struct {
	db        *sqlx.DB
	maxEvents int
}

type dbEvent struct {
	ID          string    `db:"id"`
	Timestamp   time.Time `db:"timestamp"`
	EventType   string    `db:"event_type"`
	Description string    `db:"description"`
	Metadata    string    `db:"metadata"`
}

func (e dbEvent) toEvent(ctx context.Context) Event {
	event := Event{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		Type:        e.EventType,
		Description: e.Description,
	}
	if e.Metadata != "" {
		metadata := map[string]any{}
		if err := json.Unmarshal([]byte(e.Metadata), &metadata); err != nil {
			logger.G(ctx).WithError(err).WithField("event_id", e.ID).Warn("failed to unmarshal event metadata")
		} else if len(metadata) > 0 {
			event.Metadata = metadata
		}
	}
	return event
}

// NewSQLiteStore opens events.db beneath the configured base path and
// applies pending migrations.
func NewSQLiteStore(ctx context.Context, cfg *config.StoreConfig) (*SQLiteStore, error) {
	database, err := db.Open(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open event database")
	}

	runner := db.NewMigrationRunner(database)
	if err := runner.Run(ctx, migrations.All()); err != nil {
		database.Close()
		return nil, errors.Wrap(err, "failed to migrate event database")
	}

	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}

	return &SQLiteStore{db: database, maxEvents: maxEvents}, nil
}

// Record inserts an event and prunes past the retention cap in one
// transaction. Failures are logged and swallowed.
func (s *SQLiteStore) Record(ctx context.Context, eventType, description string, metadata map[string]any) {
	event := Event{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Type:        eventType,
		Description: description,
		Metadata:    metadata,
	}

	if err := s.insert(ctx, event); err != nil {
		logger.G(ctx).WithError(err).WithField("event_type", eventType).Warn("failed to record event")
	}
}

func (s *SQLiteStore) insert(ctx context.Context, event Event) error {
	metadataJSON := "{}"
	if len(event.Metadata) > 0 {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return errors.Wrap(err, "failed to marshal event metadata")
		}
		metadataJSON = string(data)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO events (id, timestamp, event_type, description, metadata) VALUES (?, ?, ?, ?, ?)",
		event.ID, event.Timestamp, event.Type, event.Description, metadataJSON)
	if err != nil {
		return errors.Wrap(err, "failed to insert event")
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE store_meta SET value = value + 1 WHERE key = 'total_recorded'")
	if err != nil {
		return errors.Wrap(err, "failed to update recorded counter")
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM events WHERE id NOT IN (
			SELECT id FROM events ORDER BY timestamp DESC, rowid DESC LIMIT ?
		)`, s.maxEvents)
	if err != nil {
		return errors.Wrap(err, "failed to prune events")
	}

	return tx.Commit()
}

// Import inserts events copied from another store, preserving their
// IDs and timestamps, and raises the lifetime counter to at least
// totalRecorded. Events already present are skipped so the import can
// be re-run safely.
func (s *SQLiteStore) Import(ctx context.Context, evts []Event, totalRecorded int) (int, error) {
	imported := 0
	for _, event := range evts {
		var exists int
		err := s.db.GetContext(ctx, &exists, "SELECT COUNT(*) FROM events WHERE id = ?", event.ID)
		if err != nil {
			return imported, errors.Wrapf(err, "failed to check event %s", event.ID)
		}
		if exists > 0 {
			continue
		}
		if err := s.insert(ctx, event); err != nil {
			return imported, errors.Wrapf(err, "failed to import event %s", event.ID)
		}
		imported++
	}

	_, err := s.db.ExecContext(ctx,
		"UPDATE store_meta SET value = MAX(value, ?) WHERE key = 'total_recorded'", totalRecorded)
	if err != nil {
		return imported, errors.Wrap(err, "failed to update recorded counter")
	}
	return imported, nil
}

// Query returns the stored events matching opts, newest first.
func (s *SQLiteStore) Query(ctx context.Context, opts QueryOptions) ([]Event, error) {
	query := "SELECT id, timestamp, event_type, description, metadata FROM events"

	var conditions []string
	var args []any
	if opts.Type != "" {
		conditions = append(conditions, "event_type = ?")
		args = append(args, opts.Type)
	}
	if !opts.Since.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, opts.Since)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	var rows []dbEvent
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to query events")
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toEvent(ctx))
	}
	return events, nil
}

// Summary aggregates the retained events plus the lifetime total.
func (s *SQLiteStore) Summary(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		EventCounts: make(map[string]int),
		Timestamp:   time.Now(),
	}

	if err := s.db.GetContext(ctx, &summary.TotalEvents, "SELECT COUNT(*) FROM events"); err != nil {
		return nil, errors.Wrap(err, "failed to count events")
	}

	err := s.db.GetContext(ctx, &summary.TotalRecorded,
		"SELECT value FROM store_meta WHERE key = 'total_recorded'")
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "failed to read recorded counter")
	}

	var counts []struct {
		EventType string `db:"event_type"`
		Count     int    `db:"count"`
	}
	err = s.db.SelectContext(ctx, &counts,
		"SELECT event_type, COUNT(*) AS count FROM events GROUP BY event_type")
	if err != nil {
		return nil, errors.Wrap(err, "failed to count events by type")
	}
	for _, c := range counts {
		summary.EventCounts[c.EventType] = c.Count
	}

	var last dbEvent
	err = s.db.GetContext(ctx, &last,
		"SELECT id, timestamp, event_type, description, metadata FROM events ORDER BY timestamp DESC, rowid DESC LIMIT 1")
	if err == nil {
		event := last.toEvent(ctx)
		summary.LastEvent = &event
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "failed to read last event")
	}

	return summary, nil
}

func (s *SQLiteStore) Close() error {
	return errors.Wrap(s.db.Close(), "failed to close event database")
}
