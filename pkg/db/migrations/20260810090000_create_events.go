package migrations

import (
	"database/sql"

	"github.com/jingkaihe/hindsight/pkg/db"
	"github.com/pkg/errors"
)

// Migration20260810090000CreateEvents creates the events table.
func Migration20260810090000CreateEvents() db.Migration {
	return db.Migration{
		Version:     20260810090000,
		Description: "Create events table",
		Up: func(tx *sql.Tx) error {
			statements := []string{
				`CREATE TABLE IF NOT EXISTS events (
					id TEXT PRIMARY KEY,
					timestamp DATETIME NOT NULL,
					event_type TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					metadata TEXT NOT NULL DEFAULT '{}'
				)`,
				"CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp DESC)",
				"CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type)",
			}

			for _, stmt := range statements {
				if _, err := tx.Exec(stmt); err != nil {
					return errors.Wrap(err, "failed to create events table")
				}
			}
			return nil
		},
	}
}
