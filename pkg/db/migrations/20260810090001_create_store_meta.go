package migrations

import (
	"database/sql"

	"github.com/jingkaihe/hindsight/pkg/db"
	"github.com/pkg/errors"
)

// Migration20260810090001CreateStoreMeta creates the store_meta table
// holding counters that survive event pruning, such as the lifetime
// count of recorded events.
func Migration20260810090001CreateStoreMeta() db.Migration {
	return db.Migration{
		Version:     20260810090001,
		Description: "Create store_meta counters table",
		Up: func(tx *sql.Tx) error {
			statements := []string{
				`CREATE TABLE IF NOT EXISTS store_meta (
					key TEXT PRIMARY KEY,
					value INTEGER NOT NULL DEFAULT 0
				)`,
				"INSERT OR IGNORE INTO store_meta (key, value) VALUES ('total_recorded', 0)",
			}

			for _, stmt := range statements {
				if _, err := tx.Exec(stmt); err != nil {
					return errors.Wrap(err, "failed to create store_meta table")
				}
			}
			return nil
		},
	}
}
