// Package migrations contains all database migrations for hindsight.
// Migrations use Rails-style timestamp versioning (YYYYMMDDHHmmss).
package migrations

import (
	"github.com/jingkaihe/hindsight/pkg/db"
)

// All returns all registered migrations in the correct order.
// New migrations should be added to this list.
func All() []db.Migration {
	return []db.Migration{
		Migration20260810090000CreateEvents(),
		Migration20260810090001CreateStoreMeta(),
	}
}
