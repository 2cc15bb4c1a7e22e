// Package events implements the durable activity log behind hindsight.
// Events are recorded best-effort (recording never fails the caller),
// capped at a configurable count with the oldest entries dropped first,
// and queryable newest-first with optional type, time, and limit filters.
package events

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/jingkaihe/hindsight/pkg/config"
)

// Event is a single recorded occurrence of tool activity.
type Event struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// QueryOptions narrows a Query. Zero values mean no filtering: an empty
// Type matches every event, a zero Since applies no lower bound, and a
// Limit of zero returns all matches.
type QueryOptions struct {
	// Type matches events whose type equals it exactly.
	Type string
	// Since keeps events recorded at or after this instant.
	Since time.Time
	// Limit caps the result count after filtering and sorting.
	Limit int
}

// Summary is an aggregate view of the store contents.
type Summary struct {
	TotalEvents   int            `json:"total_events"`
	TotalRecorded int            `json:"total_recorded"`
	EventCounts   map[string]int `json:"event_counts"`
	LastEvent     *Event         `json:"last_event,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Store persists and retrieves events. Record deliberately returns no
// error: persistence problems are logged and swallowed so that
// instrumented workflows never fail because bookkeeping did.
type Store interface {
	Record(ctx context.Context, eventType, description string, metadata map[string]any)
	Query(ctx context.Context, opts QueryOptions) ([]Event, error)
	Summary(ctx context.Context) (*Summary, error)
	Close() error
}

// NewStore creates the store selected by cfg.Type.
func NewStore(ctx context.Context, cfg *config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case config.StoreTypeSQLite:
		return NewSQLiteStore(ctx, cfg)
	case config.StoreTypeJSON, "":
		return NewJSONStore(cfg)
	default:
		return nil, errors.Errorf("unsupported store type: %s", cfg.Type)
	}
}

// filterEvents applies opts to events held in insertion order and
// returns matches sorted newest first.
func filterEvents(events []Event, opts QueryOptions) []Event {
	filtered := make([]Event, 0, len(events))
	for _, event := range events {
		if opts.Type != "" && event.Type != opts.Type {
			continue
		}
		if !opts.Since.IsZero() && event.Timestamp.Before(opts.Since) {
			continue
		}
		filtered = append(filtered, event)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.After(filtered[j].Timestamp)
	})
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}
	return filtered
}
