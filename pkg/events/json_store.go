package events

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/logger"
)

const (
	snapshotVersion  = 1
	defaultMaxEvents = 1000

	snapshotWriteAttempts = 3
	snapshotWriteDelay    = 50 * time.Millisecond
)

// Snapshot is the on-disk layout of the JSON store. TotalRecorded keeps
// counting past the retention cap so the lifetime total survives
// trimming. The field names are a stable interface for external tooling
// that parses the file directly.
type Snapshot struct {
	Version       int       `json:"version"`
	UpdatedAt     time.Time `json:"updated_at"`
	TotalRecorded int       `json:"total_recorded"`
	Events        []Event   `json:"events"`
}

// JSONStore persists events in a single JSON snapshot file. Writes go
// through a read-modify-write cycle guarded by an advisory lock file
// and finish with an atomic rename, so concurrent writers from other
// processes never interleave partial state.
type JSONStore struct {
	mu           sync.Mutex
	snapshotPath string
	maxEvents    int
}

// NewJSONStore creates the snapshot directory if needed and returns a
// store writing to events.json beneath the configured base path.
func NewJSONStore(cfg *config.StoreConfig) (*JSONStore, error) {
	basePath := cfg.ResolveBasePath()
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create store directory")
	}

	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}

	return &JSONStore{
		snapshotPath: cfg.SnapshotPath(),
		maxEvents:    maxEvents,
	}, nil
}

// Record appends an event to the snapshot. Failures are logged and
// swallowed so instrumented workflows never abort over bookkeeping.
func (s *JSONStore) Record(ctx context.Context, eventType, description string, metadata map[string]any) {
	event := Event{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Type:        eventType,
		Description: description,
		Metadata:    metadata,
	}

	if err := s.append(ctx, event); err != nil {
		logger.G(ctx).WithError(err).WithField("event_type", eventType).Warn("failed to record event")
	}
}

func (s *JSONStore) append(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withSnapshotLock(ctx, func() error {
		snap := s.loadSnapshot(ctx)
		snap.Events = append(snap.Events, event)
		snap.TotalRecorded++
		if len(snap.Events) > s.maxEvents {
			snap.Events = snap.Events[len(snap.Events)-s.maxEvents:]
		}
		snap.UpdatedAt = time.Now()
		return s.writeSnapshot(ctx, snap)
	})
}

// withSnapshotLock runs fn under the snapshot lock file. When the lock
// cannot be acquired within the bounded wait, fn runs anyway: losing an
// event to a wedged lock is worse than a rare last-writer-wins race.
func (s *JSONStore) withSnapshotLock(ctx context.Context, fn func() error) error {
	lock, err := acquireLock(ctx, s.snapshotPath)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("snapshot_path", s.snapshotPath).
			Warn("failed to acquire snapshot lock, proceeding without it")
	} else {
		defer func() {
			if releaseErr := lock.release(); releaseErr != nil {
				logger.G(ctx).WithError(releaseErr).Warn("failed to release snapshot lock")
			}
		}()
	}
	return fn()
}

// loadSnapshot reads the current snapshot. A missing file yields an
// empty snapshot; an unreadable or corrupt one is logged and likewise
// treated as empty rather than propagated.
func (s *JSONStore) loadSnapshot(ctx context.Context) *Snapshot {
	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.G(ctx).WithError(err).Warn("failed to read snapshot, treating store as empty")
		}
		return &Snapshot{Version: snapshotVersion}
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to unmarshal snapshot, treating store as empty")
		return &Snapshot{Version: snapshotVersion}
	}
	if snap.Version == 0 {
		snap.Version = snapshotVersion
	}
	return snap
}

func (s *JSONStore) writeSnapshot(ctx context.Context, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal snapshot")
	}

	err = retry.Do(
		func() error {
			return atomicWrite(s.snapshotPath, data)
		},
		retry.Attempts(snapshotWriteAttempts),
		retry.Delay(snapshotWriteDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Warn("retrying snapshot write")
		}),
	)
	return errors.Wrap(err, "failed to write snapshot")
}

// atomicWrite writes data next to path and renames it into place so
// readers only ever observe a complete snapshot.
func atomicWrite(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write temporary snapshot")
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(err, "failed to replace snapshot")
	}
	return nil
}

// Query returns the stored events matching opts, newest first.
func (s *JSONStore) Query(ctx context.Context, opts QueryOptions) ([]Event, error) {
	snap := s.loadSnapshot(ctx)
	return filterEvents(snap.Events, opts), nil
}

// Summary aggregates the retained events plus the lifetime total.
func (s *JSONStore) Summary(ctx context.Context) (*Summary, error) {
	snap := s.loadSnapshot(ctx)

	counts := make(map[string]int)
	for _, event := range snap.Events {
		counts[event.Type]++
	}

	summary := &Summary{
		TotalEvents:   len(snap.Events),
		TotalRecorded: snap.TotalRecorded,
		EventCounts:   counts,
		Timestamp:     time.Now(),
	}
	if len(snap.Events) > 0 {
		last := snap.Events[len(snap.Events)-1]
		summary.LastEvent = &last
	}
	return summary, nil
}

func (s *JSONStore) Close() error {
	return nil
}
