package sources

import (
	"context"
	"testing"
	"time"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/events"
	"github.com/jingkaihe/hindsight/pkg/patterns"
)

func newJSONStoreForTest(t *testing.T) events.Store {
	t.Helper()
	store, err := events.NewJSONStore(&config.StoreConfig{
		Type:      config.StoreTypeJSON,
		BasePath:  t.TempDir(),
		MaxEvents: 100,
	})
	require.NoError(t, err)
	return store
}

type stubStore struct {
	events   []events.Event
	err      error
	lastOpts events.QueryOptions
}

func (s *stubStore) Record(ctx context.Context, eventType, description string, metadata map[string]any) {
}

func (s *stubStore) Query(ctx context.Context, opts events.QueryOptions) ([]events.Event, error) {
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

func (s *stubStore) Summary(ctx context.Context) (*events.Summary, error) {
	return &events.Summary{}, nil
}

func (s *stubStore) Close() error {
	return nil
}

func repeatedEvents(eventType, description string, count int) []events.Event {
	now := time.Now()
	evts := make([]events.Event, 0, count)
	for i := 0; i < count; i++ {
		evts = append(evts, events.Event{
			Type:        eventType,
			Description: description,
			Timestamp:   now.Add(-time.Duration(i) * time.Hour),
		})
	}
	return evts
}

func TestEventSourceSignals(t *testing.T) {
	store := &stubStore{
		events: append(
			repeatedEvents("api_call", "GET /users returned 500", 6),
			repeatedEvents("deployment", "deploy v2", 3)...,
		),
	}
	source := NewEventSource(store, nil)

	signals, err := source.Signals(context.Background(), 7, 5)
	require.NoError(t, err)

	assert.Equal(t, "events", source.Name())
	assert.Equal(t, 9, source.EventsScanned())

	// Window start passed down to the store, inclusive.
	wantSince := time.Now().AddDate(0, 0, -7)
	assert.WithinDuration(t, wantSince, store.lastOpts.Since, 5*time.Second)

	require.Contains(t, signals, "api_call")
	apiSignal := signals["api_call"]
	assert.Equal(t, 6, apiSignal.Count)
	assert.InDelta(t, 6.0/7.0, apiSignal.FrequencyPerDay, 0.001)
	assert.Equal(t, patterns.TierMedium, apiSignal.Priority)

	require.NotContains(t, signals, "deployment", "below-threshold group should not be a signal")
	monitored := source.Monitored()
	require.Len(t, monitored, 1)
	assert.Equal(t, "deployment", monitored[0].Type)
	assert.Equal(t, 3, monitored[0].Count)
}

func TestEventSourceIgnoreGlobs(t *testing.T) {
	store := &stubStore{
		events: append(
			repeatedEvents("debug_trace", "tracing", 5),
			repeatedEvents("api_call", "GET /users", 5)...,
		),
	}
	source := NewEventSource(store, []glob.Glob{glob.MustCompile("debug_*")})

	signals, err := source.Signals(context.Background(), 7, 5)
	require.NoError(t, err)

	assert.Contains(t, signals, "api_call")
	assert.NotContains(t, signals, "debug_trace")
	assert.Empty(t, source.Monitored(), "ignored types should not even be monitored")
	assert.Equal(t, 10, source.EventsScanned(), "scanned counts events before filtering")
}

func TestEventSourceStoreFailure(t *testing.T) {
	source := NewEventSource(&stubStore{err: errors.New("disk on fire")}, nil)

	_, err := source.Signals(context.Background(), 7, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query events")
}

func TestEventSourceAgainstRealStore(t *testing.T) {
	store := newJSONStoreForTest(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		store.Record(ctx, "api_call", "GET /users returned 500", nil)
	}

	source := NewEventSource(store, nil)
	signals, err := source.Signals(ctx, 7, 5)
	require.NoError(t, err)

	require.Contains(t, signals, "api_call")
	assert.Equal(t, 6, signals["api_call"].Count)
	assert.NotEmpty(t, signals["api_call"].Examples)
}
