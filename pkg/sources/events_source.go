package sources

import (
	"context"
	"time"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"

	"github.com/jingkaihe/hindsight/pkg/events"
	"github.com/jingkaihe/hindsight/pkg/patterns"
)

// EventSource derives signals from the recorded event store, the
// primary evidence stream.
type EventSource struct {
	store       events.Store
	ignoreGlobs []glob.Glob
	monitored   []*patterns.Signal
	scanned     int
}

// NewEventSource wraps store as a signal source. Event types matching
// any of ignoreGlobs are excluded from analysis.
func NewEventSource(store events.Store, ignoreGlobs []glob.Glob) *EventSource {
	return &EventSource{store: store, ignoreGlobs: ignoreGlobs}
}

func (s *EventSource) Name() string {
	return "events"
}

// Signals groups the events recorded inside the window into signals.
// Groups below the occurrence threshold are retained separately and
// available via Monitored after the call.
func (s *EventSource) Signals(ctx context.Context, windowDays, minOccurrences int) (map[string]*patterns.Signal, error) {
	since := time.Now().AddDate(0, 0, -windowDays)

	evts, err := s.store.Query(ctx, events.QueryOptions{Since: since})
	if err != nil {
		return nil, errors.Wrap(err, "failed to query events")
	}
	s.scanned = len(evts)

	occurrences := make([]patterns.Occurrence, 0, len(evts))
	for _, event := range evts {
		if s.ignored(event.Type) {
			continue
		}
		occurrences = append(occurrences, patterns.Occurrence{
			Type:        event.Type,
			Description: event.Description,
			Time:        event.Timestamp,
		})
	}

	signals, monitored := patterns.BuildSignals(occurrences, windowDays, minOccurrences)
	s.monitored = monitored
	return signals, nil
}

func (s *EventSource) ignored(eventType string) bool {
	for _, g := range s.ignoreGlobs {
		if g.Match(eventType) {
			return true
		}
	}
	return false
}

// Monitored returns the below-threshold groups observed by the most
// recent Signals call.
func (s *EventSource) Monitored() []*patterns.Signal {
	return s.monitored
}

// EventsScanned returns how many events the most recent Signals call
// examined before filtering.
func (s *EventSource) EventsScanned() int {
	return s.scanned
}
