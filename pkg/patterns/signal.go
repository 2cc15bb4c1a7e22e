// Package patterns turns raw activity occurrences into prioritized,
// deduplicated automation recommendations. The pipeline is stateless:
// group occurrences into signals, assign priority tiers, merge signals
// reported by multiple sources, then filter and order what is actionable.
package patterns

import (
	"sort"
	"time"
)

const (
	// maxSignalExamples bounds the example descriptions kept per signal.
	maxSignalExamples = 10
	// maxRecommendationExamples bounds the example contexts kept per
	// recommendation after merging.
	maxRecommendationExamples = 5
)

// Occurrence is one observed activity an analysis source feeds into
// signal building. Descriptions are carried as example context only,
// never parsed.
type Occurrence struct {
	Type        string
	Description string
	Time        time.Time
}

// Signal is the per-type aggregate computed over a window. Signals are
// derived on demand and never persisted.
type Signal struct {
	Type            string    `json:"type" yaml:"type"`
	Count           int       `json:"count" yaml:"count"`
	FirstSeen       time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen        time.Time `json:"last_seen" yaml:"last_seen"`
	WindowDays      int       `json:"window_days" yaml:"window_days"`
	FrequencyPerDay float64   `json:"frequency_per_day" yaml:"frequency_per_day"`
	Examples        []string  `json:"example_descriptions,omitempty" yaml:"example_descriptions,omitempty"`
	Priority        Tier      `json:"priority" yaml:"priority"`
}

// PriorityFor assigns a tier from window frequency and raw count. The
// checks run in this exact order, first match wins; the frequency checks
// take precedence over the raw-count check so a short burst of activity
// is never under-prioritized relative to a slow trickle with a higher
// absolute count.
func PriorityFor(frequencyPerDay float64, count, minOccurrences int) Tier {
	switch {
	case frequencyPerDay >= 2.0:
		return TierCritical
	case frequencyPerDay >= 1.0 || float64(count) >= float64(minOccurrences)*1.5:
		return TierHigh
	case count >= minOccurrences:
		return TierMedium
	default:
		return TierLow
	}
}

// BuildSignals groups occurrences by type and splits the result into
// actionable signals (count >= minOccurrences) and monitored signals
// (everything below the threshold). Monitored signals are reported for
// visibility only; auto-action logic must never consume them. The
// occurrences are expected to be pre-filtered to the window.
func BuildSignals(occurrences []Occurrence, windowDays, minOccurrences int) (map[string]*Signal, []*Signal) {
	byType := make(map[string]*Signal)

	for _, occ := range occurrences {
		sig, ok := byType[occ.Type]
		if !ok {
			sig = &Signal{
				Type:       occ.Type,
				FirstSeen:  occ.Time,
				LastSeen:   occ.Time,
				WindowDays: windowDays,
			}
			byType[occ.Type] = sig
		}

		sig.Count++
		if occ.Time.Before(sig.FirstSeen) {
			sig.FirstSeen = occ.Time
		}
		if occ.Time.After(sig.LastSeen) {
			sig.LastSeen = occ.Time
		}
		if occ.Description != "" && len(sig.Examples) < maxSignalExamples {
			sig.Examples = append(sig.Examples, occ.Description)
		}
	}

	actionable := make(map[string]*Signal)
	var monitored []*Signal

	for eventType, sig := range byType {
		sig.FrequencyPerDay = float64(sig.Count) / float64(windowDays)
		sig.Priority = PriorityFor(sig.FrequencyPerDay, sig.Count, minOccurrences)

		if sig.Count >= minOccurrences {
			actionable[eventType] = sig
		} else {
			monitored = append(monitored, sig)
		}
	}

	sort.Slice(monitored, func(i, j int) bool {
		if monitored[i].Count != monitored[j].Count {
			return monitored[i].Count > monitored[j].Count
		}
		return monitored[i].Type < monitored[j].Type
	})

	return actionable, monitored
}
