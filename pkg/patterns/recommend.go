package patterns

import (
	"fmt"
	"sort"
	"strings"
)

// targetNames maps well-known pattern types to friendly automation
// names. Anything else falls back to a slug derived from the type.
var targetNames = map[string]string{
	"api_call":        "api-optimizer",
	"data_processing": "data-transformer",
	"file_operation":  "file-handler",
	"database_query":  "db-wizard",
	"test_execution":  "test-guardian",
	"testing":         "test-guardian",
	"deployment":      "deploy-sage",
	"documentation":   "doc-genius",
	"performance":     "perf-optimizer",
	"security":        "security-shield",
	"error":           "error-resolver",
}

// TargetNameFor derives the automation name a recommendation proposes
// for the given pattern type.
func TargetNameFor(patternType string) string {
	if name, ok := targetNames[patternType]; ok {
		return name
	}
	return strings.ReplaceAll(patternType, "_", "-") + "-skill"
}

// Recommendation is the merged, deduplicated output unit of an analysis
// run. After merging there is at most one recommendation per pattern type.
type Recommendation struct {
	TargetName    string   `json:"target_name" yaml:"target_name"`
	PatternType   string   `json:"pattern_type" yaml:"pattern_type"`
	Priority      Tier     `json:"priority" yaml:"priority"`
	Sources       []string `json:"sources" yaml:"sources"`
	Count         int      `json:"count" yaml:"count"`
	Frequency     float64  `json:"frequency_per_day" yaml:"frequency_per_day"`
	Examples      []string `json:"example_contexts,omitempty" yaml:"example_contexts,omitempty"`
	Reason        string   `json:"reason" yaml:"reason"`
	AlreadyExists bool     `json:"already_exists" yaml:"already_exists"`
}

// SourceSignals pairs one source's label with the signals it produced.
type SourceSignals struct {
	Label   string
	Signals map[string]*Signal
}

// MergeSignals combines per-source signal maps into one recommendation
// per pattern type. A type reported by more than one source is escalated
// one tier above the maximum of the individual tiers, capped at critical;
// a type reported by exactly one source keeps that source's tier.
// Corroboration across independent evidence streams is a stronger signal
// than single-source frequency alone.
func MergeSignals(groups []SourceSignals) map[string]*Recommendation {
	merged := make(map[string]*Recommendation)

	for _, group := range groups {
		for patternType, sig := range group.Signals {
			rec, ok := merged[patternType]
			if !ok {
				rec = &Recommendation{
					TargetName:  TargetNameFor(patternType),
					PatternType: patternType,
					Priority:    sig.Priority,
					Count:       sig.Count,
					Frequency:   sig.FrequencyPerDay,
				}
				merged[patternType] = rec
			}

			if sig.Priority > rec.Priority {
				rec.Priority = sig.Priority
			}
			if sig.Count > rec.Count {
				rec.Count = sig.Count
			}
			if sig.FrequencyPerDay > rec.Frequency {
				rec.Frequency = sig.FrequencyPerDay
			}
			rec.Sources = appendUnique(rec.Sources, group.Label)
			for _, example := range sig.Examples {
				if len(rec.Examples) >= maxRecommendationExamples {
					break
				}
				rec.Examples = append(rec.Examples, example)
			}
		}
	}

	for _, rec := range merged {
		sort.Strings(rec.Sources)
		if len(rec.Sources) > 1 {
			rec.Priority = rec.Priority.Escalate()
		}
		rec.Reason = fmt.Sprintf("detected %d %q occurrences (%.2f/day) via %s",
			rec.Count, rec.PatternType, rec.Frequency, strings.Join(rec.Sources, " + "))
	}

	return merged
}

// FilterActionable drops recommendations below the auto threshold,
// diverts recommendations whose target already exists into the skipped
// list (marked, reported, but never auto-actionable), and orders both
// lists by descending tier, then descending frequency, then ascending
// target name for determinism. Distinct pattern types that derive the
// same target name are collapsed to the strongest one first, so the
// output never carries two recommendations for one target.
func FilterActionable(recommendations map[string]*Recommendation, autoThreshold Tier, existingTargets map[string]struct{}) (actionable, skipped []*Recommendation) {
	for _, rec := range collapseByTarget(recommendations) {
		if rec.Priority < autoThreshold {
			continue
		}
		if _, exists := existingTargets[rec.TargetName]; exists {
			rec.AlreadyExists = true
			skipped = append(skipped, rec)
			continue
		}
		actionable = append(actionable, rec)
	}

	sortRecommendations(actionable)
	sortRecommendations(skipped)

	return actionable, skipped
}

// collapseByTarget keeps the strongest recommendation per target name
// and folds the losers' source labels into the winner.
func collapseByTarget(recommendations map[string]*Recommendation) []*Recommendation {
	byTarget := make(map[string]*Recommendation)

	for _, rec := range recommendations {
		current, ok := byTarget[rec.TargetName]
		if !ok {
			byTarget[rec.TargetName] = rec
			continue
		}
		if strongerThan(rec, current) {
			rec.Sources = unionSorted(rec.Sources, current.Sources)
			byTarget[rec.TargetName] = rec
		} else {
			current.Sources = unionSorted(current.Sources, rec.Sources)
		}
	}

	collapsed := make([]*Recommendation, 0, len(byTarget))
	for _, rec := range byTarget {
		collapsed = append(collapsed, rec)
	}
	return collapsed
}

func strongerThan(a, b *Recommendation) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.Frequency != b.Frequency {
		return a.Frequency > b.Frequency
	}
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.PatternType < b.PatternType
}

func unionSorted(a, b []string) []string {
	merged := append([]string{}, a...)
	for _, label := range b {
		merged = appendUnique(merged, label)
	}
	sort.Strings(merged)
	return merged
}

func sortRecommendations(recs []*Recommendation) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority > recs[j].Priority
		}
		if recs[i].Frequency != recs[j].Frequency {
			return recs[i].Frequency > recs[j].Frequency
		}
		return recs[i].TargetName < recs[j].TargetName
	})
}

func appendUnique(labels []string, label string) []string {
	for _, existing := range labels {
		if existing == label {
			return labels
		}
	}
	return append(labels, label)
}
