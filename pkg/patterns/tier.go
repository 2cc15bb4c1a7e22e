package patterns

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// Tier is the ordered priority scale for signals and recommendations.
// Ordering is significant: escalation and threshold checks are ordinal
// comparisons, never string comparisons.
type Tier int

const (
	// TierLow marks patterns worth keeping an eye on but not acting on.
	TierLow Tier = iota
	// TierMedium marks patterns that crossed the occurrence threshold.
	TierMedium
	// TierHigh marks frequent patterns or clear bursts of activity.
	TierHigh
	// TierCritical marks patterns recurring multiple times per day.
	TierCritical
)

var tierNames = [...]string{"low", "medium", "high", "critical"}

// String returns the lowercase name of the tier.
func (t Tier) String() string {
	if t < TierLow || t > TierCritical {
		return "unknown"
	}
	return tierNames[t]
}

// ParseTier converts a tier name into a Tier. Unknown names are a
// configuration error and must be surfaced, not defaulted.
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if s == name {
			return Tier(i), nil
		}
	}
	return TierLow, errors.Errorf("unknown priority tier: %q (valid: low, medium, high, critical)", s)
}

// Escalate returns the tier one level above t, capped at critical.
func (t Tier) Escalate() Tier {
	if t >= TierCritical {
		return TierCritical
	}
	return t + 1
}

// MarshalJSON renders the tier as its name so persisted and reported
// forms stay readable by independent tooling.
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses a tier name.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "failed to unmarshal priority tier")
	}
	parsed, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML renders the tier as its name.
func (t Tier) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// JSONSchema reports the tier as a closed string enum.
func (Tier) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "string",
		Enum: []any{"low", "medium", "high", "critical"},
	}
}
