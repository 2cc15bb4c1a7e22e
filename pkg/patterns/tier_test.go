package patterns

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierOrdering(t *testing.T) {
	assert.True(t, TierLow < TierMedium)
	assert.True(t, TierMedium < TierHigh)
	assert.True(t, TierHigh < TierCritical)
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		input   string
		want    Tier
		wantErr bool
	}{
		{input: "low", want: TierLow},
		{input: "medium", want: TierMedium},
		{input: "high", want: TierHigh},
		{input: "critical", want: TierCritical},
		{input: "urgent", wantErr: true},
		{input: "", wantErr: true},
		{input: "Critical", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTier(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTierStringRoundTrip(t *testing.T) {
	for _, tier := range []Tier{TierLow, TierMedium, TierHigh, TierCritical} {
		parsed, err := ParseTier(tier.String())
		require.NoError(t, err)
		assert.Equal(t, tier, parsed)
	}
}

func TestTierEscalate(t *testing.T) {
	assert.Equal(t, TierMedium, TierLow.Escalate())
	assert.Equal(t, TierHigh, TierMedium.Escalate())
	assert.Equal(t, TierCritical, TierHigh.Escalate())
	assert.Equal(t, TierCritical, TierCritical.Escalate(), "escalation is capped at critical")
}

func TestTierJSON(t *testing.T) {
	data, err := json.Marshal(TierHigh)
	require.NoError(t, err)
	assert.Equal(t, `"high"`, string(data))

	var tier Tier
	require.NoError(t, json.Unmarshal([]byte(`"critical"`), &tier))
	assert.Equal(t, TierCritical, tier)

	assert.Error(t, json.Unmarshal([]byte(`"mild"`), &tier))
}

func TestTierJSONSchema(t *testing.T) {
	schema := Tier(0).JSONSchema()
	require.NotNil(t, schema)
	assert.Equal(t, "string", schema.Type)
	assert.Len(t, schema.Enum, 4)
}
