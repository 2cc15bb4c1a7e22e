package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/hindsight/pkg/analysis"
	"github.com/jingkaihe/hindsight/pkg/patterns"
)

func sampleResult() *analysis.Result {
	return &analysis.Result{
		WindowDays:     7,
		MinOccurrences: 5,
		AutoThreshold:  patterns.TierMedium,
		Actionable: []*patterns.Recommendation{
			{
				TargetName:  "api-optimizer",
				PatternType: "api_call",
				Priority:    patterns.TierHigh,
				Count:       12,
				Frequency:   1.71,
				Sources:     []string{"docs", "events"},
				Reason:      `detected 12 "api_call" occurrences (1.71/day) via docs + events`,
			},
			{
				TargetName:  "test-guardian",
				PatternType: "testing",
				Priority:    patterns.TierMedium,
				Count:       5,
				Frequency:   0.71,
				Sources:     []string{"docs"},
				Reason:      `detected 5 "testing" occurrences (0.71/day) via docs`,
			},
		},
		Skipped: []*patterns.Recommendation{
			{
				TargetName:    "deploy-sage",
				PatternType:   "deployment",
				Priority:      patterns.TierMedium,
				Count:         6,
				Frequency:     0.86,
				Sources:       []string{"events"},
				AlreadyExists: true,
			},
		},
		Monitored: []*patterns.Signal{
			{Type: "file_operation", Count: 2},
		},
	}
}

func TestBuildRows(t *testing.T) {
	rows := BuildRows(sampleResult())
	require.Len(t, rows, 3)

	assert.Equal(t, "api-optimizer", rows[0][0])
	assert.Equal(t, "high", rows[0][1])
	assert.Equal(t, "12", rows[0][2])
	assert.Equal(t, "1.71", rows[0][3])
	assert.Equal(t, "docs, events", rows[0][4])
	assert.Contains(t, rows[0][5], "api_call")

	assert.Equal(t, "test-guardian", rows[1][0])

	assert.Equal(t, "deploy-sage (exists)", rows[2][0])
	assert.Equal(t, "medium", rows[2][1])
}

func TestBuildRowsEmptyResult(t *testing.T) {
	rows := BuildRows(&analysis.Result{})
	assert.Empty(t, rows)
}

func TestCountsLine(t *testing.T) {
	assert.Equal(t, "2 actionable, 1 skipped, 1 monitored", CountsLine(sampleResult()))
	assert.Equal(t, "0 actionable, 0 skipped, 0 monitored", CountsLine(&analysis.Result{}))
}
