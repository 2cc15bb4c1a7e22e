package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"github.com/jingkaihe/hindsight/pkg/analysis"
	"github.com/jingkaihe/hindsight/pkg/patterns"
)

// BuildRows converts an analysis result into table rows: actionable
// recommendations first, then skipped ones marked as already built.
func BuildRows(result *analysis.Result) []table.Row {
	rows := make([]table.Row, 0, len(result.Actionable)+len(result.Skipped))
	for _, rec := range result.Actionable {
		rows = append(rows, recommendationRow(rec, ""))
	}
	for _, rec := range result.Skipped {
		rows = append(rows, recommendationRow(rec, " (exists)"))
	}
	return rows
}

func recommendationRow(rec *patterns.Recommendation, suffix string) table.Row {
	return table.Row{
		rec.TargetName + suffix,
		rec.Priority.String(),
		fmt.Sprintf("%d", rec.Count),
		fmt.Sprintf("%.2f", rec.Frequency),
		strings.Join(rec.Sources, ", "),
		rec.Reason,
	}
}

// CountsLine summarizes one analysis pass for the dashboard header.
func CountsLine(result *analysis.Result) string {
	return fmt.Sprintf("%d actionable, %d skipped, %d monitored",
		len(result.Actionable), len(result.Skipped), len(result.Monitored))
}
