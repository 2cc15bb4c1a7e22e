package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/hindsight/pkg/analysis"
	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/events"
	"github.com/jingkaihe/hindsight/pkg/presenter"
)

// ReportConfig holds configuration for the report command
type ReportConfig struct {
	WindowDays     int
	MinOccurrences int
	AutoThreshold  string
	Format         string
}

// NewReportConfig creates a new ReportConfig with default values
func NewReportConfig() *ReportConfig {
	return &ReportConfig{
		WindowDays:     0,
		MinOccurrences: 0,
		AutoThreshold:  "",
		Format:         "table",
	}
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Analyze recorded activity and recommend automations",
	Long: `Analyze recorded activity for recurring patterns and print the
recommended automations, ranked by priority.

The report lists actionable recommendations, recommendations skipped because
their target automation already exists, and near-threshold patterns that are
monitored but not yet actionable. Flags override the configured analysis
parameters for this run only.

Examples:
  hindsight report
  hindsight report --window 14 --min-occurrences 3
  hindsight report --auto-threshold high --format yaml
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getReportConfigFromFlags(cmd)
		runReportCmd(ctx, config)
	},
}

func init() {
	defaults := NewReportConfig()
	reportCmd.Flags().Int("window", defaults.WindowDays, "Analysis window in days (0 uses the configured value)")
	reportCmd.Flags().Int("min-occurrences", defaults.MinOccurrences, "Occurrences required before a pattern is a signal (0 uses the configured value)")
	reportCmd.Flags().String("auto-threshold", defaults.AutoThreshold, "Minimum actionable tier: low, medium, high, or critical (empty uses the configured value)")
	reportCmd.Flags().String("format", defaults.Format, "Output format: table, json, or yaml")
}

// getReportConfigFromFlags extracts report configuration from command flags
func getReportConfigFromFlags(cmd *cobra.Command) *ReportConfig {
	config := NewReportConfig()

	if window, err := cmd.Flags().GetInt("window"); err == nil {
		config.WindowDays = window
	}
	if minOccurrences, err := cmd.Flags().GetInt("min-occurrences"); err == nil {
		config.MinOccurrences = minOccurrences
	}
	if threshold, err := cmd.Flags().GetString("auto-threshold"); err == nil {
		config.AutoThreshold = threshold
	}
	if format, err := cmd.Flags().GetString("format"); err == nil {
		config.Format = format
	}

	return config
}

// runReportCmd executes the report command
func runReportCmd(ctx context.Context, reportConfig *ReportConfig) {
	cfg, err := config.Load()
	if err != nil {
		presenter.Error(err, "Invalid configuration")
		os.Exit(1)
	}

	store, err := events.NewStore(ctx, &cfg.Store)
	if err != nil {
		presenter.Error(err, "Failed to open event store")
		os.Exit(1)
	}
	defer store.Close()

	result, err := analysis.Run(ctx, cfg, store, analysis.Options{
		WindowDays:     reportConfig.WindowDays,
		MinOccurrences: reportConfig.MinOccurrences,
		AutoThreshold:  reportConfig.AutoThreshold,
	})
	if err != nil {
		presenter.Error(err, "Invalid analysis parameters")
		os.Exit(1)
	}

	switch reportConfig.Format {
	case "json":
		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			presenter.Error(err, "Failed to generate JSON output")
			os.Exit(1)
		}
		fmt.Println(string(jsonData))
	case "yaml":
		yamlData, err := yaml.Marshal(result)
		if err != nil {
			presenter.Error(err, "Failed to generate YAML output")
			os.Exit(1)
		}
		fmt.Print(string(yamlData))
	default:
		displayReportTable(os.Stdout, result)
		presenter.Stats(&presenter.AnalysisStats{
			WindowDays:     result.WindowDays,
			EventsScanned:  result.EventsScanned,
			SourcesUsed:    len(result.SourcesUsed),
			SourcesSkipped: len(result.SourcesSkipped),
			Actionable:     len(result.Actionable),
			AlreadyExists:  len(result.Skipped),
			Monitored:      len(result.Monitored),
		})
	}
}

// displayReportTable displays an analysis result in table format
func displayReportTable(w io.Writer, result *analysis.Result) {
	fmt.Fprintf(w, "Report for the last %d days (threshold %s, sources: %s)\n\n",
		result.WindowDays, result.AutoThreshold, strings.Join(result.SourcesUsed, ", "))

	if len(result.Actionable) == 0 {
		fmt.Fprintln(w, "No actionable recommendations.")
	} else {
		fmt.Fprintf(w, "Actionable (%d)\n", len(result.Actionable))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Target\tPriority\tCount\tPer Day\tSources\tReason")
		fmt.Fprintln(tw, "------\t--------\t-----\t-------\t-------\t------")
		for _, rec := range result.Actionable {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%s\t%s\n",
				rec.TargetName,
				rec.Priority,
				rec.Count,
				rec.Frequency,
				strings.Join(rec.Sources, ", "),
				rec.Reason,
			)
		}
		tw.Flush()
	}

	if len(result.Skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped, automation already exists (%d)\n", len(result.Skipped))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Target\tPriority\tCount\tSources")
		fmt.Fprintln(tw, "------\t--------\t-----\t-------")
		for _, rec := range result.Skipped {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
				rec.TargetName,
				rec.Priority,
				rec.Count,
				strings.Join(rec.Sources, ", "),
			)
		}
		tw.Flush()
	}

	if len(result.Monitored) > 0 {
		fmt.Fprintf(w, "\nMonitored, below threshold (%d)\n", len(result.Monitored))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Type\tCount\tLast Seen")
		fmt.Fprintln(tw, "----\t-----\t---------")
		for _, signal := range result.Monitored {
			fmt.Fprintf(tw, "%s\t%d\t%s\n",
				signal.Type,
				signal.Count,
				signal.LastSeen.Format("2006-01-02 15:04:05"),
			)
		}
		tw.Flush()
	}

	if len(result.SourcesSkipped) > 0 {
		fmt.Fprintf(w, "\nSources skipped (unavailable): %s\n", strings.Join(result.SourcesSkipped, ", "))
	}
}
