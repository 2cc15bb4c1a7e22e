package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/events"
	"github.com/jingkaihe/hindsight/pkg/presenter"
)

// StatusConfig holds configuration for the status command
type StatusConfig struct {
	Format string
}

// NewStatusConfig creates a new StatusConfig with default values
func NewStatusConfig() *StatusConfig {
	return &StatusConfig{
		Format: "table",
	}
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a summary of the event store",
	Long: `Show a summary of the event store: how many events are retained, the
lifetime total recorded, the per-type breakdown, and the most recent event.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getStatusConfigFromFlags(cmd)
		runStatusCmd(ctx, config)
	},
}

func init() {
	defaults := NewStatusConfig()
	statusCmd.Flags().String("format", defaults.Format, "Output format: table or json")
}

// getStatusConfigFromFlags extracts status configuration from command flags
func getStatusConfigFromFlags(cmd *cobra.Command) *StatusConfig {
	config := NewStatusConfig()

	if format, err := cmd.Flags().GetString("format"); err == nil {
		config.Format = format
	}

	return config
}

// runStatusCmd executes the status command
func runStatusCmd(ctx context.Context, statusConfig *StatusConfig) {
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

	summary, err := store.Summary(ctx)
	if err != nil {
		presenter.Error(err, "Failed to summarize event store")
		os.Exit(1)
	}

	if statusConfig.Format == "json" {
		jsonData, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			presenter.Error(err, "Failed to generate JSON output")
			os.Exit(1)
		}
		fmt.Println(string(jsonData))
		return
	}

	displayStatusTable(os.Stdout, cfg, summary)
}

// displayStatusTable displays the store summary in table format
func displayStatusTable(w io.Writer, cfg *config.Config, summary *events.Summary) {
	fmt.Fprintf(w, "Store: %s (%s)\n", cfg.Store.Type, cfg.Store.ResolveBasePath())
	fmt.Fprintf(w, "Events retained: %d (cap %d)\n", summary.TotalEvents, cfg.Store.MaxEvents)
	fmt.Fprintf(w, "Events recorded all-time: %d\n", summary.TotalRecorded)
	if summary.LastEvent != nil {
		fmt.Fprintf(w, "Last event: %s [%s] %s\n",
			summary.LastEvent.Timestamp.Format("2006-01-02 15:04:05"),
			summary.LastEvent.Type,
			truncateText(summary.LastEvent.Description, 60))
	}

	if len(summary.EventCounts) == 0 {
		return
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Type\tCount")
	fmt.Fprintln(tw, "----\t-----")
	for _, eventType := range sortedTypes(summary.EventCounts) {
		fmt.Fprintf(tw, "%s\t%d\n", eventType, summary.EventCounts[eventType])
	}
	tw.Flush()
}

// sortedTypes orders types by descending count, ties broken by name.
func sortedTypes(counts map[string]int) []string {
	types := make([]string, 0, len(counts))
	for eventType := range counts {
		types = append(types, eventType)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})
	return types
}
