package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/events"
	"github.com/jingkaihe/hindsight/pkg/presenter"
)

// EventsConfig holds configuration for the events command
type EventsConfig struct {
	Type   string
	Since  string
	Limit  int
	Format string
}

// NewEventsConfig creates a new EventsConfig with default values
func NewEventsConfig() *EventsConfig {
	return &EventsConfig{
		Type:   "",
		Since:  "",
		Limit:  0,
		Format: "table",
	}
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recorded events",
	Long: `List recorded events, newest first.

Examples:
  hindsight events                          # All retained events
  hindsight events --type api_call          # Only api_call events
  hindsight events --since 1d               # Since 1 day ago
  hindsight events --since 2026-08-01       # Since specific date
  hindsight events --limit 20 --format json # Most recent 20 as JSON
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getEventsConfigFromFlags(cmd)
		runEventsCmd(ctx, config)
	},
}

func init() {
	defaults := NewEventsConfig()
	eventsCmd.Flags().String("type", defaults.Type, "Only list events of this exact type")
	eventsCmd.Flags().String("since", defaults.Since, "List events since this time (e.g., 2026-08-01, 1d, 1w)")
	eventsCmd.Flags().Int("limit", defaults.Limit, "Maximum number of events to list (0 for all)")
	eventsCmd.Flags().String("format", defaults.Format, "Output format: table or json")
}

// getEventsConfigFromFlags extracts events configuration from command flags
func getEventsConfigFromFlags(cmd *cobra.Command) *EventsConfig {
	config := NewEventsConfig()

	if eventType, err := cmd.Flags().GetString("type"); err == nil {
		config.Type = eventType
	}
	if since, err := cmd.Flags().GetString("since"); err == nil {
		config.Since = since
	}
	if limit, err := cmd.Flags().GetInt("limit"); err == nil {
		config.Limit = limit
	}
	if format, err := cmd.Flags().GetString("format"); err == nil {
		config.Format = format
	}

	return config
}

// parseTimeSpec parses time specifications like "1d", "1w", "2026-08-01"
func parseTimeSpec(spec string) (time.Time, error) {
	return parseTimeSpecWithClock(spec, time.Now)
}

// parseTimeSpecWithClock parses time specifications with a custom clock function for testing
func parseTimeSpecWithClock(spec string, now func() time.Time) (time.Time, error) {
	if spec == "" {
		return time.Time{}, nil
	}

	// Try parsing as absolute date first (YYYY-MM-DD)
	if t, err := time.Parse("2006-01-02", spec); err == nil {
		return t, nil
	}

	// Try parsing as relative time (1d, 1w, etc.)
	re := regexp.MustCompile(`^(\d+)([dhw])$`)
	matches := re.FindStringSubmatch(spec)
	if len(matches) != 3 {
		return time.Time{}, fmt.Errorf("invalid time specification: %s (expected format: YYYY-MM-DD, 1d, 1w, etc.)", spec)
	}

	amount, err := strconv.Atoi(matches[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid number in time specification: %s", matches[1])
	}

	unit := matches[2]
	currentTime := now()

	switch unit {
	case "d":
		return currentTime.AddDate(0, 0, -amount), nil
	case "h":
		return currentTime.Add(-time.Duration(amount) * time.Hour), nil
	case "w":
		return currentTime.AddDate(0, 0, -amount*7), nil
	default:
		return time.Time{}, fmt.Errorf("invalid time unit: %s (supported: d, h, w)", unit)
	}
}

// runEventsCmd executes the events command
func runEventsCmd(ctx context.Context, eventsConfig *EventsConfig) {
	if eventsConfig.Limit < 0 {
		presenter.Error(fmt.Errorf("limit cannot be negative: %d", eventsConfig.Limit), "Invalid limit")
		os.Exit(1)
	}

	since, err := parseTimeSpec(eventsConfig.Since)
	if err != nil {
		presenter.Error(err, "Invalid since time specification")
		os.Exit(1)
	}

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

	listed, err := store.Query(ctx, events.QueryOptions{
		Type:  eventsConfig.Type,
		Since: since,
		Limit: eventsConfig.Limit,
	})
	if err != nil {
		presenter.Error(err, "Failed to query events")
		os.Exit(1)
	}

	if eventsConfig.Format == "json" {
		displayEventsJSON(os.Stdout, listed)
		return
	}

	if len(listed) == 0 {
		presenter.Info("No events found.")
		return
	}
	displayEventsTable(os.Stdout, listed)
}

// displayEventsTable displays events in table format
func displayEventsTable(w io.Writer, listed []events.Event) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "Timestamp\tType\tDescription\tID")
	fmt.Fprintln(tw, "---------\t----\t-----------\t--")

	for _, event := range listed {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			event.Timestamp.Format("2006-01-02 15:04:05"),
			event.Type,
			truncateText(event.Description, 60),
			event.ID,
		)
	}

	tw.Flush()
}

// EventsJSONOutput represents the JSON structure for the events listing
type EventsJSONOutput struct {
	Events []events.Event `json:"events"`
	Total  int            `json:"total"`
}

// displayEventsJSON displays events in JSON format
func displayEventsJSON(w io.Writer, listed []events.Event) {
	output := EventsJSONOutput{
		Events: listed,
		Total:  len(listed),
	}
	if output.Events == nil {
		output.Events = []events.Event{}
	}

	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "Error generating JSON output: %v\n", err)
		return
	}

	fmt.Fprintln(w, string(jsonData))
}

// truncateText shortens s to at most limit runes, marking the cut.
func truncateText(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
