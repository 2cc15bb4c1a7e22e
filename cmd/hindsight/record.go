package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/events"
	"github.com/jingkaihe/hindsight/pkg/logger"
	"github.com/jingkaihe/hindsight/pkg/presenter"
)

// RecordConfig holds configuration for the record command
type RecordConfig struct {
	Meta  []string
	Quiet bool
}

// NewRecordConfig creates a new RecordConfig with default values
func NewRecordConfig() *RecordConfig {
	return &RecordConfig{
		Meta:  []string{},
		Quiet: false,
	}
}

var recordCmd = &cobra.Command{
	Use:   "record <type> [description...]",
	Short: "Record one activity event",
	Long: `Record one activity event in the local store. This is the producer entry
point, meant to be called from hooks and scripts instrumenting your workflows.

Recording is best-effort: persistence trouble is reported but never fails
the calling workflow, so a wedged store cannot break a git commit.

Example:
  hindsight record api_call "called the billing endpoint"
  hindsight record testing "ran unit tests" --meta suite=billing --meta result=pass
  hindsight record deployment`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getRecordConfigFromFlags(cmd)
		runRecordCmd(ctx, config, args[0], strings.Join(args[1:], " "))
	},
}

func init() {
	defaults := NewRecordConfig()
	recordCmd.Flags().StringArray("meta", defaults.Meta, "Metadata key=value pair (repeatable)")
	recordCmd.Flags().BoolP("quiet", "q", defaults.Quiet, "Suppress output")
}

// getRecordConfigFromFlags extracts record configuration from command flags
func getRecordConfigFromFlags(cmd *cobra.Command) *RecordConfig {
	config := NewRecordConfig()

	if meta, err := cmd.Flags().GetStringArray("meta"); err == nil {
		config.Meta = meta
	}
	if quiet, err := cmd.Flags().GetBool("quiet"); err == nil {
		config.Quiet = quiet
	}

	return config
}

// parseMetadata converts repeated key=value flags into a metadata map.
func parseMetadata(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	metadata := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, errors.Errorf("invalid metadata %q (want key=value)", pair)
		}
		metadata[key] = value
	}
	return metadata, nil
}

// runRecordCmd appends one event. Invalid arguments exit non-zero;
// persistence trouble does not.
func runRecordCmd(ctx context.Context, recordConfig *RecordConfig, eventType, description string) {
	presenter.SetQuiet(recordConfig.Quiet)

	if strings.TrimSpace(eventType) == "" {
		presenter.Error(errors.New("event type is required"), "Please provide a non-empty event type")
		os.Exit(1)
	}

	metadata, err := parseMetadata(recordConfig.Meta)
	if err != nil {
		presenter.Error(err, "Invalid --meta flag")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		presenter.Error(err, "Invalid configuration")
		os.Exit(1)
	}

	store, err := events.NewStore(ctx, &cfg.Store)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to open event store, event dropped")
		presenter.Warning("Event dropped: store unavailable")
		return
	}
	defer store.Close()

	store.Record(ctx, eventType, description, metadata)

	entry := events.ActivityEntry(events.Event{
		Timestamp:   time.Now(),
		Type:        eventType,
		Description: description,
	})
	if err := events.AppendActivity(cfg.Store.ActivityLogPath(), entry); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to append to activity log")
	}

	presenter.Success(fmt.Sprintf("Recorded %s event", eventType))
}
