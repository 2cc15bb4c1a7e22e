package main

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/events"
	"github.com/jingkaihe/hindsight/pkg/presenter"
	"github.com/jingkaihe/hindsight/pkg/tui"
)

// DashboardConfig holds configuration for the dashboard command
type DashboardConfig struct {
	RefreshSeconds int
}

// NewDashboardConfig creates a new DashboardConfig with default values
func NewDashboardConfig() *DashboardConfig {
	return &DashboardConfig{
		RefreshSeconds: 5,
	}
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the live terminal dashboard",
	Long: `Open a terminal dashboard that periodically re-runs the analysis and
shows the current recommendations alongside the store summary.

Keys: q quits, r refreshes immediately.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getDashboardConfigFromFlags(cmd)
		runDashboardCmd(ctx, config)
	},
}

func init() {
	defaults := NewDashboardConfig()
	dashboardCmd.Flags().Int("refresh", defaults.RefreshSeconds, "Refresh interval in seconds")

	rootCmd.AddCommand(dashboardCmd)
}

// getDashboardConfigFromFlags extracts dashboard configuration from command flags
func getDashboardConfigFromFlags(cmd *cobra.Command) *DashboardConfig {
	config := NewDashboardConfig()

	if refresh, err := cmd.Flags().GetInt("refresh"); err == nil {
		config.RefreshSeconds = refresh
	}

	return config
}

// runDashboardCmd executes the dashboard command
func runDashboardCmd(ctx context.Context, dashboardConfig *DashboardConfig) {
	if dashboardConfig.RefreshSeconds <= 0 {
		presenter.Error(errors.Errorf("invalid refresh interval: %d", dashboardConfig.RefreshSeconds), "Refresh interval must be positive")
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

	refresh := time.Duration(dashboardConfig.RefreshSeconds) * time.Second
	if err := tui.StartDashboard(ctx, cfg, store, refresh); err != nil {
		presenter.Error(err, "Dashboard failed")
		os.Exit(1)
	}
}
