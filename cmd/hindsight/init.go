package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jingkaihe/hindsight/pkg/logger"
	"github.com/jingkaihe/hindsight/pkg/presenter"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up Hindsight configuration",
	Long:  `Set up Hindsight configuration with sensible defaults.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		override, _ := cmd.Flags().GetBool("override")

		presenter.Section("Hindsight Configuration Setup")
		presenter.Info("Setting up Hindsight with recommended defaults.")
		presenter.Separator()

		// Create config directory
		configDir := filepath.Join(os.Getenv("HOME"), ".hindsight")
		err := os.MkdirAll(configDir, 0755)
		if err != nil {
			presenter.Error(err, "Failed to create config directory")
			logger.G(ctx).WithError(err).WithField("config_dir", configDir).Error("Config directory creation failed")
			return
		}
		logger.G(ctx).WithField("config_dir", configDir).Debug("Config directory created")

		configFile := filepath.Join(configDir, "config.yaml")

		// Check if config already exists (unless override is specified)
		if !override {
			if _, err := os.Stat(configFile); err == nil {
				presenter.Warning(fmt.Sprintf("Configuration file already exists at %s", configFile))
				presenter.Info("To overwrite, use the --override flag or remove the file and run 'hindsight init' again")
				return
			}
		}

		configContent := `log_level: info
log_format: fmt
store:
    # json keeps everything in a single snapshot file; sqlite scales
    # better once the retention cap grows. Run 'hindsight migrate' to
    # copy an existing snapshot into sqlite.
    type: json
    base_path: .hindsight
    max_events: 1000
analysis:
    window_days: 7
    min_occurrences: 5
    # Only recommend automations at or above this priority:
    # low, medium, high, or critical
    auto_threshold: medium
    # Event types the analyzer should never count
    ignore_types: []
sources:
    enabled:
        - events
        - docs
    docs:
        dirs:
            - .
        max_file_bytes: 2097152
skills:
    # Directories holding existing automations, used to suppress
    # recommendations that already exist
    dirs: []
serve:
    host: 127.0.0.1
    port: 8280
tracing:
    enabled: false
    sampler: ratio
    ratio: 0.1
`

		err = os.WriteFile(configFile, []byte(configContent), 0644)
		if err != nil {
			presenter.Error(err, "Failed to write config file")
			logger.G(ctx).WithError(err).WithField("config_file", configFile).Error("Config file write failed")
			return
		}

		if override {
			presenter.Success(fmt.Sprintf("Configuration overwritten at %s", configFile))
		} else {
			presenter.Success(fmt.Sprintf("Configuration saved to %s", configFile))
		}
		presenter.Info("You can modify these settings at any time by editing the config file")
		logger.G(ctx).WithField("config_file", configFile).Info("Configuration file created successfully")

		presenter.Separator()
		presenter.Section("Setup Complete")
		presenter.Success("Hindsight has been configured with sensible defaults")

		presenter.Separator()
		presenter.Section("Getting Started")
		presenter.Info("  hindsight record <type> [description]  # Record a tool event")
		presenter.Info("  hindsight events                       # List recorded events")
		presenter.Info("  hindsight report                       # Recommend automations")
		presenter.Info("  hindsight watch                        # Re-analyze on file changes")
		presenter.Info("  hindsight serve                        # Start the HTTP API")
		presenter.Info("  hindsight dashboard                    # Live terminal dashboard")
		presenter.Info("  hindsight --help                       # Show all available commands")

		logger.G(ctx).Info("Hindsight initialization completed successfully")
	},
}

func init() {
	initCmd.Flags().Bool("override", false, "Overwrite existing configuration file if it exists")
	rootCmd.AddCommand(initCmd)
}
