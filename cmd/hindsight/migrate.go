package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/events"
	"github.com/jingkaihe/hindsight/pkg/logger"
	"github.com/jingkaihe/hindsight/pkg/presenter"
)

// MigrateConfig holds configuration for the migrate command
type MigrateConfig struct {
	KeepJSON bool
}

// NewMigrateConfig creates a new MigrateConfig with default values
func NewMigrateConfig() *MigrateConfig {
	return &MigrateConfig{
		KeepJSON: true,
	}
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy events from the JSON snapshot into the SQLite store",
	Long: `Copy every event from the JSON snapshot into the SQLite store under the
same base path, preserving IDs, timestamps, and the lifetime counter.

Events already present in the SQLite store are skipped, so the migration can
be re-run safely. The JSON snapshot is kept unless --keep-json=false.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getMigrateConfigFromFlags(cmd)
		runMigrateCmd(ctx, config)
	},
}

func init() {
	defaults := NewMigrateConfig()
	migrateCmd.Flags().Bool("keep-json", defaults.KeepJSON, "Keep the JSON snapshot after migrating")

	rootCmd.AddCommand(withTracing(migrateCmd))
}

// getMigrateConfigFromFlags extracts migrate configuration from command flags
func getMigrateConfigFromFlags(cmd *cobra.Command) *MigrateConfig {
	config := NewMigrateConfig()

	if keepJSON, err := cmd.Flags().GetBool("keep-json"); err == nil {
		config.KeepJSON = keepJSON
	}

	return config
}

// runMigrateCmd executes the migrate command
func runMigrateCmd(ctx context.Context, migrateConfig *MigrateConfig) {
	cfg, err := config.Load()
	if err != nil {
		presenter.Error(err, "Invalid configuration")
		os.Exit(1)
	}

	jsonStore, err := events.NewJSONStore(&cfg.Store)
	if err != nil {
		presenter.Error(err, "Failed to open JSON snapshot")
		os.Exit(1)
	}
	defer jsonStore.Close()

	summary, err := jsonStore.Summary(ctx)
	if err != nil {
		presenter.Error(err, "Failed to read JSON snapshot")
		os.Exit(1)
	}

	retained, err := jsonStore.Query(ctx, events.QueryOptions{})
	if err != nil {
		presenter.Error(err, "Failed to read JSON snapshot")
		os.Exit(1)
	}
	if len(retained) == 0 {
		presenter.Info("No events to migrate.")
		return
	}

	// Query returns newest first; insert in recording order so the
	// SQLite retention pruning keeps the newest events.
	oldestFirst := make([]events.Event, len(retained))
	for i, event := range retained {
		oldestFirst[len(retained)-1-i] = event
	}

	sqliteCfg := cfg.Store
	sqliteCfg.Type = config.StoreTypeSQLite

	sqliteStore, err := events.NewSQLiteStore(ctx, &sqliteCfg)
	if err != nil {
		presenter.Error(err, "Failed to open SQLite store")
		os.Exit(1)
	}
	defer sqliteStore.Close()

	imported, err := sqliteStore.Import(ctx, oldestFirst, summary.TotalRecorded)
	if err != nil {
		presenter.Error(err, "Migration failed")
		os.Exit(1)
	}

	presenter.Success(fmt.Sprintf("Migrated %d events to %s", imported, sqliteCfg.DatabasePath()))
	if skipped := len(oldestFirst) - imported; skipped > 0 {
		presenter.Info(fmt.Sprintf("%d events were already present and were skipped", skipped))
	}

	if !migrateConfig.KeepJSON {
		snapshotPath := cfg.Store.SnapshotPath()
		if err := os.Remove(snapshotPath); err != nil {
			logger.G(ctx).WithError(err).WithField("snapshot_path", snapshotPath).Warn("failed to remove JSON snapshot")
			presenter.Warning(fmt.Sprintf("Could not remove %s: %v", snapshotPath, err))
		} else {
			presenter.Info(fmt.Sprintf("Removed %s", snapshotPath))
		}
	}

	if cfg.Store.Type != config.StoreTypeSQLite {
		presenter.Info("Set store.type: sqlite in your configuration to use the migrated store")
	}
}
