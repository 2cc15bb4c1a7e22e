package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/events"
	"github.com/jingkaihe/hindsight/pkg/logger"
	"github.com/jingkaihe/hindsight/pkg/presenter"
	"github.com/jingkaihe/hindsight/pkg/webui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP API over the event store",
	Long: `Start a local HTTP server exposing the event store and the analysis
pipeline as a read-only JSON API.

The server binds to 127.0.0.1:8280 by default; host and port come from the
serve section of the configuration unless overridden by flags.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		runServeCmd(ctx, cmd)
	},
}

func init() {
	serveCmd.Flags().String("host", "", "Host to bind the API server to (overrides config)")
	serveCmd.Flags().Int("port", 0, "Port to bind the API server to (overrides config)")

	rootCmd.AddCommand(withTracing(serveCmd))
}

// getServeConfigFromFlags resolves the bind address from configuration,
// letting explicitly set flags win.
func getServeConfigFromFlags(cmd *cobra.Command, cfg *config.Config) *webui.ServerConfig {
	serverConfig := &webui.ServerConfig{
		Host: cfg.Serve.Host,
		Port: cfg.Serve.Port,
	}

	if cmd.Flags().Changed("host") {
		if host, err := cmd.Flags().GetString("host"); err == nil {
			serverConfig.Host = host
		}
	}
	if cmd.Flags().Changed("port") {
		if port, err := cmd.Flags().GetInt("port"); err == nil {
			serverConfig.Port = port
		}
	}

	return serverConfig
}

// runServeCmd starts the API server and blocks until interrupted
func runServeCmd(ctx context.Context, cmd *cobra.Command) {
	cfg, err := config.Load()
	if err != nil {
		presenter.Error(err, "Invalid configuration")
		os.Exit(1)
	}

	serverConfig := getServeConfigFromFlags(cmd, cfg)
	if serverConfig.Port < 1024 {
		logger.G(ctx).WithField("port", serverConfig.Port).Warn("using privileged port (< 1024) may require elevated permissions")
	}

	store, err := events.NewStore(ctx, &cfg.Store)
	if err != nil {
		presenter.Error(err, "Failed to open event store")
		os.Exit(1)
	}
	defer store.Close()

	server, err := webui.NewServer(cfg, store, serverConfig)
	if err != nil {
		presenter.Error(err, "Failed to create API server")
		os.Exit(1)
	}

	// Cancel on interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	presenter.Success(fmt.Sprintf("Hindsight API starting on http://%s:%d", serverConfig.Host, serverConfig.Port))
	presenter.Info("Press Ctrl+C to stop the server")

	if err := server.Start(ctx); err != nil {
		logger.G(ctx).WithError(err).Error("API server error")
		presenter.Error(err, "API server failed")
		os.Exit(1)
	}

	presenter.Info("API server stopped")
}
