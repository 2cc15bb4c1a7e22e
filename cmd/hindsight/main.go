package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/hindsight/pkg/config"
)

func init() {
	viper.SetEnvPrefix("HINDSIGHT")
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.hindsight")
	viper.AddConfigPath(".")

	// Ignore errors if config file not found
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "hindsight",
	Short: "Hindsight records tool activity and recommends automations",
	Long: `Hindsight is a local utility that records events from your development
workflows, analyzes them for recurring patterns, and recommends automations
worth building for the patterns it finds.`,
	// Default behavior is to show help if no subcommand is provided
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(1)
	},
}

func main() {
	// Add global flags
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt or json)")
	rootCmd.PersistentFlags().String("base-path", ".hindsight", "Store base path (overrides config)")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("store.base_path", rootCmd.PersistentFlags().Lookup("base-path"))

	// Add subcommands
	rootCmd.AddCommand(withTracing(recordCmd))
	rootCmd.AddCommand(withTracing(eventsCmd))
	rootCmd.AddCommand(withTracing(statusCmd))
	rootCmd.AddCommand(withTracing(reportCmd))
	rootCmd.AddCommand(versionCmd)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	shutdownTracing()
}
