package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/hindsight/pkg/config"
)

func newServeTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().String("host", "", "Host to bind the API server to (overrides config)")
	cmd.Flags().Int("port", 0, "Port to bind the API server to (overrides config)")
	return cmd
}

func TestGetServeConfigFromFlags(t *testing.T) {
	cfg := &config.Config{
		Serve: config.ServeConfig{
			Host: "127.0.0.1",
			Port: 8280,
		},
	}

	tests := []struct {
		name         string
		setFlags     map[string]string
		expectedHost string
		expectedPort int
	}{
		{
			name:         "config values used when no flags set",
			setFlags:     nil,
			expectedHost: "127.0.0.1",
			expectedPort: 8280,
		},
		{
			name:         "host flag overrides config",
			setFlags:     map[string]string{"host": "0.0.0.0"},
			expectedHost: "0.0.0.0",
			expectedPort: 8280,
		},
		{
			name:         "port flag overrides config",
			setFlags:     map[string]string{"port": "9000"},
			expectedHost: "127.0.0.1",
			expectedPort: 9000,
		},
		{
			name:         "both flags override config",
			setFlags:     map[string]string{"host": "localhost", "port": "8081"},
			expectedHost: "localhost",
			expectedPort: 8081,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newServeTestCommand()
			for flag, value := range tt.setFlags {
				require.NoError(t, cmd.Flags().Set(flag, value))
			}

			serverConfig := getServeConfigFromFlags(cmd, cfg)

			assert.Equal(t, tt.expectedHost, serverConfig.Host)
			assert.Equal(t, tt.expectedPort, serverConfig.Port)
		})
	}
}
