package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/events"
	"github.com/jingkaihe/hindsight/pkg/patterns"
	"github.com/jingkaihe/hindsight/pkg/presenter"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [snapshot|recommendation|config]",
	Short: "Print the JSON schema for a Hindsight data format",
	Long: `Print the JSON schema for one of Hindsight's data formats.

Available schemas:
  snapshot        The on-disk events.json snapshot
  recommendation  A recommendation entry from report --format json
  config          The config.yaml configuration file`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := "snapshot"
		if len(args) > 0 {
			name = args[0]
		}
		runSchemaCmd(name)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

// runSchemaCmd executes the schema command
func runSchemaCmd(name string) {
	schema, err := generateSchema(name)
	if err != nil {
		presenter.Error(err, "Unknown schema")
		os.Exit(1)
	}

	output, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		presenter.Error(err, "Failed to generate schema JSON")
		os.Exit(1)
	}
	fmt.Println(string(output))
}

// generateSchema reflects the schema for the named data format
func generateSchema(name string) (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	switch name {
	case "snapshot":
		return reflector.Reflect(&events.Snapshot{}), nil
	case "recommendation":
		return reflector.Reflect(&patterns.Recommendation{}), nil
	case "config":
		// The config file is YAML, so reflect its yaml field names.
		reflector.FieldNameTag = "yaml"
		return reflector.Reflect(&config.Config{}), nil
	default:
		return nil, errors.Errorf("unknown schema %q (available: snapshot, recommendation, config)", name)
	}
}
