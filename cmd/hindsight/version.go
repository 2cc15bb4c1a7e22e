package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/hindsight/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information of hindsight",
	Run: func(cmd *cobra.Command, _ []string) {
		format, _ := cmd.Flags().GetString("format")
		info := version.Get()

		switch format {
		case "short":
			fmt.Println(info.Version)
		case "json":
			out, err := info.JSON()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error generating version JSON: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(out)
		default:
			fmt.Println(info.String())
		}
	},
}

func init() {
	versionCmd.Flags().String("format", "text", "Output format: text, json, or short")
}
