package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "schemeconnect",
	Short: "Scheme and grant catalog with a profile-driven advisor",
	Long: `schemeconnect serves a catalog of grants, loans and programs.

Available subcommands:
  serve  - Run the HTTP API
  import - Normalize a spreadsheet and print the records
  ask    - Ask the advisor a one-shot question against the seed catalog`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./config.yaml or ./configs/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(askCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
