package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/terra-clan/scheme-connect/internal/ingest"
	"github.com/terra-clan/scheme-connect/internal/models"
)

var importFormat string

// importCmd normalizes a spreadsheet without a running server
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Normalize a spreadsheet and print the records",
	Long: `Read an .xlsx or .csv file, normalize every row into a scheme and
print the records. Missing fields receive the same defaults as an upload.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "json", "Output format: json or yaml")
}

func runImport(cmd *cobra.Command, args []string) error {
	schemes, err := ingest.File(args[0])
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ingest.FailureMessage)
		return err
	}
	return writeSchemes(cmd.OutOrStdout(), schemes, importFormat)
}

func writeSchemes(w io.Writer, schemes []models.Scheme, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(schemes)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string][]models.Scheme{"schemes": schemes}); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}
