package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-importer/schemas"
)

var schemaOut string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema extraction output must satisfy",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if schemaOut != "" {
			if err := writeOutput(schemaOut, schemas.ResumeDraft()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", schemaOut)
			return nil
		}
		_, err := cmd.OutOrStdout().Write(schemas.ResumeDraft())
		return err
	},
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaOut, "out", "o", "", "Path to output file (defaults to stdout)")
	rootCmd.AddCommand(schemaCmd)
}
