// Package main provides the resume_importer CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "resume_importer",
	Short:        "Résumé PDF/DOCX import and structured extraction",
	Long:         "resume_importer reads PDF and DOCX résumés, extracts a schema-validated draft with an LLM and lets you review and apply it, from the command line or via REST API.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
