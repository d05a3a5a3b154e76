package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/resume-importer/internal/db"
	"github.com/jonathan/resume-importer/internal/importer"
	"github.com/jonathan/resume-importer/internal/ingestion"
	"github.com/jonathan/resume-importer/internal/observability"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a PDF or DOCX résumé into a reviewed canonical draft",
	Long: `Extracts the text of a résumé, asks the extraction provider for a structured draft and prints the canonical draft as JSON.

With --apply the draft replaces the owner's résumé in the database.
Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runImport,
}

var (
	importSettings settingsFlags
	importFile     string
	importOut      string
	importApply    bool
	importOwner    string
	importRetries  int
)

func init() {
	importSettings.register(importCmd)
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "Path to the résumé (.pdf or .docx)")
	importCmd.Flags().StringVarP(&importOut, "out", "o", "", "Path to output JSON file (defaults to stdout)")
	importCmd.Flags().BoolVar(&importApply, "apply", false, "Replace the owner's stored résumé with the draft")
	importCmd.Flags().StringVar(&importOwner, "owner", "", "Owner ID of the stored résumé (required with --apply)")
	importCmd.Flags().IntVar(&importRetries, "retries", 1, "Regenerate this many times when the provider fails transiently")

	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := importSettings.resolve(cmd)
	if err != nil {
		return err
	}
	if importApply {
		if importOwner == "" {
			return fmt.Errorf("--owner is required with --apply")
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required with --apply")
		}
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	deps, closeService, err := newDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeQuietly(logger, closeService)

	if importApply {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			return err
		}
		deps.Applier = database.Applier(importOwner)
		deps.Recorder = database.SessionRecorder()
	}

	// The draft goes to stdout unless --out is set, so the report goes to stderr.
	report := cmd.OutOrStdout()
	if importOut == "" {
		report = cmd.ErrOrStderr()
	}
	printer := observability.NewPrinter(report)

	session, err := runSession(ctx, deps, importFile, importRetries, printer)
	if err != nil {
		printer.PrintFailure(session.Failure())
		return err
	}
	if cfg.Verbose {
		printer.PrintExtractedText(session.Text())
	}
	printer.PrintDraft(session.Draft())

	if importApply {
		if err := session.Apply(ctx, nil); err != nil {
			printer.PrintFailure(session.Failure())
			return fmt.Errorf("failed to apply draft: %w", err)
		}
		_, _ = fmt.Fprintf(report, "Applied draft to résumé of owner %s\n", importOwner)
	}

	return writeDraft(cmd.OutOrStdout(), importOut, session)
}

// runSession imports path in a fresh session, printing page progress as it
// arrives. Failures the user can retry are regenerated up to retries times.
// The session is returned even on failure.
func runSession(ctx context.Context, deps importer.Deps, path string, retries int, printer *observability.Printer) (*importer.Session, error) {
	session := importer.NewSession("", "cli", deps)

	file, err := ingestion.ReadFile(path)
	if err != nil {
		return session, err
	}

	stream := session.Events()
	streamCtx, stopStream := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			ev, ok := stream.Next(streamCtx)
			if !ok {
				return
			}
			printProgress(printer, ev)
		}
	}()

	err = session.Submit(ctx, file)
	for attempt := 0; err != nil && attempt < retries && retryable(session); attempt++ {
		deps.Logger.Info("cli.regenerate", zap.String("file", path), zap.Int("attempt", attempt+1), zap.Error(err))
		err = session.Regenerate(ctx)
	}

	stopStream()
	<-done
	for stream.Pending() {
		ev, _ := stream.Next(ctx)
		printProgress(printer, ev)
	}
	return session, err
}

func printProgress(printer *observability.Printer, ev importer.Event) {
	if printer != nil && ev.Page != nil {
		printer.PrintProgress(*ev.Page)
	}
}

func retryable(session *importer.Session) bool {
	failure := session.Failure()
	return failure != nil && failure.Stage == importer.StageStructure && failure.Recovery() == importer.RecoveryRetry
}

func writeDraft(stdout io.Writer, path string, session *importer.Session) error {
	draft := session.Draft()
	if draft == nil {
		return errors.New("session has no draft")
	}
	jsonBytes, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if path == "" {
		_, err := fmt.Fprintln(stdout, string(jsonBytes))
		return err
	}
	if err := writeOutput(path, jsonBytes); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Output: %s\n", path)
	return nil
}
