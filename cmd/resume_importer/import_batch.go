package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-importer/internal/importer"
	"github.com/jonathan/resume-importer/internal/observability"
)

var importBatchCmd = &cobra.Command{
	Use:   "import-batch FILE...",
	Short: "Import many résumés concurrently",
	Long: `Imports every given résumé in its own session and writes one <name>.json draft per file into --out-dir.

A failed file does not stop the others; the command fails if any file failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImportBatch,
}

var (
	batchSettings    settingsFlags
	batchOutDir      string
	batchConcurrency int
	batchRetries     int
)

func init() {
	batchSettings.register(importBatchCmd)
	importBatchCmd.Flags().StringVarP(&batchOutDir, "out-dir", "o", "", "Directory for the JSON drafts")
	importBatchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "Maximum number of files imported at once")
	importBatchCmd.Flags().IntVar(&batchRetries, "retries", 1, "Regenerate this many times when the provider fails transiently")

	_ = importBatchCmd.MarkFlagRequired("out-dir")
	rootCmd.AddCommand(importBatchCmd)
}

// batchResult is the outcome of one file.
type batchResult struct {
	File    string
	Output  string
	State   importer.State
	Failure *importer.Error
	Err     error
}

func runImportBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := batchSettings.resolve(cmd)
	if err != nil {
		return err
	}
	if batchConcurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}
	if err := os.MkdirAll(batchOutDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
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

	results := importAll(ctx, deps, args, batchOutDir, batchConcurrency, batchRetries)
	return reportBatch(cmd.OutOrStdout(), results)
}

// importAll imports files with at most limit sessions in flight. Results keep
// the order of files.
func importAll(ctx context.Context, deps importer.Deps, files []string, outDir string, limit, retries int) []batchResult {
	results := make([]batchResult, len(files))
	quiet := observability.NewPrinter(io.Discard)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, file := range files {
		g.Go(func() error {
			results[i] = importOne(gCtx, deps, file, outDir, retries, quiet)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func importOne(ctx context.Context, deps importer.Deps, file, outDir string, retries int, printer *observability.Printer) batchResult {
	result := batchResult{File: file}

	session, err := runSession(ctx, deps, file, retries, printer)
	result.State = session.State()
	result.Failure = session.Failure()
	if err != nil {
		result.Err = err
		deps.Logger.Warn("cli.batch.failed", zap.String("file", file), zap.Error(err))
		return result
	}

	jsonBytes, err := json.MarshalIndent(session.Draft(), "", "  ")
	if err != nil {
		result.Err = fmt.Errorf("failed to marshal JSON: %w", err)
		return result
	}
	result.Output = filepath.Join(outDir, strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))+".json")
	if err := writeOutput(result.Output, jsonBytes); err != nil {
		result.Err = err
		result.Output = ""
	}
	return result
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func reportBatch(out io.Writer, results []batchResult) error {
	failed := 0
	for _, r := range results {
		switch {
		case r.Err == nil:
			fmt.Fprintf(out, "✓ %s -> %s\n", r.File, r.Output)
		case r.Failure != nil:
			failed++
			fmt.Fprintf(out, "✗ %s: %s (%s)\n", r.File, r.Failure.Kind, r.Failure.Recovery())
		default:
			failed++
			fmt.Fprintf(out, "✗ %s: %v\n", r.File, r.Err)
		}
	}
	fmt.Fprintf(out, "\n%d imported, %d failed\n", len(results)-failed, failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to import", failed, len(results))
	}
	return nil
}
