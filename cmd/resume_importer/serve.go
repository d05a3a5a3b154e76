package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/resume-importer/internal/db"
	"github.com/jonathan/resume-importer/internal/importer"
	"github.com/jonathan/resume-importer/internal/server"
)

var (
	serveSettings settingsFlags
	servePort     int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes REST endpoints for importing résumés.

With a database URL, sessions are recorded and applied drafts replace the résumé of the owner named by the upload's flow_id.`,
	RunE: runServe,
}

func init() {
	serveSettings.register(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := serveSettings.resolve(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
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

	var (
		store server.SessionStore
		opts  []importer.ManagerOption
	)
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			return err
		}
		store = database
		deps.Recorder = database.SessionRecorder()
		opts = append(opts, importer.WithApplierFor(func(flowID string) importer.Applier {
			return database.Applier(flowID)
		}))
	} else {
		logger.Warn("serve.no_database", zap.String("effect", "sessions are not recorded and apply is unavailable"))
	}

	srv := server.New(server.Config{
		Port:           cfg.Port,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, importer.NewManager(deps, opts...), store, logger)

	return srv.Start()
}
