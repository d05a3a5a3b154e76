package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jonathan/resume-importer/internal/config"
	"github.com/jonathan/resume-importer/internal/extraction"
	"github.com/jonathan/resume-importer/internal/importer"
	"github.com/jonathan/resume-importer/internal/ingestion"
	"github.com/jonathan/resume-importer/internal/llm"
)

// settingsFlags are the configuration flags shared by every command that
// runs the pipeline.
type settingsFlags struct {
	configPath string
	provider   string
	model      string
	apiKey     string
	baseURL    string
	minText    int
	timeout    int
	dbURL      string
	verbose    bool
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	// Config file flag (processed first)
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	cmd.Flags().StringVar(&f.provider, "provider", "", "Extraction provider: gemini, openai, local or rules (default gemini)")
	cmd.Flags().StringVar(&f.model, "model", "", "Model name (defaults to the provider's standard model)")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Provider API key (optional, defaults to GEMINI_API_KEY env var)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Base URL of an OpenAI-compatible endpoint")
	cmd.Flags().IntVar(&f.minText, "min-text", 0, "Minimum number of extracted characters (default 80)")
	cmd.Flags().IntVar(&f.timeout, "timeout", 0, "Extraction request timeout in seconds (default 120)")
	cmd.Flags().StringVar(&f.dbURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print detailed debug information")
}

// resolve merges, in increasing priority: built-in defaults, the environment,
// the config file and the flags that were explicitly set.
func (f *settingsFlags) resolve(cmd *cobra.Command) (*config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	// Only override if the flag was explicitly set
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = f.provider
	}
	if flags.Changed("model") {
		cfg.Model = f.model
	}
	if flags.Changed("api-key") {
		cfg.APIKey = f.apiKey
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = f.baseURL
	}
	if flags.Changed("min-text") {
		cfg.MinTextLength = f.minText
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeoutSeconds = f.timeout
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = f.dbURL
	}
	if flags.Changed("verbose") {
		cfg.Verbose = f.verbose
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg = cfg.MergeWithDefaults(config.Config{})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if needsAPIKey(cfg.Provider) && cfg.APIKey == "" {
		return nil, fmt.Errorf("%s environment variable or --api-key flag is required for provider %q", config.EnvAPIKey, cfg.Provider)
	}
	return &cfg, nil
}

func needsAPIKey(provider string) bool {
	return provider != extraction.ProviderRules && provider != string(llm.ProviderLocal)
}

// newLogger returns a production logger on stderr. Without verbose only
// warnings and errors are logged, so command output stays readable.
func newLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return zcfg.Build()
}

// newDeps wires the extraction service selected by cfg into session dependencies.
// The returned close function releases the service client.
func newDeps(ctx context.Context, cfg *config.Config, logger *zap.Logger) (importer.Deps, func() error, error) {
	service, closeService, err := extraction.New(ctx, cfg, logger)
	if err != nil {
		return importer.Deps{}, closeService, err
	}
	return importer.Deps{
		Text:          ingestion.NewExtractor(nil, nil),
		Service:       service,
		MinTextLength: cfg.MinTextLength,
		Logger:        logger,
	}, closeService, nil
}

func closeQuietly(logger *zap.Logger, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warn("cli.close_failed", zap.Error(err))
	}
}

func writeOutput(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
