package extraction

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/resume-importer/internal/config"
	"github.com/jonathan/resume-importer/internal/llm"
)

// ProviderRules selects the offline RuleBasedService.
const ProviderRules = "rules"

// New builds the Service named by cfg.Provider. The returned close function releases
// the underlying client and is never nil.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Service, func() error, error) {
	noop := func() error { return nil }
	if logger == nil {
		logger = zap.NewNop()
	}

	provider := cfg.Provider
	if provider == "" {
		provider = config.DefaultProvider
	}
	if provider == ProviderRules {
		return NewRuleBasedService(), noop, nil
	}

	llmCfg := llm.ConfigFor(llm.Provider(provider))
	if llmCfg == nil {
		return nil, noop, fmt.Errorf("unknown extraction provider %q", provider)
	}
	if cfg.Model != "" {
		llmCfg = llmCfg.WithModel(llm.TierStandard, cfg.Model)
	}
	if cfg.BaseURL != "" {
		llmCfg = llmCfg.WithBaseURL(cfg.BaseURL)
	}
	llmCfg.Timeout = cfg.RequestTimeout()

	client, err := llm.NewClient(ctx, llmCfg, cfg.APIKey, logger)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewLLMService(client, logger), client.Close, nil
}
