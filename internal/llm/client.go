package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// StructuredRequest asks a model for one JSON value conforming to Schema.
type StructuredRequest struct {
	// System carries the standing instructions; Prompt carries the document.
	System string
	Prompt string
	// SchemaName labels the schema for providers that require one.
	SchemaName string
	// Schema is a decoded JSON Schema document.
	Schema map[string]any
}

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateStructured returns the raw JSON text produced under the request's schema constraint
	GenerateStructured(ctx context.Context, req StructuredRequest, tier ModelTier) (string, error)
	// GetModel returns the provider model name used for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string, logger *zap.Logger) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("API key is required for provider %s", config.Provider)
		}
		return NewOpenAICompatClient(config, apiKey, logger)
	case ProviderLocal:
		return NewOpenAICompatClient(config, apiKey, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", config.Provider)
	}
}
