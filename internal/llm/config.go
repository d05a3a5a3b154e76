// Package llm provides centralized LLM configuration and client abstractions.
// Clients return schema-constrained JSON from Gemini or from any OpenAI-compatible endpoint.
package llm

import "time"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: classification, short extraction
	TierLite ModelTier = "lite"
	// TierStandard is for structured output over a full document
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long or messy documents
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is any hosted OpenAI-compatible chat completions API
	ProviderOpenAI Provider = "openai"
	// ProviderLocal is a model served on the local machine through an OpenAI-compatible API (Ollama, llama.cpp)
	ProviderLocal Provider = "local"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultLocalBaseURL  = "http://localhost:11434/v1"
	defaultTimeout       = 120 * time.Second
	defaultTemperature   = 0.1
)

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	BaseURL     string // OpenAI-compatible providers only
	Temperature float32
	Timeout     time.Duration
}

// DefaultConfig returns the default configuration (Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: defaultTemperature,
		Timeout:     defaultTimeout,
	}
}

// DefaultOpenAIConfig returns the default hosted OpenAI configuration
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o-mini",
			TierAdvanced: "gpt-4o",
		},
		BaseURL:     defaultOpenAIBaseURL,
		Temperature: defaultTemperature,
		Timeout:     defaultTimeout,
	}
}

// DefaultLocalConfig returns the default configuration for a local Ollama server
func DefaultLocalConfig() *Config {
	return &Config{
		Provider: ProviderLocal,
		Models: map[ModelTier]string{
			TierStandard: "llama3.1",
		},
		BaseURL:     defaultLocalBaseURL,
		Temperature: defaultTemperature,
		Timeout:     defaultTimeout,
	}
}

// ConfigFor returns the default configuration of provider, or nil if unknown.
func ConfigFor(provider Provider) *Config {
	switch provider {
	case ProviderGemini:
		return DefaultGeminiConfig()
	case ProviderOpenAI:
		return DefaultOpenAIConfig()
	case ProviderLocal:
		return DefaultLocalConfig()
	}
	return nil
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}

// WithBaseURL returns a new Config pointing at another OpenAI-compatible endpoint
func (c *Config) WithBaseURL(baseURL string) *Config {
	newConfig := c.WithModel(TierStandard, c.GetModel(TierStandard))
	newConfig.BaseURL = baseURL
	return newConfig
}
