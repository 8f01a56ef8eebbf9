package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yqzn9/lipidbot/api/schemas"
	"github.com/yqzn9/lipidbot/internal/config"
)

// NewClient is a factory function that creates an LLMClient for a single
// configured model based on its provider.
func NewClient(cfg config.LLMModelConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger)
	case config.ProviderOllama:
		return NewOllamaClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			cfg.Provider, config.ProviderGemini, config.ProviderOllama)
	}
}

// NewRouterFromConfig builds the fast/powerful tier router from the
// llm section of the configuration.
func NewRouterFromConfig(cfg config.LLMRouterConfig, logger *zap.Logger) (*LLMRouter, error) {
	fastCfg, ok := cfg.Models[cfg.DefaultFastModel]
	if !ok {
		return nil, fmt.Errorf("llm.models has no entry for fast model %q", cfg.DefaultFastModel)
	}
	powerfulCfg, ok := cfg.Models[cfg.DefaultPowerfulModel]
	if !ok {
		return nil, fmt.Errorf("llm.models has no entry for powerful model %q", cfg.DefaultPowerfulModel)
	}

	fast, err := NewClient(fastCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create fast tier client: %w", err)
	}
	powerful, err := NewClient(powerfulCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create powerful tier client: %w", err)
	}

	return NewLLMRouter(logger, fast, powerful)
}
