package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// FactoryConfig selects the chat provider and configures both endpoints.
// Embeddings always go through the OpenAI-compatible endpoint since
// Anthropic does not serve them.
type FactoryConfig struct {
	Provider string // "openai" (default) or "anthropic"

	Endpoint       string
	Model          string
	APIKey         string
	EmbeddingModel string

	AnthropicAPIKey string
	AnthropicModel  string
}

// NewClients builds the chat Completer and the Embedder from config.
func NewClients(cfg *FactoryConfig, logger *zap.Logger) (Completer, Embedder, error) {
	openaiClient, err := NewOpenAIClient(&OpenAIConfig{
		Endpoint:       cfg.Endpoint,
		Model:          cfg.Model,
		EmbeddingModel: cfg.EmbeddingModel,
		APIKey:         cfg.APIKey,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create openai client: %w", err)
	}

	switch cfg.Provider {
	case "", "openai":
		return openaiClient, openaiClient, nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, nil, fmt.Errorf("anthropic provider requires an API key")
		}
		if cfg.AnthropicModel == "" {
			return nil, nil, fmt.Errorf("anthropic provider requires a model")
		}
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, logger), openaiClient, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
