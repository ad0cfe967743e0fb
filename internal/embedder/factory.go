package embedder

import (
	"fmt"
	"os"
	"strings"

	"codescout/internal/config"
)

// NewFromConfig builds the configured provider. An empty or "none"
// provider returns (nil, nil): embeddings are optional and the caller
// treats a nil Embedder as lexical-only operation.
func NewFromConfig(cfg config.EmbeddingConfig) (Embedder, error) {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" || provider == "none" {
		return nil, nil
	}

	cache := NewCache(cfg.CacheSize)

	switch provider {
	case ProviderOpenAI:
		keyEnv := cfg.APIKeyEnv
		if keyEnv == "" {
			keyEnv = "OPENAI_API_KEY"
		}
		apiKey := os.Getenv(keyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: %s not set", ErrMissingCredentials, keyEnv)
		}
		return NewOpenAIProvider(apiKey, cfg.Model, cfg.Endpoint, cfg.Timeout, cache)
	case ProviderOllama:
		return NewOllamaProvider(cfg.Model, cfg.Endpoint, cfg.Timeout, cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, cfg.Provider)
	}
}
