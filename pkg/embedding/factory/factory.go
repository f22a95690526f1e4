package factory

import (
	"fmt"

	"docchat-be/pkg/embedding"
	"docchat-be/pkg/embedding/jina"
)

type Config struct {
	Provider string
	BaseURL  string
	Model    string
	ApiKey   string
}

func NewEmbeddingProvider(cfg Config) (embedding.EmbeddingProvider, error) {
	switch cfg.Provider {
	case "", "ollama":
		return embedding.NewOllamaProvider(cfg.BaseURL, cfg.Model), nil
	case "gemini":
		if cfg.ApiKey == "" {
			return nil, fmt.Errorf("gemini embedding provider requires an api key")
		}
		return embedding.NewGeminiProvider(cfg.ApiKey, cfg.Model), nil
	case "jina":
		if cfg.ApiKey == "" {
			return nil, fmt.Errorf("jina embedding provider requires an api key")
		}
		return jina.NewJinaProvider(cfg.ApiKey, cfg.Model, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
