package embedding

import (
	"context"
	"fmt"

	"github.com/BerylCAtieno/docvault-api/internal/config"
	"github.com/BerylCAtieno/docvault-api/internal/utils"
)

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Dimensions() int
}

// New builds the embedder selected by cfg.EmbeddingProvider.
func New(cfg *config.Config, logger *utils.Logger) (Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "openai":
		return NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:    cfg.EmbeddingBaseURL,
			APIKey:     cfg.EmbeddingAPIKey,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
		}, logger), nil
	case "hash":
		return NewHashEmbedder(cfg.EmbeddingDimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}
