package vectorstore

import (
	"context"
	"fmt"

	"github.com/BerylCAtieno/docvault-api/internal/config"
)

// NewIndex opens the backend named by cfg.VectorBackend.
func NewIndex(ctx context.Context, cfg *config.Config) (Index, error) {
	switch cfg.VectorBackend {
	case "memory":
		return NewMemoryIndex(), nil
	case "qdrant":
		return NewQdrantIndex(ctx, cfg.QdrantAddr, cfg.QdrantCollection, cfg.EmbeddingDimensions)
	case "pgvector":
		return NewPGVectorIndex(ctx, cfg.PGVectorURL, cfg.PGVectorTable, cfg.EmbeddingDimensions)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}
