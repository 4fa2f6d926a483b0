package embed

import (
	"fmt"
	"log/slog"

	"github.com/duclm1x1/dive-engine/internal/config"
)

// NewEmbedder creates an embedder from the embeddings config.
//
// Provider "static" returns the hash-based embedder wrapped in the LRU
// cache. Provider "none" returns (nil, nil): callers treat a nil embedder
// as "dense retrieval disabled" and fall back to lexical-only search, per
// the degradation contract.
func NewEmbedder(cfg config.EmbeddingsConfig) (Embedder, error) {
	switch cfg.Provider {
	case "static", "":
		var embedder Embedder = NewStaticEmbedder(cfg.Dimensions)
		embedder = NewCachedEmbedder(embedder, cfg.CacheSize)
		slog.Debug("embedder ready",
			"provider", embedder.ModelName(),
			"dimensions", embedder.Dimensions(),
			"cache_size", cfg.CacheSize)
		return embedder, nil

	case "none":
		slog.Info("embeddings disabled, dense retrieval will be skipped")
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
	}
}
