package citation

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/yqzn9/lipidbot/api/schemas"
	"github.com/yqzn9/lipidbot/internal/config"
)

func keywordIndexPath(indexDir string) string {
	return filepath.Join(indexDir, "keyword.bleve")
}

// BuildIndexes builds everything Search needs from the corpus CSV: one
// vector store per embedding model plus the keyword index. Vector stores
// whose build signature still matches the corpus are reused as-is.
func BuildIndexes(ctx context.Context, cfg config.CitationConfig, embedder schemas.Embedder, logger *zap.Logger) error {
	logger = logger.Named("citation.builder")

	records, err := LoadCorpus(cfg.CorpusCSV)
	if err != nil {
		return err
	}
	chunks := BuildChunks(records, cfg.ChunkSize, cfg.ChunkOverlap)
	logger.Info("Corpus loaded",
		zap.String("path", cfg.CorpusCSV),
		zap.Int("records", len(records)),
		zap.Int("chunks", len(chunks)),
	)

	for _, model := range cfg.EmbeddingModels {
		sig, err := makeBuildSignature(cfg.CorpusCSV, model, cfg.ChunkSize, cfg.ChunkOverlap)
		if err != nil {
			return err
		}
		path := vectorStorePath(cfg.IndexDir, model)

		if existing, err := loadVectorStore(path); err == nil && existing.Signature == sig {
			logger.Info("Vector store up to date", zap.String("model", model), zap.String("path", path))
			continue
		}

		logger.Info("Embedding corpus", zap.String("model", model), zap.Int("chunks", len(chunks)))
		store, err := buildVectorStore(ctx, embedder, sig, chunks)
		if err != nil {
			return fmt.Errorf("failed to build vector store for %s: %w", model, err)
		}
		if err := store.save(path); err != nil {
			return err
		}
		logger.Info("Vector store saved", zap.String("model", model), zap.String("path", path))
	}

	return BuildKeywordIndex(keywordIndexPath(cfg.IndexDir), records, logger)
}

// OpenRetrievers loads the previously built vector stores and keyword
// index for serving. Every configured embedding model must have a store;
// run the index build first.
func OpenRetrievers(cfg config.CitationConfig, embedder schemas.Embedder, logger *zap.Logger) ([]Retriever, error) {
	var retrievers []Retriever

	for _, model := range cfg.EmbeddingModels {
		store, err := loadVectorStore(vectorStorePath(cfg.IndexDir, model))
		if err != nil {
			return nil, fmt.Errorf("vector store for %s is unavailable (run the index build): %w", model, err)
		}
		retrievers = append(retrievers, NewVectorRetriever(store, embedder, logger))
	}

	keyword, err := OpenKeywordRetriever(keywordIndexPath(cfg.IndexDir), logger)
	if err != nil {
		return nil, fmt.Errorf("keyword index is unavailable (run the index build): %w", err)
	}
	retrievers = append(retrievers, keyword)

	return retrievers, nil
}
