package citation

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"

	"github.com/yqzn9/lipidbot/api/schemas"
)

const keywordBatchSize = 500

// BuildKeywordIndex creates the full-text index over whole citations
// (title + abstract as one document). Any previous index at path is
// replaced.
func BuildKeywordIndex(path string, records []schemas.CitationRecord, logger *zap.Logger) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to clear keyword index %s: %w", path, err)
	}

	index, err := bleve.New(path, bleve.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create keyword index %s: %w", path, err)
	}
	defer index.Close()

	batch := index.NewBatch()
	indexed := 0
	for i, rec := range records {
		text := strings.TrimSpace(rec.Title + " " + rec.Abstract)
		if text == "" {
			continue
		}
		doc := map[string]interface{}{
			"citation_id": rec.CitationID,
			"title":       rec.Title,
			"text":        text,
			"ord":         float64(i),
		}
		if err := batch.Index(rec.CitationID, doc); err != nil {
			return fmt.Errorf("failed to batch citation %s: %w", rec.CitationID, err)
		}
		indexed++

		if batch.Size() >= keywordBatchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("failed to flush keyword batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("failed to flush keyword batch: %w", err)
		}
	}

	logger.Info("Keyword index built", zap.String("path", path), zap.Int("documents", indexed))
	return nil
}

// KeywordRetriever serves lexical matches from the bleve index. Unlike the
// vector retrievers it scores whole citations, so its ChunkID is the
// corpus row ordinal rather than a sentence-window index.
type KeywordRetriever struct {
	index  bleve.Index
	logger *zap.Logger
}

func OpenKeywordRetriever(path string, logger *zap.Logger) (*KeywordRetriever, error) {
	index, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyword index %s: %w", path, err)
	}
	return &KeywordRetriever{
		index:  index,
		logger: logger.Named("citation.keyword"),
	}, nil
}

func (r *KeywordRetriever) Name() string {
	return "keyword"
}

func (r *KeywordRetriever) Search(ctx context.Context, query string, topK int) ([]schemas.Hit, error) {
	if topK <= 0 {
		return nil, nil
	}

	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequestOptions(q, topK, 0, false)
	req.Fields = []string{"citation_id", "title", "text", "ord"}

	res, err := r.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	hits := make([]schemas.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		if h.Score <= 0 {
			continue
		}
		hit := schemas.Hit{Score: h.Score, CitationID: h.ID}
		if v, ok := h.Fields["citation_id"].(string); ok && v != "" {
			hit.CitationID = v
		}
		if v, ok := h.Fields["title"].(string); ok {
			hit.Title = v
		}
		if v, ok := h.Fields["text"].(string); ok {
			hit.Text = v
		}
		if v, ok := h.Fields["ord"].(float64); ok {
			hit.ChunkID = int(v)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (r *KeywordRetriever) Close() error {
	return r.index.Close()
}
