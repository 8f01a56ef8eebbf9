package citation

import (
	"context"
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"go.uber.org/zap"

	"github.com/yqzn9/lipidbot/api/schemas"
)

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

func safeName(s string) string {
	return unsafeNameRe.ReplaceAllString(s, "_")
}

// buildSignature identifies one vector store build: the corpus content plus
// the embedding model and chunking parameters. A store whose signature no
// longer matches is rebuilt rather than trusted.
type buildSignature struct {
	CorpusSHA256 string
	CorpusSize   int64
	Model        string
	ChunkSize    int
	ChunkOverlap int
}

func makeBuildSignature(corpusPath, model string, chunkSize, chunkOverlap int) (buildSignature, error) {
	f, err := os.Open(corpusPath)
	if err != nil {
		return buildSignature{}, fmt.Errorf("failed to open corpus %s: %w", corpusPath, err)
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return buildSignature{}, fmt.Errorf("failed to hash corpus %s: %w", corpusPath, err)
	}
	return buildSignature{
		CorpusSHA256: fmt.Sprintf("%x", h.Sum(nil)),
		CorpusSize:   size,
		Model:        model,
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}, nil
}

// vectorStore is the persisted embedding index for one model: unit-length
// vectors aligned with their chunks, searched by inner product.
type vectorStore struct {
	Signature buildSignature
	Chunks    []schemas.Chunk
	Vectors   [][]float32
}

func vectorStorePath(indexDir, model string) string {
	return filepath.Join(indexDir, safeName(model)+".vectors.gob")
}

func (s *vectorStore) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create vector store directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create vector store %s: %w", path, err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("failed to encode vector store: %w", err)
	}
	return nil
}

func loadVectorStore(path string) (*vectorStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store %s: %w", path, err)
	}
	defer f.Close()

	var s vectorStore
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode vector store %s: %w", path, err)
	}
	if len(s.Vectors) != len(s.Chunks) {
		return nil, fmt.Errorf("vector store %s is corrupt: %d vectors for %d chunks", path, len(s.Vectors), len(s.Chunks))
	}
	return &s, nil
}

// normalizeVec scales v to unit length in place so that the inner product
// of two vectors is their cosine similarity.
func normalizeVec(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum) + 1e-12
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

const embedBatchSize = 64

// buildVectorStore chunks nothing itself; it embeds the given chunks in
// batches and normalizes the result for cosine search.
func buildVectorStore(ctx context.Context, embedder schemas.Embedder, sig buildSignature, chunks []schemas.Chunk) (*vectorStore, error) {
	vectors := make([][]float32, 0, len(chunks))

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		batch, err := embedder.Embed(ctx, sig.Model, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch at offset %d: %w", start, err)
		}
		for _, v := range batch {
			normalizeVec(v)
			vectors = append(vectors, v)
		}
	}

	return &vectorStore{Signature: sig, Chunks: chunks, Vectors: vectors}, nil
}

// VectorRetriever answers queries against one model's vector store via
// brute-force inner product over normalized embeddings.
type VectorRetriever struct {
	store    *vectorStore
	embedder schemas.Embedder
	logger   *zap.Logger
}

func NewVectorRetriever(store *vectorStore, embedder schemas.Embedder, logger *zap.Logger) *VectorRetriever {
	return &VectorRetriever{
		store:    store,
		embedder: embedder,
		logger:   logger.Named("citation.vector"),
	}
}

func (r *VectorRetriever) Name() string {
	return "embed:" + r.store.Signature.Model
}

func (r *VectorRetriever) Search(ctx context.Context, query string, topK int) ([]schemas.Hit, error) {
	if topK <= 0 || len(r.store.Chunks) == 0 {
		return nil, nil
	}

	qvecs, err := r.embedder.Embed(ctx, r.store.Signature.Model, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(qvecs) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(qvecs))
	}
	qvec := qvecs[0]
	normalizeVec(qvec)

	scores := make([]float64, len(r.store.Vectors))
	order := make([]int, len(r.store.Vectors))
	for i, v := range r.store.Vectors {
		scores[i] = dot(qvec, v)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topK > len(order) {
		topK = len(order)
	}
	hits := make([]schemas.Hit, 0, topK)
	for _, idx := range order[:topK] {
		ch := r.store.Chunks[idx]
		hits = append(hits, schemas.Hit{
			Score:      scores[idx],
			CitationID: ch.CitationID,
			ChunkID:    ch.ChunkID,
			Text:       ch.Text,
			Title:      ch.Title,
		})
	}
	return hits, nil
}
