package citation

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yqzn9/lipidbot/api/schemas"
)

// fakeEmbedder maps known texts to fixed vectors so search results are
// fully deterministic.
type fakeEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, 0, len(texts))
	for _, txt := range texts {
		v, ok := f.vectors[txt]
		if !ok {
			return nil, fmt.Errorf("no fixture vector for %q", txt)
		}
		// Copy: the retriever normalizes in place.
		out = append(out, append([]float32(nil), v...))
	}
	return out, nil
}

func testVectorFixture() (*fakeEmbedder, []schemas.Chunk) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"palmitic acid synthesis": {1, 0, 0},
		"membrane transport":      {0, 1, 0},
		"seed germination":        {0, 0, 1},
		"fatty acid query":        {0.9, 0.1, 0},
	}}
	chunks := []schemas.Chunk{
		{CitationID: "W1", ChunkID: 0, Text: "palmitic acid synthesis", Title: "FA paper"},
		{CitationID: "W2", ChunkID: 0, Text: "membrane transport", Title: "Transport paper"},
		{CitationID: "W3", ChunkID: 0, Text: "seed germination", Title: "Seed paper"},
	}
	return emb, chunks
}

func TestBuildVectorStoreAndSearch(t *testing.T) {
	emb, chunks := testVectorFixture()
	sig := buildSignature{Model: "test-embed", ChunkSize: 180, ChunkOverlap: 40}

	store, err := buildVectorStore(context.Background(), emb, sig, chunks)
	require.NoError(t, err)
	require.Len(t, store.Vectors, 3)

	r := NewVectorRetriever(store, emb, zaptest.NewLogger(t))
	assert.Equal(t, "embed:test-embed", r.Name())

	hits, err := r.Search(context.Background(), "fatty acid query", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "W1", hits[0].CitationID)
	assert.Equal(t, "FA paper", hits[0].Title)
	assert.Equal(t, "W2", hits[1].CitationID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	// Unit vectors: the cosine against the closest axis is close to 1.
	assert.InDelta(t, 0.994, hits[0].Score, 0.01)
}

func TestVectorRetriever_TopKBounds(t *testing.T) {
	emb, chunks := testVectorFixture()
	sig := buildSignature{Model: "test-embed"}
	store, err := buildVectorStore(context.Background(), emb, sig, chunks)
	require.NoError(t, err)

	r := NewVectorRetriever(store, emb, zaptest.NewLogger(t))

	hits, err := r.Search(context.Background(), "fatty acid query", 50)
	require.NoError(t, err)
	assert.Len(t, hits, 3, "top_k larger than the store returns everything")

	hits, err = r.Search(context.Background(), "fatty acid query", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestVectorStore_SaveLoadRoundTrip(t *testing.T) {
	emb, chunks := testVectorFixture()
	sig := buildSignature{CorpusSHA256: "abc", CorpusSize: 42, Model: "test-embed", ChunkSize: 180, ChunkOverlap: 40}
	store, err := buildVectorStore(context.Background(), emb, sig, chunks)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "store", "test.vectors.gob")
	require.NoError(t, store.save(path))

	loaded, err := loadVectorStore(path)
	require.NoError(t, err)
	assert.Equal(t, sig, loaded.Signature)
	assert.Equal(t, store.Chunks, loaded.Chunks)
	assert.Equal(t, store.Vectors, loaded.Vectors)
}

func TestLoadVectorStore_Missing(t *testing.T) {
	_, err := loadVectorStore(filepath.Join(t.TempDir(), "nope.gob"))
	assert.Error(t, err)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "nomic-embed-text", safeName("nomic-embed-text"))
	assert.Equal(t, "org_model_v1.5", safeName("org/model:v1.5"))
}
