package citation

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yqzn9/lipidbot/internal/config"
)

// hashEmbedder derives a small deterministic vector from the text content,
// enough to exercise the build pipeline end to end.
type hashEmbedder struct {
	batches atomic.Int32
}

func (h *hashEmbedder) Embed(_ context.Context, _ string, texts []string) ([][]float32, error) {
	h.batches.Add(1)
	out := make([][]float32, 0, len(texts))
	for _, txt := range texts {
		v := make([]float32, 4)
		for i, b := range []byte(txt) {
			v[i%4] += float32(b) / 255.0
		}
		out = append(out, v)
	}
	return out, nil
}

func writeTestCorpus(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "citations.csv")
	content := "citation_id,title,abstract\n" +
		"W1,Palmitic acid biosynthesis,\"Plants elongate acyl chains. KAS enzymes drive each cycle.\"\n" +
		"W2,Membrane lipid transport,Transporters move lipids between organelles.\n" +
		"W3,,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCorpus(t *testing.T) {
	path := writeTestCorpus(t, t.TempDir())

	records, err := LoadCorpus(path)
	require.NoError(t, err)
	require.Len(t, records, 2, "rows without a citation_id are skipped")

	assert.Equal(t, "W1", records[0].CitationID)
	assert.Equal(t, "Palmitic acid biosynthesis", records[0].Title)
	assert.Contains(t, records[0].Abstract, "KAS enzymes")
	assert.Equal(t, "W2", records[1].CitationID)
}

func TestLoadCorpus_MissingColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,text\n1,hello\n"), 0o644))

	_, err := LoadCorpus(path)
	assert.ErrorContains(t, err, "citation_id")

	_, err = LoadCorpus(filepath.Join(dir, "absent.csv"))
	assert.Error(t, err)
}

func TestBuildIndexesAndOpenRetrievers(t *testing.T) {
	dir := t.TempDir()
	cfg := config.CitationConfig{
		IndexDir:        filepath.Join(dir, "index"),
		CorpusCSV:       writeTestCorpus(t, dir),
		EmbeddingModels: []string{"test-embed"},
		ChunkSize:       180,
		ChunkOverlap:    40,
		TopK:            5,
		RRFK:            60,
	}
	logger := zaptest.NewLogger(t)
	emb := &hashEmbedder{}

	require.NoError(t, BuildIndexes(context.Background(), cfg, emb, logger))
	firstBatches := emb.batches.Load()
	assert.Greater(t, firstBatches, int32(0))

	// Unchanged corpus: the vector store signature matches and nothing
	// is re-embedded.
	require.NoError(t, BuildIndexes(context.Background(), cfg, emb, logger))
	assert.Equal(t, firstBatches, emb.batches.Load())

	retrievers, err := OpenRetrievers(cfg, emb, logger)
	require.NoError(t, err)
	require.Len(t, retrievers, 2, "one vector store plus the keyword index")
	assert.Equal(t, "embed:test-embed", retrievers[0].Name())
	assert.Equal(t, "keyword", retrievers[1].Name())

	svc := NewService(retrievers, cfg, logger)
	defer svc.Close()

	hits, err := svc.Search(context.Background(), "Palmitic acid biosynthesis", SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	seen := make(map[string]bool)
	for _, h := range hits {
		seen[h.CitationID] = true
	}
	assert.True(t, seen["W1"])
}

func TestOpenRetrievers_MissingStore(t *testing.T) {
	cfg := config.CitationConfig{
		IndexDir:        t.TempDir(),
		EmbeddingModels: []string{"never-built"},
	}
	_, err := OpenRetrievers(cfg, &hashEmbedder{}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run the index build")
}
