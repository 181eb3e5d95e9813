package ingest_test

import (
	"context"
	"testing"

	"github.com/andrew/llm-rag-poc/pkg/ingest"
	"github.com/andrew/llm-rag-poc/pkg/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (fakeEmbedder) Dimension() int { return 2 }

func TestIngest_ChunksCarryTheRequestTitle(t *testing.T) {
	t.Parallel()

	store := vector.NewMemoryStore()
	svc := ingest.NewService(store, fakeEmbedder{})

	result, err := svc.Ingest(context.Background(), ingest.Request{
		Text:   "NVIDIA Jetson boards need at least 8GB of RAM for the capstone simulations.",
		Title:  "GPU and Jetson Hardware Requirements",
		Source: "hardware.md",
		Domain: "hardware",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.ChunkIDs)

	passages, err := store.Search(context.Background(), []float32{1, 0}, vector.SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, passages)
	for _, p := range passages {
		assert.Equal(t, "GPU and Jetson Hardware Requirements", p.Chunk.Title)
	}
}

func TestIngest_RejectsEmptyText(t *testing.T) {
	t.Parallel()

	store := vector.NewMemoryStore()
	svc := ingest.NewService(store, fakeEmbedder{})

	_, err := svc.Ingest(context.Background(), ingest.Request{Title: "Empty"})
	require.Error(t, err)
}

func TestChunkText_OverlappingWindowsCoverTheWholeInput(t *testing.T) {
	t.Parallel()

	chunks := ingest.ChunkText("abcdefghij", 4, 1)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "abcd", chunks[0])
	assert.Equal(t, "ghij", chunks[len(chunks)-1])
}

func TestChunkText_ShortTextReturnsSingleChunk(t *testing.T) {
	t.Parallel()

	chunks := ingest.ChunkText("short", 512, 128)
	assert.Equal(t, []string{"short"}, chunks)
}
