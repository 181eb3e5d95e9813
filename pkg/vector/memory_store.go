package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/andrew/llm-rag-poc/pkg/models"
)

// MemoryStore is an in-process Store implementation used in tests and in
// the CLI demo path when no Qdrant instance is configured. It computes
// cosine similarity directly rather than relying on an external index.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]models.Chunk
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[string]models.Chunk)}
}

func (s *MemoryStore) Upsert(ctx context.Context, chunk models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[chunk.ID] = chunk
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, queryVector []float32, opts SearchOptions) ([]models.RetrievedPassage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	type scored struct {
		chunk models.Chunk
		score float32
	}

	var scores []scored
	for _, c := range s.chunks {
		if opts.DomainFilter != "" && c.Domain != opts.DomainFilter {
			continue
		}
		score := cosineSimilarity(queryVector, c.Embedding)
		if score < opts.ScoreFloor {
			continue
		}
		scores = append(scores, scored{chunk: c, score: score})
	}

	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if len(scores) > limit {
		scores = scores[:limit]
	}

	passages := make([]models.RetrievedPassage, 0, len(scores))
	for i, sc := range scores {
		passages = append(passages, models.RetrievedPassage{
			Chunk: sc.chunk,
			Score: sc.score,
			Rank:  i + 1,
		})
	}
	return passages, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
