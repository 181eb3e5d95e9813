// Package ingest implements the character-window chunking and
// embed-then-upsert pipeline shared by the HTTP ingest endpoint and the
// ingest CLI.
package ingest

import (
	"context"
	"fmt"

	"github.com/andrew/llm-rag-poc/pkg/embedding"
	"github.com/andrew/llm-rag-poc/pkg/models"
	"github.com/andrew/llm-rag-poc/pkg/vector"
	"github.com/google/uuid"
)

// DefaultChunkSize and DefaultChunkOverlap mirror the teacher indexer's
// character-window defaults.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 128
)

// Request describes one document to ingest.
type Request struct {
	Text     string
	Title    string
	Source   string
	Domain   string
	Section  string
	Metadata map[string]string

	ChunkSize    int
	ChunkOverlap int
}

// Result reports what was ingested.
type Result struct {
	DocumentID string
	ChunkIDs   []string
}

// Service chunks, embeds, and upserts documents into the vector store.
type Service struct {
	Store    vector.Store
	Embedder embedding.Client
}

// NewService builds an ingest Service over the given store and embedder.
func NewService(store vector.Store, embedder embedding.Client) *Service {
	return &Service{Store: store, Embedder: embedder}
}

// Ingest chunks req.Text, embeds each chunk, and upserts it into the
// vector store tagged with req.Domain and req.Source.
func (s *Service) Ingest(ctx context.Context, req Request) (Result, error) {
	if req.Text == "" {
		return Result{}, fmt.Errorf("text is required")
	}

	size := req.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap := req.ChunkOverlap
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}

	documentID := uuid.New().String()
	texts := ChunkText(req.Text, size, overlap)

	chunkIDs := make([]string, 0, len(texts))
	for i, text := range texts {
		vec, err := s.Embedder.Embed(ctx, text)
		if err != nil {
			return Result{}, fmt.Errorf("embed chunk %d: %w", i, err)
		}

		chunkID := fmt.Sprintf("%s-chunk-%d", documentID, i)
		chunk := models.Chunk{
			ID:         chunkID,
			DocumentID: documentID,
			Title:      req.Title,
			Content:    text,
			Source:     req.Source,
			Section:    req.Section,
			Domain:     req.Domain,
			Metadata:   req.Metadata,
			Embedding:  vec,
		}

		if err := s.Store.Upsert(ctx, chunk); err != nil {
			return Result{}, fmt.Errorf("upsert chunk %d: %w", i, err)
		}
		chunkIDs = append(chunkIDs, chunkID)
	}

	return Result{DocumentID: documentID, ChunkIDs: chunkIDs}, nil
}

// ChunkText splits text into overlapping character windows. A text
// shorter than chunkSize is returned as a single chunk.
func ChunkText(text string, chunkSize, overlap int) []string {
	if len(text) == 0 {
		return nil
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	stride := chunkSize - overlap
	for i := 0; i < len(text); i += stride {
		end := i + chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[i:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}
