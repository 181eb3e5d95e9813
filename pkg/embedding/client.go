// Package embedding wraps the Ollama embeddings endpoint behind a small
// interface, treating the embedding model as an external collaborator
// distinct from the chat-completion LLM provider.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// Client generates a vector embedding for a piece of text.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// OllamaEmbedder embeds text using a local or remote Ollama server's
// embeddings endpoint via the official client package.
type OllamaEmbedder struct {
	client    *api.Client
	model     string
	dimension int
}

// NewOllamaEmbedder builds an embedder against baseURL using model, and
// records the embedding dimension the collection was provisioned with.
func NewOllamaEmbedder(baseURL, model string, dimension int) (*OllamaEmbedder, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", baseURL, err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	return &OllamaEmbedder{
		client:    api.NewClient(parsed, httpClient),
		model:     model,
		dimension: dimension,
	}, nil
}

// Embed returns the embedding vector for text, truncating overly long
// input before sending it, matching the safety margin the existing
// indexer tooling applies ahead of the embeddings call.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	const maxChars = 2048
	if len(text) > maxChars {
		text = text[:maxChars]
	}

	resp, err := e.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimension reports the embedding vector size this embedder produces.
func (e *OllamaEmbedder) Dimension() int {
	return e.dimension
}
