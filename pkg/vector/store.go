package vector

import (
	"context"

	"github.com/andrew/llm-rag-poc/pkg/models"
)

// SearchOptions scopes a similarity search.
type SearchOptions struct {
	// DomainFilter restricts results to chunks tagged with this domain.
	// Empty means unfiltered.
	DomainFilter string
	// Limit is the maximum number of results to return.
	Limit int
	// ScoreFloor drops any result scoring below this threshold.
	ScoreFloor float32
}

// Store defines the interface for vector database operations
type Store interface {
	// Upsert inserts or updates a chunk's vector in the database
	Upsert(ctx context.Context, chunk models.Chunk) error

	// Search finds the most similar vectors to the given query vector
	Search(ctx context.Context, queryVector []float32, opts SearchOptions) ([]models.RetrievedPassage, error)

	// Delete removes a vector from the store
	Delete(ctx context.Context, id string) error

	// Close releases resources used by the vector store
	Close() error
}

// Config contains configuration for a vector database
type Config struct {
	Collection    string // Collection/index name
	Dimension     int    // Vector dimension size
	ConnectionURL string // URL for database connection
}
