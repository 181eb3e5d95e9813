package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/andrew/llm-rag-poc/pkg/embedding"
	"github.com/andrew/llm-rag-poc/pkg/models"
	"github.com/andrew/llm-rag-poc/pkg/vector"
	"golang.org/x/sync/singleflight"
)

// SearchOptions scopes a single retrieval call.
type SearchOptions struct {
	DomainFilter string
	Limit        int
	ScoreFloor   float32
}

// Service provides functionality for retrieving relevant passages,
// coalescing identical concurrent requests.
type Service interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]models.RetrievedPassage, error)
	// GetRetrievalContext renders a context string from search results
	// for injecting into an LLM prompt.
	GetRetrievalContext(passages []models.RetrievedPassage) string
}

// Config contains configuration for a retrieval service.
type Config struct {
	DefaultLimit int
	MaxLimit     int
	ScoreFloor   float32
}

// DefaultConfig mirrors the documented retrieval.* configuration defaults.
func DefaultConfig() Config {
	return Config{DefaultLimit: 5, MaxLimit: 20, ScoreFloor: 0.0}
}

// service is the production Service implementation. Concurrent calls that
// normalize to the same (query, domain, limit, score floor) key share a
// single embedding call and a single vector store round trip.
type service struct {
	store    vector.Store
	embedder embedding.Client
	cfg      Config
	group    singleflight.Group
}

// NewService builds a retrieval Service backed by store and embedder.
func NewService(store vector.Store, embedder embedding.Client, cfg Config) Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 5
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 20
	}
	return &service{store: store, embedder: embedder, cfg: cfg}
}

func (s *service) Search(ctx context.Context, query string, opts SearchOptions) ([]models.RetrievedPassage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	scoreFloor := opts.ScoreFloor
	if scoreFloor <= 0 {
		scoreFloor = s.cfg.ScoreFloor
	}

	key := fmt.Sprintf("%s\x00%s\x00%d\x00%f", normalizeQuery(query), opts.DomainFilter, limit, scoreFloor)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		vec, err := s.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}

		passages, err := s.store.Search(ctx, vec, vector.SearchOptions{
			DomainFilter: opts.DomainFilter,
			Limit:        limit,
			ScoreFloor:   scoreFloor,
		})
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		return passages, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]models.RetrievedPassage), nil
}

// normalizeQuery lowercases and collapses whitespace so two queries that
// differ only by case or spacing coalesce onto the same singleflight key.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// GetRetrievalContext formats retrieved passages into a numbered context
// block suitable for injection into an agent's prompt.
func (s *service) GetRetrievalContext(passages []models.RetrievedPassage) string {
	if len(passages) == 0 {
		return "No relevant information found."
	}

	var b strings.Builder
	for _, p := range passages {
		fmt.Fprintf(&b, "[Source %d] (%s)\n%s\n\n", p.Rank, p.Chunk.Source, p.Chunk.Content)
	}
	return b.String()
}
