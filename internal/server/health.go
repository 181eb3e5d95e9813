package server

import (
	"context"
	"fmt"

	"github.com/andrew/llm-rag-poc/pkg/llm"
	"github.com/andrew/llm-rag-poc/pkg/vector"
)

// healthyChecker is satisfied by collaborators that expose a liveness
// probe beyond their core interface; not every Store/Client
// implementation needs one (the in-memory test doubles don't).
type healthyChecker interface {
	Healthy(ctx context.Context) error
}

func pingVectorStore(ctx context.Context, store vector.Store) error {
	hc, ok := store.(healthyChecker)
	if !ok {
		return nil
	}
	return hc.Healthy(ctx)
}

func pingLLM(ctx context.Context, client llm.Client) error {
	hc, ok := client.(healthyChecker)
	if !ok {
		return nil
	}
	if err := hc.Healthy(ctx); err != nil {
		return fmt.Errorf("ollama: %w", err)
	}
	return nil
}
