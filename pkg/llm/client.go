package llm

import (
	"context"
	"os"

	"github.com/andrew/llm-rag-poc/pkg/models"
)

// Client is the interface for interacting with LLMs
type Client interface {
	Chat(ctx context.Context, messages []models.Message, config ModelConfig) (models.Message, error)
	Generate(ctx context.Context, prompt string, config ModelConfig) (string, error)

	// ChatStream runs a chat completion and invokes onChunk with each
	// piece of assistant text as it arrives, instead of buffering the
	// full response before returning. The final accumulated message is
	// still returned once the stream completes.
	ChatStream(ctx context.Context, messages []models.Message, config ModelConfig, onChunk func(chunk string) error) (models.Message, error)

	Close() error
}

// ModelConfig holds configuration parameters for model generation
type ModelConfig struct {
	Temperature   float32
	TopP          float32
	MaxTokens     int
	StopSequences []string
}

// DefaultModelConfig returns a default configuration
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Temperature: 0.7,
		TopP:        0.9,
		MaxTokens:   2048,
	}
}

// AgentModelConfig returns the low-temperature configuration used by the
// grounded domain agents, which should stick closely to retrieved
// passages rather than improvise.
func AgentModelConfig() ModelConfig {
	return ModelConfig{
		Temperature: 0.05,
		TopP:        0.9,
		MaxTokens:   1024,
	}
}

// NewClient creates a new LLM client, defaulting to Ollama
func NewClient() (Client, error) {
	modelName := os.Getenv("OLLAMA_CHAT_MODEL")
	if modelName == "" {
		modelName = "llama3"
	}

	ollamaURL := os.Getenv("OLLAMA_BASE_URL")
	return NewOllamaClient(modelName, ollamaURL), nil
}
