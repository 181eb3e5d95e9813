package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andrew/llm-rag-poc/pkg/models"
	"github.com/ollama/ollama/api"
)

// OllamaClient is a client that uses the official Ollama API package to
// talk to a local or remote Ollama server.
type OllamaClient struct {
	client    *api.Client
	modelName string
}

// NewOllamaClient creates a new client for interacting with an Ollama
// server. baseURL defaults to the standard local Ollama address.
func NewOllamaClient(modelName string, baseURL string) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		// Fall back to the documented default rather than failing
		// construction; callers find out quickly on the first request.
		parsed, _ = url.Parse("http://localhost:11434")
	}

	return &OllamaClient{
		client: api.NewClient(parsed, &http.Client{
			Timeout: 5 * time.Minute,
		}),
		modelName: modelName,
	}
}

func toOllamaMessages(messages []models.Message) []api.Message {
	out := make([]api.Message, len(messages))
	for i, msg := range messages {
		out[i] = api.Message{Role: string(msg.Role), Content: msg.Content}
	}
	return out
}

func toOllamaOptions(config ModelConfig) map[string]interface{} {
	opts := map[string]interface{}{
		"temperature": config.Temperature,
		"top_p":       config.TopP,
	}
	if config.MaxTokens > 0 {
		opts["num_predict"] = config.MaxTokens
	}
	if len(config.StopSequences) > 0 {
		opts["stop"] = config.StopSequences
	}
	return opts
}

// Chat processes a conversation and returns the complete response. It is
// implemented in terms of ChatStream with a no-op callback so the two
// code paths can never diverge.
func (c *OllamaClient) Chat(ctx context.Context, messages []models.Message, config ModelConfig) (models.Message, error) {
	return c.ChatStream(ctx, messages, config, func(string) error { return nil })
}

// ChatStream runs a chat completion, forwarding each chunk of assistant
// text to onChunk as Ollama streams it back, and returns the fully
// accumulated assistant message once the stream ends.
func (c *OllamaClient) ChatStream(ctx context.Context, messages []models.Message, config ModelConfig, onChunk func(chunk string) error) (models.Message, error) {
	stream := true
	req := &api.ChatRequest{
		Model:    c.modelName,
		Messages: toOllamaMessages(messages),
		Options:  toOllamaOptions(config),
		Stream:   &stream,
	}

	var full strings.Builder
	var callbackErr error

	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		full.WriteString(resp.Message.Content)
		if onChunk != nil {
			if err := onChunk(resp.Message.Content); err != nil {
				callbackErr = err
				return err
			}
		}
		return nil
	})
	if callbackErr != nil {
		return models.Message{}, callbackErr
	}
	if err != nil {
		return models.Message{}, fmt.Errorf("ollama chat: %w", err)
	}

	return models.Message{
		Role:      models.RoleAssistant,
		Content:   full.String(),
		Timestamp: time.Now(),
	}, nil
}

// Generate processes a single prompt and returns a completion.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, config ModelConfig) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   c.modelName,
		Prompt:  prompt,
		Options: toOllamaOptions(config),
		Stream:  &stream,
	}

	var full strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		full.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	return full.String(), nil
}

// Close cleans up any resources held by the client.
func (c *OllamaClient) Close() error {
	return nil
}

// Healthy reports whether the Ollama server is reachable, used by the
// /api/health endpoint.
func (c *OllamaClient) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := c.client.List(ctx); err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	return nil
}
