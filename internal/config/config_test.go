package config_test

import (
	"testing"

	"github.com/andrew/llm-rag-poc/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoad_DefaultsWhenEnvironmentUnset(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, 0.3, cfg.Router.ConfidenceThreshold)
	assert.Equal(t, 2, cfg.Router.SecondaryTopK)
	assert.Equal(t, 5, cfg.Retrieval.DefaultLimit)
	assert.Equal(t, 20, cfg.Retrieval.MaxLimit)
	assert.Equal(t, 10, cfg.History.Window)
	assert.Equal(t, 20, cfg.Agent.SoftTimeoutSeconds)
	assert.Equal(t, 30, cfg.Agent.HardTimeoutSeconds)
	assert.Equal(t, "book", cfg.Agent.Default)
	assert.Equal(t, "localhost:6334", cfg.Qdrant.URL)
	assert.Equal(t, "course_material", cfg.Qdrant.Collection)
	assert.Equal(t, 4096, cfg.Qdrant.Dimension)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "*", cfg.HTTP.CorsAllowedOrigins)
}

func TestLoad_EnvironmentVariableOverridesDefault(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SESSION_BACKEND", "redis")

	cfg := config.Load()
	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, "redis", cfg.Session.Backend)
}
