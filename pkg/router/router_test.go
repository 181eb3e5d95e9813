package router_test

import (
	"context"
	"testing"

	"github.com/andrew/llm-rag-poc/pkg/agent"
	"github.com/andrew/llm-rag-poc/pkg/llm"
	"github.com/andrew/llm-rag-poc/pkg/models"
	"github.com/andrew/llm-rag-poc/pkg/retrieval"
	"github.com/andrew/llm-rag-poc/pkg/router"
	"github.com/stretchr/testify/assert"
)

type noopRetrieval struct{}

func (noopRetrieval) Search(ctx context.Context, query string, opts retrieval.SearchOptions) ([]models.RetrievedPassage, error) {
	return nil, nil
}

func (noopRetrieval) GetRetrievalContext(passages []models.RetrievedPassage) string { return "" }

type noopLLM struct{}

func (noopLLM) Chat(ctx context.Context, messages []models.Message, config llm.ModelConfig) (models.Message, error) {
	return models.Message{}, nil
}
func (noopLLM) Generate(ctx context.Context, prompt string, config llm.ModelConfig) (string, error) {
	return "", nil
}
func (noopLLM) ChatStream(ctx context.Context, messages []models.Message, config llm.ModelConfig, onChunk func(string) error) (models.Message, error) {
	return models.Message{}, nil
}
func (noopLLM) Close() error { return nil }

func newTestRegistry() *agent.Registry {
	r, l := noopRetrieval{}, noopLLM{}
	return agent.NewRegistry("book",
		agent.NewGlossaryAgent(r, l),
		agent.NewHardwareAgent(r, l),
		agent.NewModuleInfoAgent(r, l),
		agent.NewCapstoneAgent(r, l),
		agent.NewBookAgent(r, l),
	)
}

func TestRoute_KeywordMatchPicksHighestScoringAgent(t *testing.T) {
	t.Parallel()

	rt := router.NewRouter(newTestRegistry())
	result := rt.Route("what is the definition of a glossary term")
	assert.Equal(t, "glossary", result.PrimaryAgent)
	assert.Equal(t, "keyword match", result.RoutingReason)
}

func TestRoute_HardwareQueryRoutesToHardwareAgent(t *testing.T) {
	t.Parallel()

	rt := router.NewRouter(newTestRegistry())
	result := rt.Route("what are the gpu and ram requirements")
	assert.Equal(t, "hardware", result.PrimaryAgent)
}

func TestRoute_NoKeywordMatchFallsBackToIntentClassification(t *testing.T) {
	t.Parallel()

	rt := router.NewRouter(newTestRegistry())
	result := rt.Route("banana")
	assert.Equal(t, "intent classification: general", result.RoutingReason)
	assert.Equal(t, "book", result.PrimaryAgent)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestRoute_NoAgentsRegisteredFallsBackToDefault(t *testing.T) {
	t.Parallel()

	registry := agent.NewRegistry("book")
	rt := router.NewRouter(registry)
	result := rt.Route("anything")
	assert.Equal(t, "book", result.PrimaryAgent)
	assert.Equal(t, "no agents registered", result.RoutingReason)
}

func TestRoute_DefinitionQueryAboutRegisteredTermRoutesToGlossary(t *testing.T) {
	t.Parallel()

	rt := router.NewRouter(newTestRegistry())
	result := rt.Route("What is a topic in ROS 2?")
	assert.Equal(t, "glossary", result.PrimaryAgent)
	assert.False(t, result.IsMultiDomain)
}

func TestRoute_OffTopicQuestionFallsBackBelowConfidenceThreshold(t *testing.T) {
	t.Parallel()

	rt := router.NewRouter(newTestRegistry())
	result := rt.Route("What is the recipe for chocolate cake?")
	assert.Equal(t, "book", result.PrimaryAgent)
	assert.Less(t, result.Confidence, 0.3)
}

func TestRoute_MultiDomainWhenSecondaryAgentScoresHighEnough(t *testing.T) {
	t.Parallel()

	rt := router.NewRouter(newTestRegistry())
	result := rt.Route("what is the definition of the gpu memory requirements and specs")
	assert.True(t, result.IsMultiDomain)
	assert.NotEmpty(t, result.SecondaryAgents)
}
