package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/andrew/llm-rag-poc/pkg/agent"
	"github.com/andrew/llm-rag-poc/pkg/llm"
	"github.com/andrew/llm-rag-poc/pkg/models"
	"github.com/andrew/llm-rag-poc/pkg/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetrieval struct {
	passages []models.RetrievedPassage
	err      error
}

func (f *fakeRetrieval) Search(ctx context.Context, query string, opts retrieval.SearchOptions) ([]models.RetrievedPassage, error) {
	return f.passages, f.err
}

func (f *fakeRetrieval) GetRetrievalContext(passages []models.RetrievedPassage) string {
	return "context"
}

type fakeLLM struct {
	reply     string
	chatErr   error
	chunks    []string
	streamErr error
}

func (f *fakeLLM) Chat(ctx context.Context, messages []models.Message, config llm.ModelConfig) (models.Message, error) {
	if f.chatErr != nil {
		return models.Message{}, f.chatErr
	}
	return models.Message{Role: models.RoleAssistant, Content: f.reply}, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, config llm.ModelConfig) (string, error) {
	return f.reply, f.chatErr
}

func (f *fakeLLM) ChatStream(ctx context.Context, messages []models.Message, config llm.ModelConfig, onChunk func(string) error) (models.Message, error) {
	if f.streamErr != nil {
		return models.Message{}, f.streamErr
	}
	for _, c := range f.chunks {
		if err := onChunk(c); err != nil {
			return models.Message{}, err
		}
	}
	return models.Message{Role: models.RoleAssistant, Content: f.reply}, nil
}

func (f *fakeLLM) Close() error { return nil }

func TestGlossaryAgent_CanHandle_DefinitionQueryScoresHigh(t *testing.T) {
	t.Parallel()

	a := agent.NewGlossaryAgent(&fakeRetrieval{}, &fakeLLM{})
	score := a.CanHandle("what is a glossary term")
	assert.Greater(t, score, 0.5)
}

func TestBookAgent_CanHandle_AlwaysZero(t *testing.T) {
	t.Parallel()

	a := agent.NewBookAgent(&fakeRetrieval{}, &fakeLLM{})
	assert.Equal(t, 0.0, a.CanHandle("what is the meaning of life, the definition"))
}

func TestRetrievalAgent_Run_ReturnsCitationsFromPassages(t *testing.T) {
	t.Parallel()

	passages := []models.RetrievedPassage{
		{Chunk: models.Chunk{Source: "glossary.md", Section: "terms"}, Score: 0.9},
	}
	a := agent.NewGlossaryAgent(&fakeRetrieval{passages: passages}, &fakeLLM{reply: "a definition"})

	resp, err := a.Run(context.Background(), "what is X", models.NewAgentContext("s1", "what is X", nil, "", ""))
	require.NoError(t, err)
	assert.Equal(t, "a definition", resp.Response)
	assert.Equal(t, "glossary", resp.AgentName)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, 1, resp.Citations[0].Number)
}

func TestRetrievalAgent_Run_WrapsRetrievalFailure(t *testing.T) {
	t.Parallel()

	a := agent.NewGlossaryAgent(&fakeRetrieval{err: errors.New("store down")}, &fakeLLM{})
	_, err := a.Run(context.Background(), "what is X", models.NewAgentContext("s1", "what is X", nil, "", ""))
	require.Error(t, err)
}

func TestRetrievalAgent_RunStream_EmitsSourcesThenTextThenEnd(t *testing.T) {
	t.Parallel()

	passages := []models.RetrievedPassage{
		{Chunk: models.Chunk{Source: "glossary.md", Section: "terms"}, Score: 0.9},
	}
	a := agent.NewGlossaryAgent(&fakeRetrieval{passages: passages}, &fakeLLM{reply: "full", chunks: []string{"par", "t1"}})

	var kinds []agent.EventKind
	err := a.RunStream(context.Background(), "what is X", models.NewAgentContext("s1", "what is X", nil, "", ""), func(e agent.Event) error {
		kinds = append(kinds, e.Kind)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, kinds)
	assert.Equal(t, agent.EventSource, kinds[0])
	assert.Equal(t, agent.EventEnd, kinds[len(kinds)-1])
}

func TestRetrievalAgent_RunStream_PropagatesLLMFailure(t *testing.T) {
	t.Parallel()

	a := agent.NewGlossaryAgent(&fakeRetrieval{}, &fakeLLM{streamErr: errors.New("model down")})
	err := a.RunStream(context.Background(), "what is X", models.NewAgentContext("s1", "what is X", nil, "", ""), func(agent.Event) error {
		return nil
	})
	require.Error(t, err)
}
