package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/andrew/llm-rag-poc/pkg/agent"
	"github.com/andrew/llm-rag-poc/pkg/models"
	"github.com/andrew/llm-rag-poc/pkg/pipeline"
	"github.com/andrew/llm-rag-poc/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAgent is a minimal agent.Agent double whose RunStream/Run behavior
// is scripted per test.
type fakeAgent struct {
	name       string
	domain     string
	canHandle  float64
	streamErr  error
	streamText string
	runResp    models.AgentResponse
	runErr     error
}

func (f *fakeAgent) Name() string             { return f.name }
func (f *fakeAgent) Domain() string           { return f.domain }
func (f *fakeAgent) Description() string      { return "" }
func (f *fakeAgent) CanHandle(string) float64 { return f.canHandle }

func (f *fakeAgent) Run(ctx context.Context, query string, actx models.AgentContext) (models.AgentResponse, error) {
	return f.runResp, f.runErr
}

func (f *fakeAgent) RunStream(ctx context.Context, query string, actx models.AgentContext, emit func(agent.Event) error) error {
	if f.streamErr != nil {
		return f.streamErr
	}
	if f.streamText != "" {
		if err := emit(agent.Event{Kind: agent.EventText, Text: f.streamText}); err != nil {
			return err
		}
	}
	return emit(agent.Event{Kind: agent.EventEnd})
}

// erroringStore always fails Append, succeeds Recent with no history.
type erroringStore struct{}

func (erroringStore) Append(ctx context.Context, sessionID string, msg models.SessionMessage) error {
	return errors.New("write failed")
}

func (erroringStore) Recent(ctx context.Context, sessionID string, n int) ([]models.SessionMessage, error) {
	return nil, nil
}

func collectEvents(t *testing.T, p *pipeline.Pipeline, sessionID, query string) []pipeline.Event {
	t.Helper()
	var events []pipeline.Event
	err := p.Answer(context.Background(), sessionID, query, "", func(e pipeline.Event) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)
	return events
}

func TestAnswer_EmptyQueryEmitsExactlyOneErrorEvent(t *testing.T) {
	t.Parallel()

	registry := agent.NewRegistry("book", &fakeAgent{name: "book", domain: agent.DomainGeneral})
	p := pipeline.New(registry, session.NewMemoryStore(10), 10, 0, 0, zap.NewNop())

	events := collectEvents(t, p, "s1", "")
	require.Len(t, events, 1)
	assert.Equal(t, pipeline.EventError, events[0].Kind)
	assert.Equal(t, "query_invalid", events[0].ErrorKind)
}

func TestAnswer_HappyPathEndsWithExactlyOneTerminalEvent(t *testing.T) {
	t.Parallel()

	a := &fakeAgent{name: "book", domain: agent.DomainGeneral, streamText: "hello"}
	registry := agent.NewRegistry("book", a)
	p := pipeline.New(registry, session.NewMemoryStore(10), 10, 0, 0, zap.NewNop())

	events := collectEvents(t, p, "s1", "hello there")

	terminal := 0
	for _, e := range events {
		if e.Kind == pipeline.EventEnd || e.Kind == pipeline.EventError {
			terminal++
		}
	}
	assert.Equal(t, 1, terminal)
	assert.Equal(t, pipeline.EventEnd, events[len(events)-1].Kind)
}

func TestAnswer_PrimaryAgentFailureRetriesDefaultAgentOnce(t *testing.T) {
	t.Parallel()

	failing := &fakeAgent{name: "hardware", domain: agent.DomainHardware, canHandle: 1.0, streamErr: errors.New("boom")}
	fallback := &fakeAgent{name: "book", domain: agent.DomainGeneral, streamText: "fallback answer"}
	registry := agent.NewRegistry("book", failing, fallback)
	p := pipeline.New(registry, session.NewMemoryStore(10), 10, 0, 0, zap.NewNop())

	events := collectEvents(t, p, "s1", "what are the gpu requirements")

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, pipeline.EventEnd, last.Kind)
	assert.Equal(t, "book", last.AgentUsed)
}

func TestAnswer_BothPrimaryAndDefaultAgentFailingSurfacesOneErrorEvent(t *testing.T) {
	t.Parallel()

	failing := &fakeAgent{name: "book", domain: agent.DomainGeneral, streamErr: errors.New("boom")}
	registry := agent.NewRegistry("book", failing)
	p := pipeline.New(registry, session.NewMemoryStore(10), 10, 0, 0, zap.NewNop())

	events := collectEvents(t, p, "s1", "anything")
	require.Len(t, events, 1)
	assert.Equal(t, pipeline.EventError, events[0].Kind)
	assert.Equal(t, "agent_failure", events[0].ErrorKind)
}

func TestAnswer_MultiDomainRouteSynthesizesAcrossAgents(t *testing.T) {
	t.Parallel()

	glossary := &fakeAgent{
		name: "glossary", domain: agent.DomainGlossary, canHandle: 0.9,
		runResp: models.AgentResponse{Response: "glossary says X", AgentName: "glossary", Confidence: 0.9},
	}
	hardware := &fakeAgent{
		name: "hardware", domain: agent.DomainHardware, canHandle: 0.5,
		runResp: models.AgentResponse{Response: "hardware says Y", AgentName: "hardware", Confidence: 0.5},
	}
	registry := agent.NewRegistry("book", glossary, hardware, &fakeAgent{name: "book", domain: agent.DomainGeneral})
	p := pipeline.New(registry, session.NewMemoryStore(10), 10, 0, 0, zap.NewNop())

	events := collectEvents(t, p, "s1", "what is the definition of the gpu memory requirements and specs")

	require.NotEmpty(t, events)
	assert.Equal(t, pipeline.EventEnd, events[len(events)-1].Kind)

	var sawText bool
	for _, e := range events {
		if e.Kind == pipeline.EventText {
			sawText = true
			assert.Contains(t, e.Text, "perspective")
		}
	}
	assert.True(t, sawText)
}

func TestAnswer_SessionlessRequestsGetDistinctGeneratedSessionIDs(t *testing.T) {
	t.Parallel()

	a := &fakeAgent{name: "book", domain: agent.DomainGeneral, streamText: "hello"}
	registry := agent.NewRegistry("book", a)
	p := pipeline.New(registry, session.NewMemoryStore(10), 10, 0, 0, zap.NewNop())

	first := collectEvents(t, p, "", "hello there")
	second := collectEvents(t, p, "", "hello again")

	require.NotEmpty(t, first)
	require.NotEmpty(t, second)
	assert.NotEqual(t, "", first[0].SessionID)
	assert.NotEqual(t, "", second[0].SessionID)
	assert.NotEqual(t, first[0].SessionID, second[0].SessionID,
		"two session-less requests must never be allocated the same session id")
}

func TestAnswer_SessionWriteFailureIsLoggedNotSurfacedAsError(t *testing.T) {
	t.Parallel()

	a := &fakeAgent{name: "book", domain: agent.DomainGeneral, streamText: "hello"}
	registry := agent.NewRegistry("book", a)
	p := pipeline.New(registry, erroringStore{}, 10, 0, 0, zap.NewNop())

	events := collectEvents(t, p, "s1", "hello there")
	require.NotEmpty(t, events)
	assert.Equal(t, pipeline.EventEnd, events[len(events)-1].Kind)
	for _, e := range events {
		assert.NotEqual(t, pipeline.EventError, e.Kind)
	}
}
