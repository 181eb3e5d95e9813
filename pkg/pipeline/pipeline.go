// Package pipeline orchestrates the full retrieval-augmented generation
// flow: routing, retrieval, agent execution, and session persistence,
// exposed as a lazy stream of tagged events terminated by exactly one
// end or error event.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrew/llm-rag-poc/pkg/agent"
	"github.com/andrew/llm-rag-poc/pkg/apperr"
	"github.com/andrew/llm-rag-poc/pkg/models"
	"github.com/andrew/llm-rag-poc/pkg/router"
	"github.com/andrew/llm-rag-poc/pkg/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventKind tags a unit of the pipeline's output stream.
type EventKind string

const (
	EventText   EventKind = "text"
	EventSource EventKind = "source"
	EventEnd    EventKind = "end"
	EventError  EventKind = "error"
)

// Event is a single tagged unit of the pipeline's streamed response.
type Event struct {
	Kind         EventKind
	Text         string
	Source       models.Citation
	SessionID    string
	AgentUsed    string
	ErrorKind    string
	ErrorMessage string
}

// Pipeline wires routing, multi-agent coordination, and session
// persistence together into the single Answer entry point.
type Pipeline struct {
	registry    *agent.Registry
	router      *router.Router
	coordinator *router.Coordinator
	sessions    session.Store
	window      int
	softTimeout time.Duration
	hardTimeout time.Duration
	log         *zap.Logger
}

// New builds a Pipeline. logger may be zap.NewNop() if the caller does
// not want structured logging.
func New(registry *agent.Registry, sessions session.Store, window int, softTimeout, hardTimeout time.Duration, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		registry:    registry,
		router:      router.NewRouter(registry),
		coordinator: router.NewCoordinator(registry),
		sessions:    sessions,
		window:      window,
		softTimeout: softTimeout,
		hardTimeout: hardTimeout,
		log:         logger,
	}
}

// Answer runs the full pipeline for a single query and streams the
// result through emit. Exactly one of EventEnd or EventError is emitted
// as the final event; emit errors (e.g. a client that disconnected)
// abort the stream immediately.
func (p *Pipeline) Answer(ctx context.Context, sessionID, query, selectedText string, emit func(Event) error) error {
	start := time.Now()

	// A request with no session id gets a fresh one of its own rather than
	// sharing a single anonymous identity with every other session-less
	// caller: each goes through Recent/Append under its own key, so
	// concurrent anonymous users' histories never mix.
	if session.IsAnonymous(sessionID) {
		sessionID = uuid.New().String()
	}

	log := p.log.With(zap.String("session_id", sessionID))

	if query == "" {
		return p.fail(emit, sessionID, "", apperr.ErrQueryInvalid, "query must not be empty")
	}

	route := p.router.Route(query)
	log.Info("routed query",
		zap.String("primary_agent", route.PrimaryAgent),
		zap.Float64("confidence", route.Confidence),
		zap.Bool("multi_domain", route.IsMultiDomain),
	)

	history, err := p.sessions.Recent(ctx, sessionID, p.window)
	if err != nil {
		log.Warn("could not load session history, continuing with empty history", zap.Error(err))
		history = nil
	}

	actx := models.NewAgentContext(sessionID, query, history, selectedText, "")

	ctx, cancel := context.WithTimeout(ctx, p.hardTimeout)
	defer cancel()

	if p.softTimeout > 0 {
		soft := time.AfterFunc(p.softTimeout, func() {
			log.Warn("agent soft timeout exceeded, letting generation finish", zap.Duration("soft_timeout", p.softTimeout))
		})
		defer soft.Stop()
	}

	var finalText string
	var agentUsed string

	if route.IsMultiDomain && len(route.SecondaryAgents) > 0 {
		responses := p.coordinator.ExecuteSequential(ctx, query, actx, route)
		if len(responses) == 0 {
			responses = p.fallbackOnce(ctx, query, actx)
		}
		result := router.Synthesize(responses)

		for _, c := range result.Citations {
			if err := emit(Event{Kind: EventSource, Source: c, SessionID: sessionID}); err != nil {
				return err
			}
		}
		if err := emit(Event{Kind: EventText, Text: result.Response, SessionID: sessionID}); err != nil {
			return err
		}

		finalText = result.Response
		if len(result.AgentsUsed) > 0 {
			agentUsed = result.AgentsUsed[0]
		}
	} else {
		a, ok := p.registry.Get(route.PrimaryAgent)
		if !ok {
			a, ok = p.registry.Default()
		}
		if !ok {
			return p.fail(emit, sessionID, "", apperr.ErrAgentFailure, "no agent available")
		}
		agentUsed = a.Name()

		var collected string
		streamErr := a.RunStream(ctx, query, actx, func(ev agent.Event) error {
			switch ev.Kind {
			case agent.EventSource:
				return emit(Event{Kind: EventSource, Source: ev.Source, SessionID: sessionID, AgentUsed: agentUsed})
			case agent.EventText:
				collected += ev.Text
				return emit(Event{Kind: EventText, Text: ev.Text, SessionID: sessionID, AgentUsed: agentUsed})
			default:
				return nil
			}
		})

		if streamErr != nil {
			log.Warn("primary agent failed, retrying with default agent", zap.String("agent", agentUsed), zap.Error(streamErr))

			def, ok := p.registry.Default()
			if !ok || def.Name() == agentUsed {
				return p.fail(emit, sessionID, agentUsed, fmt.Errorf("%w: %w", apperr.ErrAgentFailure, streamErr), streamErr.Error())
			}

			agentUsed = def.Name()
			collected = ""
			streamErr = def.RunStream(ctx, query, actx, func(ev agent.Event) error {
				switch ev.Kind {
				case agent.EventSource:
					return emit(Event{Kind: EventSource, Source: ev.Source, SessionID: sessionID, AgentUsed: agentUsed})
				case agent.EventText:
					collected += ev.Text
					return emit(Event{Kind: EventText, Text: ev.Text, SessionID: sessionID, AgentUsed: agentUsed})
				default:
					return nil
				}
			})
			if streamErr != nil {
				return p.fail(emit, sessionID, agentUsed, fmt.Errorf("%w: %w", apperr.ErrAgentFailure, streamErr), streamErr.Error())
			}
		}

		finalText = collected
	}

	p.persist(ctx, sessionID, query, finalText, log)

	log.Info("pipeline completed", zap.Duration("elapsed", time.Since(start)), zap.String("agent_used", agentUsed))
	return emit(Event{Kind: EventEnd, SessionID: sessionID, AgentUsed: agentUsed})
}

func (p *Pipeline) fallbackOnce(ctx context.Context, query string, actx models.AgentContext) []models.AgentResponse {
	def, ok := p.registry.Default()
	if !ok {
		return nil
	}
	resp, err := def.Run(ctx, query, actx)
	if err != nil {
		return nil
	}
	return []models.AgentResponse{resp}
}

func (p *Pipeline) persist(ctx context.Context, sessionID, query, response string, log *zap.Logger) {
	now := time.Now()
	if err := p.sessions.Append(ctx, sessionID, models.SessionMessage{Role: models.RoleUser, Content: query, Timestamp: now}); err != nil {
		log.Warn("session write failed", zap.Error(fmt.Errorf("%w: %v", apperr.ErrSessionWriteFailure, err)))
	}
	if err := p.sessions.Append(ctx, sessionID, models.SessionMessage{Role: models.RoleAssistant, Content: response, Timestamp: now}); err != nil {
		log.Warn("session write failed", zap.Error(fmt.Errorf("%w: %v", apperr.ErrSessionWriteFailure, err)))
	}
}

func (p *Pipeline) fail(emit func(Event) error, sessionID, agentUsed string, kind error, message string) error {
	errorKind := "unknown"
	switch {
	case errors.Is(kind, apperr.ErrQueryInvalid):
		errorKind = "query_invalid"
	case errors.Is(kind, apperr.ErrRetrievalUnavailable):
		errorKind = "retrieval_unavailable"
	case errors.Is(kind, apperr.ErrLLMUnavailable):
		errorKind = "llm_unavailable"
	case errors.Is(kind, apperr.ErrAgentFailure):
		errorKind = "agent_failure"
	}
	return emit(Event{
		Kind:         EventError,
		SessionID:    sessionID,
		AgentUsed:    agentUsed,
		ErrorKind:    errorKind,
		ErrorMessage: message,
	})
}
