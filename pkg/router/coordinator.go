package router

import (
	"context"
	"fmt"

	"github.com/andrew/llm-rag-poc/pkg/agent"
	"github.com/andrew/llm-rag-poc/pkg/apperr"
	"github.com/andrew/llm-rag-poc/pkg/citation"
	"github.com/andrew/llm-rag-poc/pkg/models"
	"golang.org/x/sync/errgroup"
)

// maxCoordinatedAgents caps how many agents a single multi-domain query
// fans out to: the primary plus up to two secondaries.
const maxCoordinatedAgents = 3

// MultiAgentResult is the outcome of coordinating one or more agents for
// a single query.
type MultiAgentResult struct {
	Response      string
	Citations     []models.Citation
	AgentsUsed    []string
	Confidence    float64
	IsSynthesized bool
}

// Coordinator runs the primary and secondary agents selected by a
// RouteResult and synthesizes their responses into one answer.
type Coordinator struct {
	registry *agent.Registry
	router   *Router
}

// NewCoordinator builds a Coordinator over the given registry.
func NewCoordinator(registry *agent.Registry) *Coordinator {
	return &Coordinator{registry: registry, router: NewRouter(registry)}
}

func agentNamesFor(route models.RouteResult) []string {
	names := []string{route.PrimaryAgent}
	names = append(names, route.SecondaryAgents...)
	if len(names) > maxCoordinatedAgents {
		names = names[:maxCoordinatedAgents]
	}
	return names
}

// ExecuteSequential runs agents in route order, one after another,
// skipping any agent that fails rather than aborting the whole query.
func (c *Coordinator) ExecuteSequential(ctx context.Context, query string, actx models.AgentContext, route models.RouteResult) []models.AgentResponse {
	var responses []models.AgentResponse
	for _, name := range agentNamesFor(route) {
		a, ok := c.registry.Get(name)
		if !ok {
			continue
		}
		resp, err := runRecovered(ctx, a, query, actx)
		if err != nil {
			continue
		}
		responses = append(responses, resp)
	}
	return responses
}

// ExecuteParallel runs agents concurrently via errgroup, preserving route
// order in the result slice regardless of completion order.
func (c *Coordinator) ExecuteParallel(ctx context.Context, query string, actx models.AgentContext, route models.RouteResult) []models.AgentResponse {
	names := agentNamesFor(route)
	results := make([]*models.AgentResponse, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			a, ok := c.registry.Get(name)
			if !ok {
				return nil
			}
			resp, err := runRecovered(gctx, a, query, actx)
			if err != nil {
				// One agent failing never aborts the others.
				return nil
			}
			results[i] = &resp
			return nil
		})
	}
	_ = g.Wait()

	responses := make([]models.AgentResponse, 0, len(results))
	for _, r := range results {
		if r != nil {
			responses = append(responses, *r)
		}
	}
	return responses
}

func runRecovered(ctx context.Context, a agent.Agent, query string, actx models.AgentContext) (resp models.AgentResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: agent %s panicked: %v", apperr.ErrAgentFailure, a.Name(), r)
		}
	}()
	resp, err = a.Run(ctx, query, actx)
	if err != nil {
		err = fmt.Errorf("%w: %v", apperr.ErrAgentFailure, err)
	}
	return resp, err
}

// Synthesize combines one or more agent responses into a single answer,
// deduping and renumbering citations across agents when more than one
// contributed.
func Synthesize(responses []models.AgentResponse) MultiAgentResult {
	if len(responses) == 0 {
		return MultiAgentResult{
			Response:   "I couldn't find relevant information to answer your question.",
			Confidence: 0,
		}
	}

	if len(responses) == 1 {
		r := responses[0]
		return MultiAgentResult{
			Response:      r.Response,
			Citations:     r.Citations,
			AgentsUsed:    []string{r.AgentName},
			Confidence:    r.Confidence,
			IsSynthesized: false,
		}
	}

	builder := citation.NewBuilder()
	agentsUsed := make([]string, 0, len(responses))
	var parts []string
	var confidenceSum float64

	for _, r := range responses {
		agentsUsed = append(agentsUsed, r.AgentName)
		parts = append(parts, fmt.Sprintf("**%s perspective:**\n%s", r.AgentName, r.Response))
		confidenceSum += r.Confidence

		for _, c := range r.Citations {
			builder.AddPassages([]models.RetrievedPassage{{
				Chunk: models.Chunk{Source: c.Source, Section: c.Section},
				Score: c.Score,
			}}, r.AgentName)
		}
	}

	joined := ""
	for i, p := range parts {
		if i > 0 {
			joined += "\n\n"
		}
		joined += p
	}

	return MultiAgentResult{
		Response:      joined,
		Citations:     builder.Build(),
		AgentsUsed:    agentsUsed,
		Confidence:    confidenceSum / float64(len(responses)),
		IsSynthesized: true,
	}
}
