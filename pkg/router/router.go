// Package router implements the query router: scoring every registered
// agent's confidence for a query and picking a primary (and, for
// cross-domain queries, secondary) agent to answer it.
package router

import (
	"regexp"
	"sort"
	"strings"

	"github.com/andrew/llm-rag-poc/pkg/agent"
	"github.com/andrew/llm-rag-poc/pkg/models"
)

// ConfidenceThreshold is the minimum CanHandle score for an agent to be
// selected; below it the registry's default agent answers.
const ConfidenceThreshold = 0.3

// SecondaryThreshold is the score a second-ranked agent must clear for a
// query to be flagged multi-domain.
const SecondaryThreshold = 0.4

// agentPriority breaks ties when two agents score identically: lower
// index wins.
var agentPriority = []string{agent.DomainGlossary, agent.DomainHardware, agent.DomainModuleInfo, agent.DomainCapstone, agent.DomainGeneral}

func priorityRank(domain string) int {
	for i, d := range agentPriority {
		if d == domain {
			return i
		}
	}
	return len(agentPriority)
}

var (
	definitionPatterns = compileAll(
		`\bwhat is\b`, `\bdefine\b`, `\bmeaning of\b`, `\bwhat does .* mean\b`, `\bwhat are\b`, `\bwhat's\b`,
	)
	hardwarePatterns = compileAll(
		`\brequirements?\b`, `\bspecs?\b`, `\bspecifications?\b`, `\bhow much\b`, `\bwhat hardware\b`,
		`\bcan i run\b`, `\bgpu\b`, `\bram\b`, `\bcpu\b`, `\bmemory\b`,
	)
	guidancePatterns = compileAll(
		`\bproject\b`, `\bmilestone\b`, `\bsteps?\b`, `\bpipeline\b`, `\bhow do i\b`, `\btroubleshoot\b`,
	)
	explanationPatterns = compileAll(
		`\bhow does\b`, `\bhow do\b`, `\bexplain\b`, `\bwhy does\b`, `\bwhat happens when\b`, `\bhow to\b`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// Router routes a query to the agent(s) best suited to answer it.
type Router struct {
	registry *agent.Registry
}

// NewRouter builds a Router over the given registry.
func NewRouter(registry *agent.Registry) *Router {
	return &Router{registry: registry}
}

type scoredAgent struct {
	name  string
	score float64
}

// Route determines which agent(s) should handle query. When no agent
// clears ConfidenceThreshold, it routes to the default agent with the top
// score as confidence, and records the intent classified over the same
// pattern families agents use for their own bonus scoring in the routing
// reason.
func (r *Router) Route(query string) models.RouteResult {
	agents := r.registry.All()
	if len(agents) == 0 {
		return models.RouteResult{
			PrimaryAgent:  r.registry.DefaultName(),
			Confidence:    0,
			RoutingReason: "no agents registered",
		}
	}

	scored := make([]scoredAgent, 0, len(agents))
	for _, a := range agents {
		scored = append(scored, scoredAgent{name: a.Name(), score: a.CanHandle(query)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		di, dj := domainOf(r.registry, scored[i].name), domainOf(r.registry, scored[j].name)
		return priorityRank(di) < priorityRank(dj)
	})

	if scored[0].score >= ConfidenceThreshold {
		primary := scored[0]

		var secondary []string
		for _, s := range scored[1:min(3, len(scored))] {
			if s.score >= ConfidenceThreshold {
				secondary = append(secondary, s.name)
			}
		}

		isMulti := len(secondary) > 0 && len(scored) > 1 && scored[1].score > SecondaryThreshold

		return models.RouteResult{
			PrimaryAgent:    primary.name,
			Confidence:      models.ClampConfidence(primary.score),
			RoutingReason:   "keyword match",
			SecondaryAgents: secondary,
			IsMultiDomain:   isMulti,
		}
	}

	// Below the threshold the default agent answers. The detected intent is
	// recorded in the routing reason only: like an agent's pattern bonus, an
	// intent pattern never selects an agent without keyword evidence.
	return models.RouteResult{
		PrimaryAgent:  r.registry.DefaultName(),
		Confidence:    models.ClampConfidence(scored[0].score),
		RoutingReason: "intent classification: " + classifyIntent(query),
	}
}

func domainOf(registry *agent.Registry, name string) string {
	if a, ok := registry.Get(name); ok {
		return a.Domain()
	}
	return ""
}

func classifyIntent(query string) string {
	lower := strings.ToLower(query)
	switch {
	case anyMatch(definitionPatterns, lower):
		return "definition"
	case anyMatch(hardwarePatterns, lower):
		return "hardware"
	case anyMatch(guidancePatterns, lower):
		return "guidance"
	case anyMatch(explanationPatterns, lower):
		return "explanation"
	default:
		return "general"
	}
}

func intentToAgent(intent string) string {
	switch intent {
	case "definition":
		return agent.DomainGlossary
	case "hardware":
		return agent.DomainHardware
	case "guidance":
		return agent.DomainCapstone
	case "explanation":
		return agent.DomainModuleInfo
	default:
		return "book"
	}
}
