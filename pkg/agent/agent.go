// Package agent implements the domain-specialized subagents that answer
// queries routed to them, each scoped to a slice of the indexed corpus.
package agent

import (
	"context"
	"regexp"
	"strings"

	"github.com/andrew/llm-rag-poc/pkg/models"
)

// Domains are the closed set of valid agent/content domains.
const (
	DomainGlossary   = "glossary"
	DomainHardware   = "hardware"
	DomainModuleInfo = "module_info"
	DomainCapstone   = "capstone"
	DomainGeneral    = "general"
)

// EventKind tags a streamed chunk from an agent.
type EventKind string

const (
	EventText   EventKind = "text"
	EventSource EventKind = "source"
	EventEnd    EventKind = "end"
)

// Event is a single tagged unit of a streamed agent response.
type Event struct {
	Kind   EventKind
	Text   string
	Source models.Citation
}

// Agent is a domain-scoped handler that can judge whether it should
// answer a query, and can answer it either all at once or streamed.
type Agent interface {
	Name() string
	Domain() string
	Description() string
	CanHandle(query string) float64
	Run(ctx context.Context, query string, actx models.AgentContext) (models.AgentResponse, error)
	RunStream(ctx context.Context, query string, actx models.AgentContext, emit func(Event) error) error
}

var (
	definitionPatterns = compileAll(
		`\bwhat is\b`, `\bdefine\b`, `\bmeaning of\b`, `\bwhat does .* mean\b`, `\bwhat are\b`, `\bwhat's\b`,
	)
	explanationPatterns = compileAll(
		`\bhow does\b`, `\bhow do\b`, `\bexplain\b`, `\bwhy does\b`, `\bwhat happens when\b`, `\bhow to\b`,
	)
	hardwarePatterns = compileAll(
		`\brequirements?\b`, `\bspecs?\b`, `\bspecifications?\b`, `\bhow much\b`, `\bwhat hardware\b`,
		`\bcan i run\b`, `\bgpu\b`, `\bram\b`, `\bcpu\b`, `\bmemory\b`,
	)
	guidancePatterns = compileAll(
		`\bproject\b`, `\bmilestone\b`, `\bsteps?\b`, `\bpipeline\b`, `\bhow do i\b`, `\btroubleshoot\b`,
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

// BaseAgent supplies the default CanHandle scoring shared by every
// concrete agent: a keyword-match floor plus a domain-specific bonus for
// queries that look like a definition, explanation, hardware, or guidance
// question. Concrete agents embed this and only need to set Keywords and
// their own Domain.
type BaseAgent struct {
	AgentName   string
	AgentDomain string
	Keywords    []string
}

func (b BaseAgent) Name() string   { return b.AgentName }
func (b BaseAgent) Domain() string { return b.AgentDomain }

// CanHandle returns a confidence score in [0,1]. Keyword matches
// contribute up to 0.6; a domain-appropriate intent pattern adds a
// further bonus, capped at 1.0 overall.
func (b BaseAgent) CanHandle(query string) float64 {
	lower := strings.ToLower(query)

	matches := 0
	for _, kw := range b.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matches++
		}
	}

	score := float64(matches) / 3.0
	if score > 0.6 {
		score = 0.6
	}

	// A domain pattern only reinforces existing keyword evidence; it never
	// manufactures confidence for a query with zero keyword overlap (e.g. a
	// generic "what is X" about something outside every domain's glossary).
	if matches > 0 {
		switch b.AgentDomain {
		case DomainGlossary:
			if anyMatch(definitionPatterns, lower) {
				score += 0.3
			}
		case DomainModuleInfo:
			if anyMatch(explanationPatterns, lower) {
				score += 0.2
			}
		case DomainHardware:
			if anyMatch(hardwarePatterns, lower) {
				score += 0.25
			}
		case DomainCapstone:
			if anyMatch(guidancePatterns, lower) {
				score += 0.2
			}
		}
	}

	return models.ClampConfidence(score)
}
