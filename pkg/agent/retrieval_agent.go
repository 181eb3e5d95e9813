package agent

import (
	"context"
	"fmt"

	"github.com/andrew/llm-rag-poc/pkg/apperr"
	"github.com/andrew/llm-rag-poc/pkg/citation"
	"github.com/andrew/llm-rag-poc/pkg/llm"
	"github.com/andrew/llm-rag-poc/pkg/models"
	"github.com/andrew/llm-rag-poc/pkg/retrieval"
)

// RetrievalAgent is the shared implementation behind every concrete
// domain agent: retrieve passages scoped to its domain, build a grounded
// prompt instructing the model to answer only from those passages, and
// stream the model's response back with citations attached.
type RetrievalAgent struct {
	BaseAgent
	AgentDescription string
	SystemPrompt     string
	// SearchDomain restricts retrieval to this domain tag. Empty means
	// unfiltered, used by the fallback BookAgent.
	SearchDomain string

	Retrieval retrieval.Service
	LLM       llm.Client
}

func (a *RetrievalAgent) Description() string { return a.AgentDescription }

func (a *RetrievalAgent) retrieve(ctx context.Context, query string) ([]models.RetrievedPassage, error) {
	passages, err := a.Retrieval.Search(ctx, query, retrieval.SearchOptions{
		DomainFilter: a.SearchDomain,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrRetrievalUnavailable, err)
	}
	return passages, nil
}

func (a *RetrievalAgent) buildMessages(query string, actx models.AgentContext, passages []models.RetrievedPassage) []models.Message {
	passageContext := a.Retrieval.GetRetrievalContext(passages)

	system := a.SystemPrompt + "\n\nOnly answer using the passages below. " +
		"If the passages don't contain the answer, say so plainly instead of guessing. " +
		"Cite passages inline as [Source N].\n\nPassages:\n" + passageContext

	messages := []models.Message{{Role: models.RoleSystem, Content: system}}
	for _, h := range actx.ChatHistory {
		messages = append(messages, models.Message{Role: h.Role, Content: h.Content})
	}
	if actx.SelectedText != "" {
		messages = append(messages, models.Message{
			Role:    models.RoleSystem,
			Content: "The user has selected this text for additional context:\n" + actx.SelectedText,
		})
	}
	messages = append(messages, models.Message{Role: models.RoleUser, Content: query})
	return messages
}

// Run answers the query in one shot.
func (a *RetrievalAgent) Run(ctx context.Context, query string, actx models.AgentContext) (models.AgentResponse, error) {
	passages, err := a.retrieve(ctx, query)
	if err != nil {
		return models.AgentResponse{}, err
	}

	messages := a.buildMessages(query, actx, passages)
	reply, err := a.LLM.Chat(ctx, messages, llm.AgentModelConfig())
	if err != nil {
		return models.AgentResponse{}, fmt.Errorf("%w: %v", apperr.ErrLLMUnavailable, err)
	}

	builder := citation.NewBuilder()
	builder.AddPassages(passages, a.AgentName)

	return models.AgentResponse{
		Response:   reply.Content,
		Citations:  builder.Build(),
		AgentName:  a.AgentName,
		Confidence: 1.0,
		Metadata:   map[string]interface{}{"domain": a.AgentDomain},
	}, nil
}

// RunStream answers the query, emitting source events before generation
// starts and text events as the model streams its reply, followed by a
// terminal end event.
func (a *RetrievalAgent) RunStream(ctx context.Context, query string, actx models.AgentContext, emit func(Event) error) error {
	passages, err := a.retrieve(ctx, query)
	if err != nil {
		return err
	}

	builder := citation.NewBuilder()
	builder.AddPassages(passages, a.AgentName)
	for _, c := range builder.Build() {
		if err := emit(Event{Kind: EventSource, Source: c}); err != nil {
			return err
		}
	}

	messages := a.buildMessages(query, actx, passages)

	_, err = a.LLM.ChatStream(ctx, messages, llm.AgentModelConfig(), func(chunk string) error {
		return emit(Event{Kind: EventText, Text: chunk})
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrLLMUnavailable, err)
	}

	return emit(Event{Kind: EventEnd})
}

// NewGlossaryAgent answers "what is X" / definition-style questions.
func NewGlossaryAgent(r retrieval.Service, c llm.Client) *RetrievalAgent {
	return &RetrievalAgent{
		BaseAgent: BaseAgent{
			AgentName:   "glossary",
			AgentDomain: DomainGlossary,
			Keywords: []string{
				"define", "definition", "meaning", "term", "glossary", "acronym",
				"topic", "node", "service", "action", "publisher", "subscriber",
				"launch file", "parameter", "lifecycle", "urdf", "tf", "sdf",
				"digital twin", "isaac sim", "vla", "imu", "lidar", "encoder",
			},
		},
		AgentDescription: "Defines terms and acronyms used throughout the course material.",
		SystemPrompt: "You are a glossary assistant. Give precise, concise definitions. " +
			"When a term appears in more than one module, explicitly enumerate each module's usage. " +
			"When the term is not covered by the passages, answer exactly: \"This term is not defined in this course.\"",
		SearchDomain: DomainGlossary,
		Retrieval:    r,
		LLM:          c,
	}
}

// NewHardwareAgent answers hardware/requirements-style questions.
func NewHardwareAgent(r retrieval.Service, c llm.Client) *RetrievalAgent {
	return &RetrievalAgent{
		BaseAgent: BaseAgent{
			AgentName:   "hardware",
			AgentDomain: DomainHardware,
			Keywords:    []string{"gpu", "cpu", "ram", "memory", "hardware", "requirements", "specs", "jetson", "rtx"},
		},
		AgentDescription: "Answers hardware and system requirements questions.",
		SystemPrompt: "You are a hardware requirements assistant. Be specific about minimum and recommended specs. " +
			"For comparative queries between two or more options, produce a structured pros/cons table per option " +
			"before giving your verdict.",
		SearchDomain: DomainHardware,
		Retrieval:    r,
		LLM:          c,
	}
}

// NewModuleInfoAgent answers "how does X work" / explanation-style questions.
func NewModuleInfoAgent(r retrieval.Service, c llm.Client) *RetrievalAgent {
	return &RetrievalAgent{
		BaseAgent: BaseAgent{
			AgentName:   "module_info",
			AgentDomain: DomainModuleInfo,
			Keywords:    []string{"module", "ros", "ros2", "gazebo", "isaac", "vla", "simulation"},
		},
		AgentDescription: "Explains how individual course modules and their tooling work.",
		SystemPrompt: "You are a course module assistant. Explain mechanisms and workflows clearly. " +
			"If the query spans more than one module, state the span up front and cover each module in order; " +
			"when explaining an advanced concept, reference the prerequisite concepts it builds on.",
		SearchDomain: DomainModuleInfo,
		Retrieval:    r,
		LLM:          c,
	}
}

// NewCapstoneAgent answers project/guidance-style questions.
func NewCapstoneAgent(r retrieval.Service, c llm.Client) *RetrievalAgent {
	return &RetrievalAgent{
		BaseAgent: BaseAgent{
			AgentName:   "capstone",
			AgentDomain: DomainCapstone,
			Keywords:    []string{"capstone", "project", "milestone", "autonomous", "submission", "deliverable"},
		},
		AgentDescription: "Guides students through the capstone project milestones.",
		SystemPrompt: "You are a capstone project advisor. Give actionable, step-by-step guidance. " +
			"When the query is pipeline-level, cover the pipeline stages in the canonical order " +
			"voice -> plan -> navigate -> manipulate. Milestone listings must always be given in order.",
		SearchDomain: DomainCapstone,
		Retrieval:    r,
		LLM:          c,
	}
}

// NewBookAgent is the fallback/default agent. It searches the whole
// corpus unfiltered rather than a single domain slice.
func NewBookAgent(r retrieval.Service, c llm.Client) *RetrievalAgent {
	return &RetrievalAgent{
		BaseAgent: BaseAgent{
			AgentName:   "book",
			AgentDomain: DomainGeneral,
			Keywords:    []string{},
		},
		AgentDescription: "General-purpose fallback that searches the full course material.",
		SystemPrompt:     "You are a helpful course assistant.",
		SearchDomain:     "",
		Retrieval:        r,
		LLM:              c,
	}
}

// CanHandle for the book agent always returns 0, so it is only ever
// selected by the router's default/fallback path, never by keyword score.
func (a *RetrievalAgent) CanHandle(query string) float64 {
	if a.AgentDomain == DomainGeneral {
		return 0
	}
	return a.BaseAgent.CanHandle(query)
}
