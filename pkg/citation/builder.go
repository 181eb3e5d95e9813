// Package citation turns retrieved passages into the numbered, deduped
// citation list attached to an agent's final answer.
package citation

import (
	"github.com/andrew/llm-rag-poc/pkg/models"
)

type sourceKey struct {
	source  string
	section string
}

// Builder accumulates passages from one or more agent runs and renders
// deduped, densely-numbered citations in insertion order.
type Builder struct {
	order []sourceKey
	best  map[sourceKey]models.Citation
}

// NewBuilder returns an empty citation builder.
func NewBuilder() *Builder {
	return &Builder{best: make(map[sourceKey]models.Citation)}
}

// AddPassages folds passages retrieved by agentName into the builder,
// keeping the highest-scoring occurrence of each (source, section) pair
// and recording the first agent to contribute a given source.
func (b *Builder) AddPassages(passages []models.RetrievedPassage, agentName string) {
	for _, p := range passages {
		key := sourceKey{source: p.Chunk.Source, section: p.Chunk.Section}

		existing, seen := b.best[key]
		if !seen {
			b.order = append(b.order, key)
			b.best[key] = models.Citation{
				Title:             p.Chunk.Title,
				Source:            p.Chunk.Source,
				Section:           p.Chunk.Section,
				Score:             p.Score,
				ContributingAgent: agentName,
			}
			continue
		}

		if p.Score > existing.Score {
			existing.Title = p.Chunk.Title
			existing.Score = p.Score
			existing.ContributingAgent = agentName
			b.best[key] = existing
		}
	}
}

// Build renders the accumulated citations with 1-based dense numbering in
// insertion order.
func (b *Builder) Build() []models.Citation {
	out := make([]models.Citation, 0, len(b.order))
	for i, key := range b.order {
		c := b.best[key]
		c.Number = i + 1
		out = append(out, c)
	}
	return out
}

// Renumber re-sequences an already-built citation slice so numbers stay
// 1-based and dense after any external filtering has removed entries.
func Renumber(citations []models.Citation) []models.Citation {
	for i := range citations {
		citations[i].Number = i + 1
	}
	return citations
}
