package citation_test

import (
	"testing"

	"github.com/andrew/llm-rag-poc/pkg/citation"
	"github.com/andrew/llm-rag-poc/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passage(source, section string, score float32) models.RetrievedPassage {
	return models.RetrievedPassage{
		Chunk: models.Chunk{Source: source, Section: section},
		Score: score,
	}
}

func TestBuild_NumbersAreOneBasedAndDenseInInsertionOrder(t *testing.T) {
	t.Parallel()

	b := citation.NewBuilder()
	b.AddPassages([]models.RetrievedPassage{
		passage("glossary.md", "s1", 0.9),
		passage("hardware.md", "s2", 0.8),
		passage("capstone.md", "s3", 0.7),
	}, "book")

	out := b.Build()
	require.Len(t, out, 3)
	for i, c := range out {
		assert.Equal(t, i+1, c.Number)
	}
	assert.Equal(t, "glossary.md", out[0].Source)
	assert.Equal(t, "hardware.md", out[1].Source)
	assert.Equal(t, "capstone.md", out[2].Source)
}

func TestAddPassages_DedupsBySourceAndSectionKeepingHighestScore(t *testing.T) {
	t.Parallel()

	b := citation.NewBuilder()
	b.AddPassages([]models.RetrievedPassage{passage("glossary.md", "definitions", 0.4)}, "glossary")
	b.AddPassages([]models.RetrievedPassage{passage("glossary.md", "definitions", 0.9)}, "book")

	out := b.Build()
	require.Len(t, out, 1)
	assert.Equal(t, float32(0.9), out[0].Score)
	assert.Equal(t, "book", out[0].ContributingAgent)
}

func TestAddPassages_CarriesChunkTitleIntoCitation(t *testing.T) {
	t.Parallel()

	b := citation.NewBuilder()
	b.AddPassages([]models.RetrievedPassage{
		{Chunk: models.Chunk{Title: "GPU and Jetson Hardware Requirements", Source: "hardware.md", Section: "minimum-specs"}, Score: 0.8},
	}, "hardware")

	out := b.Build()
	require.Len(t, out, 1)
	assert.Equal(t, "GPU and Jetson Hardware Requirements", out[0].Title)
}

func TestAddPassages_HigherScoringDuplicateReplacesTitleToo(t *testing.T) {
	t.Parallel()

	b := citation.NewBuilder()
	b.AddPassages([]models.RetrievedPassage{
		{Chunk: models.Chunk{Title: "Old Title", Source: "hardware.md", Section: "specs"}, Score: 0.3},
	}, "hardware")
	b.AddPassages([]models.RetrievedPassage{
		{Chunk: models.Chunk{Title: "Hardware Requirements", Source: "hardware.md", Section: "specs"}, Score: 0.9},
	}, "book")

	out := b.Build()
	require.Len(t, out, 1)
	assert.Equal(t, "Hardware Requirements", out[0].Title)
}

func TestAddPassages_DifferentSectionsSameSourceAreDistinctCitations(t *testing.T) {
	t.Parallel()

	b := citation.NewBuilder()
	b.AddPassages([]models.RetrievedPassage{
		passage("module.md", "intro", 0.5),
		passage("module.md", "advanced", 0.6),
	}, "module_info")

	out := b.Build()
	require.Len(t, out, 2)
}

func TestRenumber_ReassignsDenseOneBasedNumbers(t *testing.T) {
	t.Parallel()

	in := []models.Citation{
		{Number: 5, Source: "a"},
		{Number: 9, Source: "b"},
	}
	out := citation.Renumber(in)
	assert.Equal(t, 1, out[0].Number)
	assert.Equal(t, 2, out[1].Number)
}
