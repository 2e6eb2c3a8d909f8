package prompt

import (
	"testing"

	"manual-rag/internal/models"

	"github.com/stretchr/testify/assert"
)

func sampleResults() []models.SearchResult {
	return []models.SearchResult{
		{Content: "Set the RF power to 150 W.", PageNumber: 12, SourceFilename: "etcher_manual", Score: 0.91},
		{Content: "Vent the chamber before opening.", PageNumber: 3, SourceFilename: "etcher_manual", Score: 0.77},
	}
}

func TestBuildSystemMessageEmbedsResults(t *testing.T) {
	msg := BuildSystemMessage(sampleResults(), "ICP etcher")

	assert.Contains(t, msg, "Set the RF power to 150 W.")
	assert.Contains(t, msg, "Vent the chamber before opening.")
	assert.Contains(t, msg, "Rank: 1")
	assert.Contains(t, msg, "Rank: 2")
	assert.Contains(t, msg, "Page: 12")
	assert.Contains(t, msg, "ICP etcher")
	assert.Contains(t, msg, models.Delimiter)
	// the model must admit missing information instead of fabricating
	assert.Contains(t, msg, "do not have the necessary information")
	assert.Contains(t, msg, "extra polite words")
}

func TestBuildSystemMessageDeterministic(t *testing.T) {
	a := BuildSystemMessage(sampleResults(), "tool")
	b := BuildSystemMessage(sampleResults(), "tool")
	assert.Equal(t, a, b)
}

func TestBuildSystemMessageIncludesForumMetadata(t *testing.T) {
	results := []models.SearchResult{
		{Content: "body", PageNumber: 1, Sender: "alice@example.edu", Subject: "etch rates"},
	}
	msg := BuildSystemMessage(results, "")
	assert.Contains(t, msg, "Sender: alice@example.edu")
	assert.Contains(t, msg, "Subject: etch rates")
}

func TestWrapUserMessage(t *testing.T) {
	assert.Equal(t, "####how do I vent?####", WrapUserMessage("how do I vent?"))
}

func TestFormatSources(t *testing.T) {
	src := FormatSources(sampleResults())
	assert.Contains(t, src, "Page Number: 12")
	assert.Contains(t, src, "Set the RF power to 150 W.")
	assert.Contains(t, src, "---")
}
