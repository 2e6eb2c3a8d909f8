// Package prompt assembles the system message that constrains the model
// to answer only from retrieved context. Pure string formatting; identical
// inputs produce identical output.
package prompt

import (
	"fmt"
	"strings"

	"manual-rag/internal/models"
)

const systemTemplate = `You are an engineer with expertise in complex tools and technical equipment.
Follow these instructions to process the user query.
The user query is delimited with %s.

[Context retrieved from the vector database]
These are the top relevant pieces of information retrieved for the query,
ranked most relevant first (lower rank numbers are more relevant):

%s
%s
[Instructions]

Formulate a response that best matches the user's query.
Give the response with as much relevant detail as possible.
Do not preface or end the response with extra polite words.
Just answer the question with the facts. Format the response as the
user would like to see it if specified.

Base your answer only on the retrieved context above. If the retrieved
texts do not contain the information needed to answer the user query,
reply that you do not have the necessary information.
`

// BuildSystemMessage formats retrieved records into the instruction block
// for the completion request. domainContext optionally names the equipment
// or corpus the questions relate to.
func BuildSystemMessage(results []models.SearchResult, domainContext string) string {
	var sb strings.Builder
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("Rank: %d\n", i+1))
		if r.SourceFilename != "" {
			sb.WriteString(fmt.Sprintf("Source: %s\n", r.SourceFilename))
		}
		if r.Sender != "" {
			sb.WriteString(fmt.Sprintf("Sender: %s\n", r.Sender))
		}
		if r.Subject != "" {
			sb.WriteString(fmt.Sprintf("Subject: %s\n", r.Subject))
		}
		sb.WriteString(fmt.Sprintf("Page: %d\n", r.PageNumber))
		sb.WriteString(fmt.Sprintf("Text: %s\n", r.Content))
		sb.WriteString("---\n")
	}

	domain := ""
	if domainContext != "" {
		domain = fmt.Sprintf("\nThe equipment the questions relate to is: %s\n", domainContext)
	}
	return fmt.Sprintf(systemTemplate, models.Delimiter, sb.String(), domain)
}

// WrapUserMessage fences the raw question with the delimiter referenced by
// the system message.
func WrapUserMessage(question string) string {
	return models.Delimiter + question + models.Delimiter
}

// FormatSources renders retrieved records for display next to the answer.
func FormatSources(results []models.SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("Page Number: %d --- Text: %s", r.PageNumber, r.Content))
	}
	return strings.Join(parts, "\n\n---\n")
}
