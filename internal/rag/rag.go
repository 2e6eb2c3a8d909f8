// Package rag wires the retrieval pipeline: embed the question, pull the
// nearest stored chunks, and ask the model to answer from them.
package rag

import (
	"context"
	"fmt"
	"strings"

	"manual-rag/internal/embedding"
	"manual-rag/internal/llmservice"
	"manual-rag/internal/models"
	"manual-rag/internal/prompt"
	"manual-rag/internal/store"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
)

// Completer produces an answer from a list of chat messages.
type Completer interface {
	Complete(ctx context.Context, messages []llms.MessageContent) (string, error)
}

type RAG struct {
	embedder      embedding.Embedder
	store         store.VectorStore
	completer     Completer
	topK          int
	domainContext string
}

func New(embedder embedding.Embedder, vectorStore store.VectorStore, completer Completer, topK int, domainContext string) *RAG {
	if topK <= 0 {
		topK = models.DefaultTopK
	}
	return &RAG{
		embedder:      embedder,
		store:         vectorStore,
		completer:     completer,
		topK:          topK,
		domainContext: domainContext,
	}
}

// Retrieve embeds the question and returns the k most similar stored
// chunks. Every call re-embeds; repeated questions are not cached.
func (r *RAG) Retrieve(ctx context.Context, question string, k int) ([]models.SearchResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is empty")
	}
	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	results, err := r.store.TopK(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	return results, nil
}

// Query runs the full pipeline: retrieve context, assemble the prompt,
// request a completion. If retrieval fails no completion is attempted.
func (r *RAG) Query(ctx context.Context, question string) (*models.PromptResponse, error) {
	results, err := r.Retrieve(ctx, question, r.topK)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("retrieved", len(results)).Msg("Retrieved context")

	systemMessage := prompt.BuildSystemMessage(results, r.domainContext)
	messages := []llms.MessageContent{
		llmservice.SystemMessage(systemMessage),
		llmservice.UserMessage(prompt.WrapUserMessage(question)),
	}

	answer, err := r.completer.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	return &models.PromptResponse{
		Query:   question,
		Source:  prompt.FormatSources(results),
		Content: answer,
	}, nil
}
