package models

// Delimiter fences the user question inside the completion request so the
// system instructions can reference it unambiguously.
const Delimiter = "####"

const (
	// EmbeddingDimensions is the vector length of the reference embedding
	// model (text-embedding-ada-002).
	EmbeddingDimensions = 1536

	DefaultTopK      = 10
	DefaultChunkSize = 1000
)

// forum archive header patterns
const (
	SenderRegex    = `^From:\s*(.+)$`
	SubjectRegex   = `^Subject:\s*(.+)$`
	SeparatorRegex = `^-{4,}\s*$`
)
