package models

// Chunk types stored alongside each record so retrieval can tell prose
// apart from flattened table rows.
const (
	ChunkTypeText  = "text"
	ChunkTypeTable = "table"
)

// Page holds the extracted text of a single document page.
type Page struct {
	Number int
	Text   string
}

// Table holds the raw rows of one extracted table and the page it came from.
type Table struct {
	Rows       [][]string
	PageNumber int
}

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	Content        string
	PageNumber     int
	ChunkType      string
	ChunkNumber    int
	SourceFilename string
	Sender         string
	Subject        string
}

// EmbeddedRecord is a chunk plus its vector, ready to be written to a store.
type EmbeddedRecord struct {
	Chunk
	Embedding []float32
}

// SearchResult is one retrieved record. Vectors are excluded; only the
// text and its metadata travel back to the caller.
type SearchResult struct {
	Content        string
	PageNumber     int
	ChunkType      string
	ChunkNumber    int
	SourceFilename string
	Sender         string
	Subject        string
	Score          float64
}

// PromptResponse is the assistant's answer along with the sources it used.
type PromptResponse struct {
	Query   string
	Source  string
	Content string
}
