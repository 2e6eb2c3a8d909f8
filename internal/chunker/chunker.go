package chunker

import (
	"strings"

	"manual-rag/internal/models"
)

// Split breaks text into chunks on line boundaries. Lines are packed
// greedily: a line joins the current chunk as long as the characters
// already accumulated stay below chunkSize. The candidate line's own
// length is not counted by that check, so a chunk can overshoot
// chunkSize by up to one line. A line that alone exceeds chunkSize is
// emitted verbatim as its own chunk. Accumulated lines are joined with
// a single space.
func Split(text string, chunkSize int) []string {
	if text == "" || chunkSize <= 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
			currentLen = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			flush()
			continue
		}
		if len(line) >= chunkSize {
			flush()
			chunks = append(chunks, line)
			continue
		}
		if currentLen >= chunkSize {
			flush()
		}
		current = append(current, line)
		currentLen += len(line)
	}
	flush()

	return chunks
}

// SplitPages applies Split to each page independently, tagging every chunk
// with that page's number. A page with no extractable text contributes
// nothing.
func SplitPages(pages []models.Page, chunkSize int, filename string) []models.Chunk {
	var chunks []models.Chunk
	for _, page := range pages {
		for _, text := range Split(page.Text, chunkSize) {
			chunks = append(chunks, models.Chunk{
				Content:        text,
				PageNumber:     page.Number,
				ChunkType:      models.ChunkTypeText,
				SourceFilename: filename,
			})
		}
	}
	return chunks
}
