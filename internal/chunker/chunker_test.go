package chunker

import (
	"strings"
	"testing"

	"manual-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	assert.Empty(t, Split("", 100))
}

func TestSplitSingleShortLine(t *testing.T) {
	chunks := Split("hello world", 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestSplitJoinsLinesWithSpaces(t *testing.T) {
	chunks := Split("first line\nsecond line\nthird line", 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "first line second line third line", chunks[0])
}

func TestSplitStartsNewChunkPastThreshold(t *testing.T) {
	// two 6-char lines reach the threshold; the third starts a new chunk
	chunks := Split("aaaaaa\nbbbbbb\ncccccc", 12)
	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaaaa bbbbbb", chunks[0])
	assert.Equal(t, "cccccc", chunks[1])
}

func TestSplitChunksCanOvershoot(t *testing.T) {
	// the accumulated length check ignores the candidate line, so the
	// second line joins even though the result exceeds the chunk size
	chunks := Split("aaaaaaaa\nbbbbbbbb", 10)
	require.Len(t, chunks, 1)
	assert.Equal(t, "aaaaaaaa bbbbbbbb", chunks[0])
	assert.Greater(t, len(chunks[0]), 10)
}

func TestSplitOversizedLineStandsAlone(t *testing.T) {
	long := strings.Repeat("x", 50)
	chunks := Split("short\n"+long+"\ntail", 20)
	require.Len(t, chunks, 3)
	assert.Equal(t, "short", chunks[0])
	assert.Equal(t, long, chunks[1])
	assert.Equal(t, "tail", chunks[2])
}

func TestSplitTrailingChunkFlushed(t *testing.T) {
	chunks := Split("aaaaaa\nbbbbbb\ncc", 12)
	require.Len(t, chunks, 2)
	assert.Equal(t, "cc", chunks[1])
}

func TestSplitNoLineDroppedOrDuplicated(t *testing.T) {
	inputs := []string{
		"one\ntwo\nthree\nfour\nfive",
		"a\n\nb\n\n\nc",
		strings.Repeat("line of text\n", 40),
		"single",
	}
	for _, input := range inputs {
		for _, size := range []int{5, 20, 1000} {
			joined := strings.Join(Split(input, size), " ")
			var wantLines []string
			for _, l := range strings.Split(input, "\n") {
				if l != "" {
					wantLines = append(wantLines, l)
				}
			}
			assert.Equal(t, strings.Join(wantLines, " "), joined,
				"input %q size %d", input, size)
		}
	}
}

func TestSplitPagesTagsPageNumbers(t *testing.T) {
	pages := []models.Page{
		{Number: 1, Text: "Hello world"},
		{Number: 2, Text: "Goodbye"},
	}
	chunks := SplitPages(pages, 1000, "manual")
	require.Len(t, chunks, 2)
	assert.Equal(t, "Hello world", chunks[0].Content)
	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, "Goodbye", chunks[1].Content)
	assert.Equal(t, 2, chunks[1].PageNumber)
	for _, c := range chunks {
		assert.Equal(t, models.ChunkTypeText, c.ChunkType)
		assert.Equal(t, "manual", c.SourceFilename)
	}
}

func TestSplitPagesSkipsEmptyPages(t *testing.T) {
	pages := []models.Page{
		{Number: 1, Text: ""},
		{Number: 2, Text: "content"},
	}
	chunks := SplitPages(pages, 1000, "manual")
	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].PageNumber)
}
