package parser

import (
	"os"
	"path/filepath"
	"testing"

	"manual-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleArchive = `From: alice@fab.example.edu
Subject: RIE etch rates for SiO2

Has anyone characterized the etch rate drift after chamber cleaning?
We see roughly 10% variation week to week.
--------
From: bob@fab.example.edu
Subject: Re: RIE etch rates for SiO2

We recondition with a 30 minute O2 plasma and the rates settle.
`

func TestParseForumArchive(t *testing.T) {
	posts := ParseForumArchive(writeArchive(t, sampleArchive), 1000)
	require.Len(t, posts, 2)

	assert.Equal(t, "alice@fab.example.edu", posts[0].Sender)
	assert.Equal(t, "RIE etch rates for SiO2", posts[0].Subject)
	assert.Contains(t, posts[0].Content, "etch rate drift")
	assert.Equal(t, 1, posts[0].ChunkID)

	assert.Equal(t, "bob@fab.example.edu", posts[1].Sender)
	assert.Contains(t, posts[1].Content, "O2 plasma")
}

func TestParseForumArchiveChunksLongPosts(t *testing.T) {
	archive := "From: carol@fab.example.edu\nSubject: Long post\n\nfirst line of the body\nsecond line of the body\nthird line of the body\n"
	posts := ParseForumArchive(writeArchive(t, archive), 30)
	require.Greater(t, len(posts), 1)
	for i, p := range posts {
		assert.Equal(t, "carol@fab.example.edu", p.Sender)
		assert.Equal(t, "Long post", p.Subject)
		assert.Equal(t, i+1, p.ChunkID)
	}
}

func TestParseForumArchiveMissingFile(t *testing.T) {
	assert.Nil(t, ParseForumArchive(filepath.Join(t.TempDir(), "nope.txt"), 1000))
}

func TestForumPostsToChunks(t *testing.T) {
	posts := []ForumPost{
		{Sender: "a", Subject: "s1", Content: "one", ChunkID: 1},
		{Sender: "a", Subject: "s1", Content: "two", ChunkID: 2},
		{Sender: "b", Subject: "s2", Content: "three", ChunkID: 1},
	}
	chunks := ForumPostsToChunks(posts, "archive")
	require.Len(t, chunks, 3)
	// chunks of the same post share its ordinal as page number
	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, 1, chunks[1].PageNumber)
	assert.Equal(t, 2, chunks[2].PageNumber)
	assert.Equal(t, "b", chunks[2].Sender)
	assert.Equal(t, "s2", chunks[2].Subject)
	for _, c := range chunks {
		assert.Equal(t, models.ChunkTypeText, c.ChunkType)
		assert.Equal(t, "archive", c.SourceFilename)
	}
}
