package parser

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"manual-rag/internal/chunker"
	"manual-rag/internal/models"

	"github.com/rs/zerolog/log"
)

// ForumPost is one message from a plain-text forum archive, split into
// retrieval-sized chunks that all carry the post's sender and subject.
type ForumPost struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Content string `json:"content"`
	ChunkID int    `json:"chunk_id"`
}

type forumParserState struct {
	sender, subject string
	currentContent  string
	result          []ForumPost
}

// ParseForumArchive parses a forum mail archive exported as plain text.
// Posts start with "From:" and "Subject:" header lines; runs of dashes
// separate posts. Each post's body is chunked independently.
func ParseForumArchive(input string, chunkSize int) []ForumPost {
	if chunkSize <= 0 {
		chunkSize = models.DefaultChunkSize
	}

	senderRe := regexp.MustCompile(models.SenderRegex)
	subjectRe := regexp.MustCompile(models.SubjectRegex)
	separatorRe := regexp.MustCompile(models.SeparatorRegex)

	f, err := os.Open(input)
	if err != nil {
		log.Error().Err(err).Msgf("Failed to open file: %s", input)
		return nil
	}
	defer f.Close()

	var state forumParserState
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		processForumLine(line, &state, senderRe, subjectRe, separatorRe, chunkSize)
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msgf("Failed reading file: %s", input)
	}
	flushPost(&state, chunkSize) // store last post if needed
	return state.result
}

// processForumLine handles a single archive line, updating the parser state
func processForumLine(line string, state *forumParserState, senderRe, subjectRe, separatorRe *regexp.Regexp, chunkSize int) {
	if separatorRe.MatchString(line) {
		flushPost(state, chunkSize)
		state.sender = ""
		state.subject = ""
		return
	}
	if m := senderRe.FindStringSubmatch(line); m != nil {
		flushPost(state, chunkSize)
		state.sender = strings.TrimSpace(m[1])
		return
	}
	if m := subjectRe.FindStringSubmatch(line); m != nil {
		state.subject = strings.TrimSpace(m[1])
		return
	}
	// inside a post, accumulate body lines
	if state.sender != "" {
		if state.currentContent != "" {
			state.currentContent += "\n"
		}
		state.currentContent += line
	}
}

// flushPost saves the current post's chunks if it has any content.
func flushPost(state *forumParserState, chunkSize int) {
	if state.sender == "" || strings.TrimSpace(state.currentContent) == "" {
		state.currentContent = ""
		return
	}
	for i, text := range chunker.Split(strings.TrimSpace(state.currentContent), chunkSize) {
		state.result = append(state.result, ForumPost{
			Sender:  state.sender,
			Subject: state.subject,
			Content: text,
			ChunkID: i + 1,
		})
	}
	state.currentContent = ""
}

// ForumPostsToChunks converts parsed posts into store-ready chunks. Forum
// archives have no pages; the post's ordinal fills that slot so retrieval
// can still point back at a location.
func ForumPostsToChunks(posts []ForumPost, filename string) []models.Chunk {
	chunks := make([]models.Chunk, 0, len(posts))
	post := 0
	for _, p := range posts {
		if p.ChunkID == 1 {
			post++
		}
		chunks = append(chunks, models.Chunk{
			Content:        p.Content,
			PageNumber:     post,
			ChunkType:      models.ChunkTypeText,
			SourceFilename: filename,
			Sender:         p.Sender,
			Subject:        p.Subject,
		})
	}
	return chunks
}
