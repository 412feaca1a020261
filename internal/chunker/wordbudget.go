package chunker

import (
	"regexp"
	"strings"
)

var sentenceBoundaryRe = regexp.MustCompile(`[.!?]\s+`)

// WordBudgetChunker walks the text word by word, emitting
// a chunk once the window reaches TargetWords and ends on a sentence
// boundary (within the last 20% of the window), or hard-cutting at
// MaxWords if no boundary is found.
type WordBudgetChunker struct {
	TargetWords  int
	MinWords     int
	MaxWords     int
	OverlapWords int
}

// Chunk splits text into a strictly ordered sequence of chunks.
func (c WordBudgetChunker) Chunk(text string) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	number := 0
	for start < len(words) {
		end, boundary := c.findChunkEnd(words, start)
		chunkWords := words[start:end]
		chunks = append(chunks, Chunk{
			Text:          strings.Join(chunkWords, " "),
			ChunkNumber:   number,
			WordCount:     len(chunkWords),
			BoundaryType:  boundary,
			StartPosition: start,
			EndPosition:   end,
		})
		number++

		if end >= len(words) {
			break
		}
		next := end - c.OverlapWords
		if next <= start {
			next = end
		}
		start = next
	}

	if len(chunks) > 0 {
		chunks[len(chunks)-1].BoundaryType = BoundaryEndOfDocument
	}
	return chunks
}

// findChunkEnd locates the end index (exclusive) of the next chunk
// starting at start, per the target/sentence-boundary/hard-cut rule.
func (c WordBudgetChunker) findChunkEnd(words []string, start int) (int, BoundaryType) {
	remaining := len(words) - start
	if remaining <= c.MaxWords {
		return len(words), BoundaryHardCut
	}

	target := start + c.TargetWords
	if target > len(words) {
		target = len(words)
	}
	maxEnd := start + c.MaxWords
	if maxEnd > len(words) {
		maxEnd = len(words)
	}

	windowSize := target - start
	searchFrom := target - windowSize/5 // last 20% of the window
	if searchFrom < start {
		searchFrom = start
	}

	for i := searchFrom; i < maxEnd && i < len(words); i++ {
		if i == start {
			continue
		}
		// words[i] closes a sentence when it ends in [.!?].
		if sentenceBoundaryRe.MatchString(words[i] + " ") {
			return i + 1, BoundarySemantic
		}
	}
	return maxEnd, BoundaryHardCut
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
