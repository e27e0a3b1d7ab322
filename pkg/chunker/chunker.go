package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 100
)

// TextChunker splits plain text into overlapping windows of at most ChunkSize bytes.
// A single rune wider than ChunkSize is never split, so its chunk is the one exception.
type TextChunker struct {
	ChunkSize int
	Overlap   int
}

// NewTextChunker returns a TextChunker. A non-positive chunkSize selects the default
// size and a negative overlap is treated as 0.
func NewTextChunker(chunkSize, overlap int) *TextChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	return &TextChunker{ChunkSize: chunkSize, Overlap: overlap}
}

func (c *TextChunker) Split(text string) []string {
	return Chunk(text, c.ChunkSize, c.Overlap)
}

// Chunk splits text into trimmed, non-empty chunks.
//
// Each window starts at the current offset and spans chunkSize bytes. When the window
// ends inside the text it is pulled back to the last space after the window start, so
// words are not split; without such a space the raw boundary is kept, adjusted to a
// rune start. The next window starts overlap bytes before the previous end, and always
// at least one byte after the previous start. Chunking stops once a window reaches
// the end of the text.
//
// A chunk exceeds chunkSize only when chunkSize is smaller than one multibyte rune:
// that rune becomes a chunk of its own.
func Chunk(text string, chunkSize, overlap int) []string {
	if text == "" || chunkSize <= 0 {
		return []string{}
	}
	if overlap < 0 {
		overlap = 0
	}

	n := len(text)
	chunks := make([]string, 0, n/chunkSize+1)
	start := 0
	for start < n {
		end := windowEnd(text, start, chunkSize)

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			next = start + 1
		}
		for next < n && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}

	return chunks
}

func windowEnd(text string, start, chunkSize int) int {
	n := len(text)
	end := start + chunkSize
	if end >= n {
		return n
	}

	if space := strings.LastIndexByte(text[start:end], ' '); space > 0 {
		return start + space
	}

	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	if end == start {
		// a single rune wider than the window
		end = start + 1
		for end < n && !utf8.RuneStart(text[end]) {
			end++
		}
	}
	return end
}
