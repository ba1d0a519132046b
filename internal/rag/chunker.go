package rag

import "strings"

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Normalize collapses whitespace runs into single spaces and trims the ends.
// Chunking and hashing both run on the normalized form so that re-uploads of
// the same content with different layout produce the same chunks.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Chunk splits normalized text into overlapping segments of at most size
// characters. When a window does not already reach the end of the text, the
// cut prefers the last sentence terminator in the window, provided that
// boundary sits past half the window; consecutive chunks share up to overlap
// characters so context survives a cut. Newlines never act as boundaries
// because Normalize has already collapsed them to spaces. Chunks that are
// empty after trimming are dropped.
func Chunk(text string, size, overlap int) []string {
	text = Normalize(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunk := text[start:end]
		if end < len(text) {
			breakPoint := strings.LastIndexByte(chunk, '.')
			if breakPoint > size/2 {
				chunk = text[start : start+breakPoint+1]
				next := start + breakPoint + 1 - overlap
				if next <= start {
					next = end - overlap
				}
				start = next
			} else {
				start = end - overlap
			}
		} else {
			start = end
		}
		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}
	return chunks
}
