package extractor

import (
	"strings"
	"unicode"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunk splits text into pieces of at most size runes, each starting overlap
// runes before the end of the previous one. Cuts prefer a paragraph break,
// then a sentence end, then a line break, then whitespace, searched within
// the last 30% of the window.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}

	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			chunks = append(chunks, piece)
		}

		if end >= len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

func breakPoint(runes []rune, start, end int) int {
	searchStart := start + (end-start)*7/10

	for i := end - 1; i > searchStart; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}

	for i := end - 1; i >= searchStart; i-- {
		switch runes[i] {
		case '。', '！', '？', '；':
			return i + 1
		case '.', '!', '?':
			if unicode.IsSpace(runes[i+1]) {
				return i + 1
			}
		}
	}

	for i := end - 1; i >= searchStart; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}

	for i := end - 1; i >= searchStart; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}

	return end
}
