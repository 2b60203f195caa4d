// Package rag retrieves stored documents to augment a turn and indexes new ones.
package rag

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the maximum byte count per chunk.
	DefaultChunkSize = 500
	// DefaultChunkOverlap is the byte count carried over from the previous chunk.
	DefaultChunkOverlap = 50
)

// Chunker splits long documents into overlapping chunks, keeping paragraph boundaries when possible.
type Chunker struct {
	Size    int
	Overlap int
}

func NewChunker() *Chunker {
	return &Chunker{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap}
}

// Chunk splits content. Content no longer than Size is returned as a single chunk.
func (c *Chunker) Chunk(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if len(content) <= c.Size {
		return []string{content}
	}

	var chunks []string
	var current strings.Builder

	for _, para := range splitParagraphs(content) {
		if current.Len()+len(para) > c.Size && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			if overlap := overlapText(chunks[len(chunks)-1], c.Overlap); overlap != "" {
				current.WriteString(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)

		for current.Len() > c.Size {
			text := current.String()
			cut := findBreakPoint(text[:runeBoundary(text, c.Size)])
			chunks = append(chunks, strings.TrimSpace(text[:cut]))
			current.Reset()
			current.WriteString(strings.TrimSpace(text[cut:]))
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitParagraphs splits on blank lines and joins the lines of each paragraph with spaces.
func splitParagraphs(content string) []string {
	var result []string
	var current strings.Builder

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(line)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// overlapText returns the tail of the previous chunk, starting at a word boundary.
func overlapText(last string, size int) string {
	if size <= 0 {
		return ""
	}
	if len(last) <= size {
		return last
	}
	tail := last[runeBoundary(last, len(last)-size):]
	if idx := strings.IndexAny(tail, " \t"); idx >= 0 {
		return tail[idx+1:]
	}
	return tail
}

// findBreakPoint finds a sentence or word boundary in text, or returns len(text).
func findBreakPoint(text string) int {
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] == '.' || text[i] == '!' || text[i] == '?' {
			if i == len(text)-1 || isSpace(text[i+1]) {
				return i + 1
			}
		}
	}

	for i := len(text) - 1; i >= len(text)/2; i-- {
		if isSpace(text[i]) {
			return i
		}
	}

	return len(text)
}

// runeBoundary moves n back to the start of the rune containing byte n.
func runeBoundary(s string, n int) int {
	if n >= len(s) {
		return len(s)
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

// isSpace only matches ASCII whitespace so a cut never lands inside a multibyte rune.
func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
