// Package chunker splits extracted document text into overlapping
// fixed-size chunks, the unit of embedding and retrieval.
package chunker

import (
	"errors"
	"strings"
)

const (
	// DefaultChunkSize is the default chunk size in characters.
	DefaultChunkSize = 1000
	// DefaultOverlap is the default overlap between consecutive chunks.
	DefaultOverlap = 200
)

var (
	// ErrEmptyInput is returned when the input text is empty or whitespace-only.
	ErrEmptyInput = errors.New("chunker: empty input text")
	// ErrNoChunks is returned when splitting yields zero chunks.
	ErrNoChunks = errors.New("chunker: no chunks produced")
)

// Split cuts text into overlapping windows of chunkSize characters.
// Sizes count Unicode code points, not bytes, so boundaries never land
// inside a multi-byte rune. Consecutive chunks share overlap characters
// so retrieval does not lose meaning at chunk boundaries. The output is
// deterministic for a given input and parameter set.
//
// If chunkSize <= 0, DefaultChunkSize is used. If overlap < 0 or
// overlap >= chunkSize, it is clamped to DefaultOverlap (or a quarter of
// chunkSize when that is still too large).
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 4
		}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = 1
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	return chunks, nil
}
