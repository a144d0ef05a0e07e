// Package chunker splits extracted document text into overlapping windows.
package chunker

import (
	"errors"
	"fmt"
)

var ErrInvalidArgument = errors.New("invalid chunk arguments")

// Chunk is one window over the source text. Start and Size count runes.
type Chunk struct {
	Index int // 1-based
	Start int
	Size  int
	Text  string
}

// Split cuts text into windows of size runes, each starting size-overlap
// runes after the previous one. The last window takes whatever remains.
func Split(text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidArgument, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidArgument, size, overlap)
	}

	r := []rune(text)
	if len(r) == 0 {
		return []Chunk{}, nil
	}
	stride := size - overlap

	out := make([]Chunk, 0, len(r)/stride+1)
	for start := 0; start < len(r); start += stride {
		end := start + size
		if end > len(r) {
			end = len(r)
		}
		out = append(out, Chunk{
			Index: len(out) + 1,
			Start: start,
			Size:  end - start,
			Text:  string(r[start:end]),
		})
		if end == len(r) {
			break
		}
	}
	return out, nil
}
