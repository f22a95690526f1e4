package chunk

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfiguration is returned when the window tunables cannot produce progress.
var ErrInvalidConfiguration = errors.New("invalid chunk configuration")

// Splitter carries the chunking tunables so callers do not have to pass them around.
type Splitter struct {
	Size    int
	Overlap int
}

func NewSplitter(size, overlap int) (*Splitter, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}
	return &Splitter{Size: size, Overlap: overlap}, nil
}

func (s *Splitter) Split(text string) ([]string, error) {
	return Split(text, s.Size, s.Overlap)
}

// Validate reports whether size/overlap describe a window that always advances.
func Validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfiguration, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidConfiguration, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)", ErrInvalidConfiguration, overlap, size)
	}
	return nil
}

// Split cuts text into windows of size characters, each starting size-overlap
// characters after the previous one. Windows are trimmed; windows that trim to
// nothing are skipped without stopping the walk. Blank input yields no chunks.
func Split(text string, size, overlap int) ([]string, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}

	runes := []rune(text)
	total := len(runes)
	step := size - overlap

	chunks := make([]string, 0, total/step+1)
	for start := 0; start < total; start += step {
		end := start + size
		if end > total {
			end = total
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			chunks = append(chunks, piece)
		}

		if end == total {
			break
		}
	}

	return chunks, nil
}
