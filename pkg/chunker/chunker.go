// Package chunker splits document text into fixed-size, overlapping windows.
//
// Sizes and offsets count Unicode code points, so multi-byte text is never cut
// inside a character.
package chunker

import (
	"fmt"

	"github.com/papercomputeco/ragline/pkg/ragerr"
)

const (
	// DefaultSize is the window size used when none is configured.
	DefaultSize = 1000

	// DefaultOverlap is the overlap used when none is configured.
	DefaultOverlap = 200
)

// Chunk is one window of a document.
type Chunk struct {
	// Index is the position of the chunk within its document, starting at 0.
	Index int

	// Text is the window content.
	Text string

	// Start and End are the half-open code point offsets of Text in the
	// original document.
	Start int
	End   int
}

// Policy is a chunk size and overlap pair.
type Policy struct {
	Size    int `json:"size" toml:"size"`
	Overlap int `json:"overlap" toml:"overlap"`
}

// DefaultPolicy returns the default chunking policy.
func DefaultPolicy() Policy {
	return Policy{Size: DefaultSize, Overlap: DefaultOverlap}
}

// Validate reports ragerr.ErrInvalidConfiguration unless size > 0 and
// 0 <= overlap < size.
func (p Policy) Validate() error {
	if p.Size <= 0 {
		return ragerr.New(ragerr.ErrInvalidConfiguration, ragerr.StageChunk, "",
			fmt.Errorf("chunk size must be positive, got %d", p.Size))
	}
	if p.Overlap < 0 || p.Overlap >= p.Size {
		return ragerr.New(ragerr.ErrInvalidConfiguration, ragerr.StageChunk, "",
			fmt.Errorf("chunk overlap must be in [0, %d), got %d", p.Size, p.Overlap))
	}
	return nil
}

// Split chunks text with the policy.
func (p Policy) Split(text string) ([]Chunk, error) {
	return Split(text, p.Size, p.Overlap)
}

// Count returns how many chunks a text of length n produces.
func (p Policy) Count(n int) int {
	switch {
	case n == 0:
		return 0
	case n <= p.Size:
		return 1
	}
	step := p.Size - p.Overlap
	return (n - p.Overlap + step - 1) / step
}
