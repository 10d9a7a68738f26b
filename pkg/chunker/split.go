package chunker

import "strings"

// Split splits text into windows of size code points, each starting
// size-overlap code points after the previous one. The last window may be
// shorter. Empty text yields no chunks.
func Split(text string, size, overlap int) ([]Chunk, error) {
	p := Policy{Size: size, Overlap: overlap}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	n := len(runes)
	chunks := make([]Chunk, 0, p.Count(n))
	step := size - overlap

	for start := 0; start < n; start += step {
		end := min(start+size, n)
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})
		if end == n {
			break
		}
	}

	return chunks, nil
}

// Reconstruct joins chunks produced with the given overlap back into the
// original text. Chunks must be in index order.
func Reconstruct(chunks []Chunk, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c.Text)
			continue
		}
		runes := []rune(c.Text)
		if overlap < len(runes) {
			b.WriteString(string(runes[overlap:]))
		}
	}
	return b.String()
}
