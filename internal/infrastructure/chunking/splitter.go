package chunking

import "strings"

// Splitter cuts document text into overlapping chunks. Cut points
// prefer paragraph and sentence boundaries near the target size so
// policy clauses survive in one piece where possible.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.cutPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - s.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// cutPoint searches backwards from the size limit for a paragraph
// break, then a sentence end, then any whitespace. The search window
// is the last quarter of the chunk; a hard cut only happens for text
// with no breaks at all in that window.
func (s *Splitter) cutPoint(runes []rune, start, limit int) int {
	windowStart := limit - s.ChunkSize/4
	if windowStart < start+1 {
		windowStart = start + 1
	}

	for i := limit; i > windowStart; i-- {
		if runes[i-1] == '\n' && i >= 2 && runes[i-2] == '\n' {
			return i
		}
	}
	for i := limit; i > windowStart; i-- {
		r := runes[i-1]
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			return i
		}
	}
	for i := limit; i > windowStart; i-- {
		if runes[i-1] == ' ' || runes[i-1] == '\t' {
			return i
		}
	}
	return limit
}
