package services

import (
	"regexp"
	"strings"
)

var (
	paragraphSplitRe = regexp.MustCompile(`\n{2,}`)
	sentenceSplitRe  = regexp.MustCompile(`(?s)(.*?[.!?])(?:\s+|$)`)
)

// Chunker splits extracted text into overlapping chunks sized for
// embedding. Splits prefer paragraph boundaries, then sentence boundaries,
// then word boundaries, so a chunk never cuts a word in half.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker panics if overlap is not strictly smaller than chunkSize,
// which would make packing loop forever.
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		panic("chunker: chunkSize must be positive")
	}
	if overlap < 0 || overlap >= chunkSize {
		panic("chunker: overlap must be in [0, chunkSize)")
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Split breaks text into ordered chunks. Whitespace-only input yields no
// chunks. Each chunk stays within chunkSize plus the overlap carried over
// from its predecessor.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	units := c.splitUnits(text)
	if len(units) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder
	// set while current holds only text carried over from the previous
	// chunk; such a buffer must absorb the next unit rather than flush
	// again, or it would be emitted as a duplicate chunk of its own
	carriedOnly := false

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		if len(chunks) > 0 && c.overlap > 0 {
			current.WriteString(c.overlapTail(chunks[len(chunks)-1]))
		}
		carriedOnly = current.Len() > 0
	}

	for _, unit := range units {
		if !carriedOnly && current.Len() > 0 && current.Len()+1+len(unit) > c.chunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(unit)
		carriedOnly = false
	}
	if strings.TrimSpace(current.String()) != "" && !carriedOnly {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}

// splitUnits produces word-boundary-safe pieces no longer than chunkSize.
func (c *Chunker) splitUnits(text string) []string {
	var units []string
	for _, para := range paragraphSplitRe.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= c.chunkSize {
			units = append(units, para)
			continue
		}
		for _, sentence := range splitSentences(para) {
			if len(sentence) <= c.chunkSize {
				units = append(units, sentence)
				continue
			}
			units = append(units, c.splitWords(sentence)...)
		}
	}
	return units
}

func splitSentences(para string) []string {
	matches := sentenceSplitRe.FindAllStringSubmatch(para, -1)
	if len(matches) == 0 {
		return []string{para}
	}
	var sentences []string
	consumed := 0
	for _, m := range matches {
		s := strings.TrimSpace(m[1])
		if s != "" {
			sentences = append(sentences, s)
		}
		consumed += len(m[0])
	}
	// trailing text without terminal punctuation
	if rest := strings.TrimSpace(para[consumed:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// splitWords breaks an oversized sentence at word boundaries.
func (c *Chunker) splitWords(sentence string) []string {
	words := strings.Fields(sentence)
	var pieces []string
	var piece strings.Builder
	for _, w := range words {
		if piece.Len() > 0 && piece.Len()+1+len(w) > c.chunkSize {
			pieces = append(pieces, piece.String())
			piece.Reset()
		}
		if piece.Len() > 0 {
			piece.WriteString(" ")
		}
		piece.WriteString(w)
	}
	if piece.Len() > 0 {
		pieces = append(pieces, piece.String())
	}
	return pieces
}

// overlapTail takes the trailing overlap window of the previous chunk,
// advanced to the next word boundary so the carried text starts cleanly.
func (c *Chunker) overlapTail(prev string) string {
	if len(prev) <= c.overlap {
		return prev
	}
	tail := prev[len(prev)-c.overlap:]
	if prev[len(prev)-c.overlap-1] == ' ' {
		return strings.TrimSpace(tail)
	}
	idx := strings.IndexByte(tail, ' ')
	if idx < 0 {
		// the final word overruns the window; a partial carry would start
		// the next chunk mid-word
		return ""
	}
	return strings.TrimSpace(tail[idx+1:])
}
