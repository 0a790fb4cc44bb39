package services

import (
	"fmt"
	"strings"
	"testing"
)

func TestChunkerEmptyInput(t *testing.T) {
	c := NewChunker(500, 50)

	for _, input := range []string{"", "   ", "\n\n\t  \n"} {
		if chunks := c.Split(input); chunks != nil {
			t.Errorf("Split(%q) = %v, want no chunks", input, chunks)
		}
	}
}

func TestChunkerShortTextSingleChunk(t *testing.T) {
	c := NewChunker(500, 50)

	text := "Photosynthesis converts light energy into chemical energy."
	chunks := c.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("chunk altered the text: %q", chunks[0])
	}
}

func TestChunkerSizeBound(t *testing.T) {
	chunkSize, overlap := 500, 50
	c := NewChunker(chunkSize, overlap)

	var sb strings.Builder
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&sb, "Sentence number %d explains one more detail of the topic at hand. ", i)
		if i%7 == 0 {
			sb.WriteString("\n\n")
		}
	}

	chunks := c.Split(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	limit := chunkSize + overlap + 1
	for i, chunk := range chunks {
		if len(chunk) > limit {
			t.Errorf("chunk %d has %d chars, exceeds limit %d", i, len(chunk), limit)
		}
		if chunk != strings.TrimSpace(chunk) {
			t.Errorf("chunk %d has surrounding whitespace", i)
		}
	}
}

func TestChunkerOverlapCarriesContext(t *testing.T) {
	c := NewChunker(200, 40)

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "Topic item %d covers a distinct concept students must learn. ", i)
	}

	chunks := c.Split(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		firstWord := strings.Fields(chunks[i])[0]
		prevTail := chunks[i-1]
		if len(prevTail) > 40 {
			prevTail = prevTail[len(prevTail)-40:]
		}
		if !strings.Contains(prevTail, firstWord) {
			t.Errorf("chunk %d does not start with text carried from chunk %d: first word %q, previous tail %q",
				i, i-1, firstWord, prevTail)
		}
	}
}

func TestChunkerNeverSplitsWords(t *testing.T) {
	c := NewChunker(100, 20)

	words := map[string]bool{}
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		w := fmt.Sprintf("vocabulary%03d", i)
		words[w] = true
		sb.WriteString(w)
		sb.WriteString(" ")
	}

	for _, chunk := range c.Split(sb.String()) {
		for _, w := range strings.Fields(chunk) {
			if !words[w] {
				t.Errorf("chunk contains fragment %q not present in the input", w)
			}
		}
	}
}

func TestChunkerOverlapSkipsOversizedFinalWord(t *testing.T) {
	c := NewChunker(60, 8)

	// every word is longer than the overlap window
	words := map[string]bool{}
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		w := fmt.Sprintf("terminology%02d", i)
		words[w] = true
		sb.WriteString(w)
		sb.WriteString(" ")
	}

	chunks := c.Split(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		for _, w := range strings.Fields(chunk) {
			if !words[w] {
				t.Errorf("chunk %d contains word fragment %q", i, w)
			}
		}
	}
}

func TestChunkerOversizedSentence(t *testing.T) {
	c := NewChunker(80, 0)

	// one long run with no sentence punctuation at all
	text := strings.Repeat("alpha beta gamma delta ", 30)
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected the run to be split, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 80 {
			t.Errorf("chunk %d has %d chars, exceeds chunk size 80", i, len(chunk))
		}
	}
}

func TestChunkerParagraphsPreferred(t *testing.T) {
	c := NewChunker(500, 0)

	para1 := "The first lecture introduces the syllabus and grading."
	para2 := "The second lecture begins the core material in earnest."
	chunks := c.Split(para1 + "\n\n" + para2)

	if len(chunks) != 1 {
		t.Fatalf("both paragraphs fit one chunk, got %d chunks", len(chunks))
	}
	if !strings.Contains(chunks[0], para1) || !strings.Contains(chunks[0], para2) {
		t.Errorf("chunk lost paragraph content: %q", chunks[0])
	}
}

func TestNewChunkerRejectsBadOverlap(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for overlap >= chunkSize")
		}
	}()
	NewChunker(100, 100)
}
