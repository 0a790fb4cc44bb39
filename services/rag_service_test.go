package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"elearning-chat-platform/internal/ai"
	"elearning-chat-platform/internal/vectorstore"
)

// fakeEmbedder maps each distinct text to a deterministic unit vector so
// that identical texts are maximally similar and distinct texts are not.
type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) embed(text string) []float32 {
	var h uint32 = 2166136261
	for i := 0; i < len(text); i++ {
		h ^= uint32(text[i])
		h *= 16777619
	}
	v := []float32{
		float32(h%97) + 1,
		float32(h%53) + 1,
		float32(h%29) + 1,
		float32(h%11) + 1,
	}
	var norm float32
	for _, x := range v {
		norm += x * x
	}
	inv := 1 / sqrt32(norm)
	for i := range v {
		v[i] *= inv
	}
	return v
}

func sqrt32(x float32) float32 {
	g := x
	for i := 0; i < 20; i++ {
		g = (g + x/g) / 2
	}
	return g
}

func (f *fakeEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.embed(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.embed(t)
	}
	return out, nil
}

// fakeIndex is an in-memory DocumentIndex with cosine ranking.
type fakeIndex struct {
	chunks    []vectorstore.Chunk
	insertErr error
	deletes   []vectorstore.Filter
}

func matches(c vectorstore.Chunk, f vectorstore.Filter) bool {
	if id, ok := f.CourseID(); ok && c.CourseID != id {
		return false
	}
	if id, ok := f.FileID(); ok && c.FileID != id {
		return false
	}
	return true
}

func (f *fakeIndex) Insert(_ context.Context, chunks []vectorstore.Chunk) error {
	if f.insertErr != nil {
		// simulate a partial write before the failure
		if len(chunks) > 1 {
			f.chunks = append(f.chunks, chunks[0])
		}
		return f.insertErr
	}
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, embedding []float32, k int, filter vectorstore.Filter) ([]vectorstore.SearchResult, error) {
	var results []vectorstore.SearchResult
	for _, c := range f.chunks {
		if !matches(c, filter) {
			continue
		}
		var dot float32
		for i := range embedding {
			dot += embedding[i] * c.Embedding[i]
		}
		results = append(results, vectorstore.SearchResult{
			ChunkID:    c.ID,
			Text:       c.Text,
			Similarity: dot,
			CourseID:   c.CourseID,
			FileID:     c.FileID,
			Filename:   c.Filename,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (f *fakeIndex) DeleteByFilter(_ context.Context, filter vectorstore.Filter) (int64, error) {
	f.deletes = append(f.deletes, filter)
	var kept []vectorstore.Chunk
	var removed int64
	for _, c := range f.chunks {
		if matches(c, filter) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	f.chunks = kept
	return removed, nil
}

func (f *fakeIndex) Count(_ context.Context, filter vectorstore.Filter) (int64, error) {
	var n int64
	for _, c := range f.chunks {
		if matches(c, filter) {
			n++
		}
	}
	return n, nil
}

// fakeGenerator echoes the prompt back so tests can assert on grounding.
type fakeGenerator struct {
	err        error
	lastPrompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.lastPrompt = prompt
	return "answer based on: " + prompt, nil
}

type fakeStream struct {
	fragments []string
	pos       int
}

func (s *fakeStream) Recv() (string, bool) {
	if s.pos >= len(s.fragments) {
		return "", false
	}
	frag := s.fragments[s.pos]
	s.pos++
	return frag, true
}

func (s *fakeStream) Err() error { return nil }
func (s *fakeStream) Close()     {}

func (f *fakeGenerator) GenerateStream(ctx context.Context, prompt string) (AnswerStream, error) {
	full, err := f.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	// split into small fragments to exercise reassembly
	var fragments []string
	for len(full) > 0 {
		n := 7
		if n > len(full) {
			n = len(full)
		}
		fragments = append(fragments, full[:n])
		full = full[n:]
	}
	return &fakeStream{fragments: fragments}, nil
}

func newTestService(idx *fakeIndex, emb *fakeEmbedder, gen *fakeGenerator) *RAGService {
	return NewRAGService(emb, gen, idx, NewChunker(500, 50), 5)
}

func TestIndexAndQueryRoundTrip(t *testing.T) {
	idx := &fakeIndex{}
	gen := &fakeGenerator{}
	svc := newTestService(idx, &fakeEmbedder{}, gen)

	text := "Photosynthesis converts light into chemical energy. Respiration releases that energy for cellular work."
	stored, err := svc.IndexDocument(context.Background(), text, 1, 10, "bio.txt")
	if err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if stored == 0 {
		t.Fatal("expected at least one chunk stored")
	}

	answer, retrieved, err := svc.Query(context.Background(), 1, "What does photosynthesis do?", 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if retrieved == 0 {
		t.Error("expected retrieved chunks")
	}
	if answer == "" {
		t.Error("expected a non-empty answer")
	}
	if !strings.Contains(gen.lastPrompt, "Photosynthesis converts light") {
		t.Error("prompt does not contain the indexed material")
	}
	if !strings.Contains(gen.lastPrompt, "What does photosynthesis do?") {
		t.Error("prompt does not contain the question")
	}
}

func TestCourseIsolation(t *testing.T) {
	idx := &fakeIndex{}
	gen := &fakeGenerator{}
	svc := newTestService(idx, &fakeEmbedder{}, gen)

	ctx := context.Background()
	if _, err := svc.IndexDocument(ctx, "Course one covers calculus and derivatives.", 1, 10, "a.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.IndexDocument(ctx, "Course two covers organic chemistry and reactions.", 2, 20, "b.txt"); err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.Query(ctx, 1, "What is covered?", 0); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if strings.Contains(gen.lastPrompt, "organic chemistry") {
		t.Error("retrieval leaked material from another course into the prompt")
	}
	if !strings.Contains(gen.lastPrompt, "calculus") {
		t.Error("retrieval missed the course's own material")
	}
}

func TestDeleteCourseIdempotent(t *testing.T) {
	idx := &fakeIndex{}
	svc := newTestService(idx, &fakeEmbedder{}, &fakeGenerator{})
	ctx := context.Background()

	if _, err := svc.IndexDocument(ctx, "Some material worth deleting.", 3, 30, "c.txt"); err != nil {
		t.Fatal(err)
	}

	removed, err := svc.DeleteCourseDocuments(ctx, 3)
	if err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if removed == 0 {
		t.Error("expected chunks removed on first delete")
	}

	count, err := svc.CourseChunkCount(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("%d chunks still counted after course delete", count)
	}

	removed, err = svc.DeleteCourseDocuments(ctx, 3)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if removed != 0 {
		t.Errorf("second delete removed %d chunks, want 0", removed)
	}
}

func TestDeleteFileLeavesSiblings(t *testing.T) {
	idx := &fakeIndex{}
	gen := &fakeGenerator{}
	svc := newTestService(idx, &fakeEmbedder{}, gen)
	ctx := context.Background()

	if _, err := svc.IndexDocument(ctx, "Keep this lecture material.", 4, 40, "keep.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.IndexDocument(ctx, "Drop this outdated handout.", 4, 41, "drop.txt"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.DeleteFileDocuments(ctx, 41); err != nil {
		t.Fatalf("DeleteFileDocuments: %v", err)
	}

	count, err := svc.CourseChunkCount(ctx, 4)
	if err != nil {
		t.Fatal(err)
	}
	if count == 0 {
		t.Error("delete removed the sibling file's chunks")
	}

	if _, _, err := svc.Query(ctx, 4, "What material remains?", 0); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(gen.lastPrompt, "outdated handout") {
		t.Error("deleted file's chunks still retrievable")
	}
}

func TestReindexReplacesPreviousChunks(t *testing.T) {
	idx := &fakeIndex{}
	gen := &fakeGenerator{}
	svc := newTestService(idx, &fakeEmbedder{}, gen)
	ctx := context.Background()

	text := "The French Revolution began in 1789 with the storming of the Bastille."
	if _, err := svc.IndexDocument(ctx, text, 1, 10, "hist.txt"); err != nil {
		t.Fatalf("first indexing: %v", err)
	}

	// a worker retry runs the whole pipeline again for the same file
	stored, err := svc.IndexDocument(ctx, text, 1, 10, "hist.txt")
	if err != nil {
		t.Fatalf("second indexing: %v", err)
	}

	count, err := idx.Count(ctx, vectorstore.ByFile(10))
	if err != nil {
		t.Fatal(err)
	}
	if count != int64(stored) {
		t.Errorf("file has %d chunks after a rerun, want %d", count, stored)
	}

	if _, _, err := svc.Query(ctx, 1, "When did the French Revolution begin?", 5); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if n := strings.Count(gen.lastPrompt, "1789"); n != 1 {
		t.Errorf("indexed text appears %d times in the prompt, want once", n)
	}
}

func TestIndexRollbackOnStorageFailure(t *testing.T) {
	idx := &fakeIndex{insertErr: errors.New("disk full")}
	svc := newTestService(idx, &fakeEmbedder{}, &fakeGenerator{})

	var text strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&text, "Paragraph %d of a document long enough to produce several chunks.\n\n", i)
	}

	stored, err := svc.IndexDocument(context.Background(), text.String(), 5, 50, "big.txt")
	if err == nil {
		t.Fatal("expected an error from the failing index")
	}
	if stored != 0 {
		t.Errorf("reported %d chunks stored on failure, want 0", stored)
	}

	// rollback must have targeted the file
	found := false
	for _, f := range idx.deletes {
		if id, ok := f.FileID(); ok && id == 50 {
			found = true
		}
	}
	if !found {
		t.Error("no rollback delete issued for the failed file")
	}
	n, _ := idx.Count(context.Background(), vectorstore.ByFile(50))
	if n != 0 {
		t.Errorf("%d partial chunks left behind after rollback", n)
	}
}

func TestStreamingMatchesBatchAnswer(t *testing.T) {
	idx := &fakeIndex{}
	gen := &fakeGenerator{}
	svc := newTestService(idx, &fakeEmbedder{}, gen)
	ctx := context.Background()

	if _, err := svc.IndexDocument(ctx, "The mitochondria is the powerhouse of the cell.", 6, 60, "m.txt"); err != nil {
		t.Fatal(err)
	}

	batch, _, err := svc.Query(ctx, 6, "What is the mitochondria?", 0)
	if err != nil {
		t.Fatal(err)
	}

	stream, retrieved, err := svc.QueryStream(ctx, 6, "What is the mitochondria?", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()
	if retrieved == 0 {
		t.Error("streaming query retrieved no chunks")
	}

	var assembled strings.Builder
	for {
		frag, ok := stream.Recv()
		if !ok {
			break
		}
		assembled.WriteString(frag)
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if assembled.String() != batch {
		t.Errorf("streamed answer differs from batch answer:\nstream: %q\nbatch:  %q", assembled.String(), batch)
	}
}

func TestZeroRetrievalStillAsksModel(t *testing.T) {
	idx := &fakeIndex{}
	gen := &fakeGenerator{}
	svc := newTestService(idx, &fakeEmbedder{}, gen)

	answer, retrieved, err := svc.Query(context.Background(), 99, "Anything here?", 0)
	if err != nil {
		t.Fatalf("Query on empty course: %v", err)
	}
	if retrieved != 0 {
		t.Errorf("retrieved %d chunks from an empty course", retrieved)
	}
	if answer == "" {
		t.Error("expected the model to produce a response even with no context")
	}
	if !strings.Contains(gen.lastPrompt, "Anything here?") {
		t.Error("question missing from the prompt")
	}
}

func TestEmbeddingFailureSurfacesAsError(t *testing.T) {
	idx := &fakeIndex{}
	emb := &fakeEmbedder{err: fmt.Errorf("%w: timeout", ai.ErrEmbeddingUnavailable)}
	svc := newTestService(idx, emb, &fakeGenerator{})

	_, _, err := svc.Query(context.Background(), 1, "question", 0)
	if err == nil {
		t.Fatal("expected an error when embedding is unavailable")
	}
	if !errors.Is(err, ai.ErrEmbeddingUnavailable) {
		t.Errorf("error %v does not unwrap to ErrEmbeddingUnavailable", err)
	}
}

func TestGenerationFailureSurfacesAsError(t *testing.T) {
	idx := &fakeIndex{}
	gen := &fakeGenerator{err: fmt.Errorf("%w: circuit open", ai.ErrGenerationUnavailable)}
	svc := newTestService(idx, &fakeEmbedder{}, gen)
	ctx := context.Background()

	if _, err := svc.IndexDocument(ctx, "Material exists.", 7, 70, "d.txt"); err != nil {
		t.Fatal(err)
	}

	_, _, err := svc.Query(ctx, 7, "question", 0)
	if !errors.Is(err, ai.ErrGenerationUnavailable) {
		t.Errorf("error %v does not unwrap to ErrGenerationUnavailable", err)
	}
}

func TestMultiChunkDocumentRetrievesFact(t *testing.T) {
	idx := &fakeIndex{}
	gen := &fakeGenerator{}
	svc := newTestService(idx, &fakeEmbedder{}, gen)
	ctx := context.Background()

	filler := strings.Repeat("Supporting detail sentence to pad the paragraph out. ", 8)
	doc := "Paragraph one introduces the overall topic. " + filler + "\n\n" +
		"The battle of Hastings took place in 1066. " + filler + "\n\n" +
		"Paragraph three wraps the topic up. " + filler

	stored, err := svc.IndexDocument(ctx, doc, 1, 10, "history.txt")
	if err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if stored < 2 {
		t.Fatalf("document longer than two chunk sizes produced %d chunks", stored)
	}

	_, retrieved, err := svc.Query(ctx, 1, "When was the battle of Hastings?", 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if retrieved < 1 || retrieved > 3 {
		t.Errorf("retrieved %d chunks, want between 1 and 3", retrieved)
	}
	if !strings.Contains(gen.lastPrompt, "1066") {
		t.Error("prompt is missing the fact from the middle paragraph")
	}
}

func TestQueryHonorsTopK(t *testing.T) {
	idx := &fakeIndex{}
	gen := &fakeGenerator{}
	svc := newTestService(idx, &fakeEmbedder{}, gen)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		text := fmt.Sprintf("Unique lecture note number %d about a separate topic.", i)
		if _, err := svc.IndexDocument(ctx, text, 8, int64(80+i), "n.txt"); err != nil {
			t.Fatal(err)
		}
	}

	_, retrieved, err := svc.Query(ctx, 8, "topic?", 2)
	if err != nil {
		t.Fatal(err)
	}
	if retrieved != 2 {
		t.Errorf("retrieved %d chunks, want exactly top_k=2", retrieved)
	}
}
