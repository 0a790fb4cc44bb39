package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"elearning-chat-platform/internal/ai"
	"elearning-chat-platform/internal/logger"
	"elearning-chat-platform/internal/vectorstore"
)

// answerPromptTemplate grounds the model strictly in retrieved course
// materials. Both substitution points are mandatory: the retrieved context
// block and the student's question.
const answerPromptTemplate = `You are a helpful AI teaching assistant for this course. You have access to the following course materials as context:
---------------------
%s
---------------------
Given strictly this context information and no prior knowledge, answer the student's question. If the answer is not contained in the Course Materials, politely state that you cannot find the answer in the materials.
Question: %s
Answer: `

// Embedder produces embedding vectors for text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// AnswerStream yields answer fragments in order. Recv returns ok=false when
// the stream ends; Err then reports failure versus normal completion.
type AnswerStream interface {
	Recv() (fragment string, ok bool)
	Err() error
	Close()
}

// Generator produces answers from a fully rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string) (AnswerStream, error)
}

// DocumentIndex is the vector index surface the RAG pipeline needs.
type DocumentIndex interface {
	Insert(ctx context.Context, chunks []vectorstore.Chunk) error
	Search(ctx context.Context, embedding []float32, k int, f vectorstore.Filter) ([]vectorstore.SearchResult, error)
	DeleteByFilter(ctx context.Context, f vectorstore.Filter) (int64, error)
	Count(ctx context.Context, f vectorstore.Filter) (int64, error)
}

// geminiBackend adapts the Gemini client to the Generator interface; the
// embedding methods already line up and promote through the embedded field.
type geminiBackend struct {
	*ai.GeminiClient
}

func (g geminiBackend) GenerateStream(ctx context.Context, prompt string) (AnswerStream, error) {
	stream, err := g.GeminiClient.GenerateStream(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// NewGeminiBackend exposes one Gemini client as both Embedder and Generator.
func NewGeminiBackend(client *ai.GeminiClient) (Embedder, Generator) {
	b := geminiBackend{client}
	return b, b
}

// RAGService runs the retrieval-augmented answering pipeline: chunking and
// indexing on the write path, embed-retrieve-generate on the read path.
type RAGService struct {
	embedder  Embedder
	generator Generator
	index     DocumentIndex
	chunker   *Chunker
	topK      int
}

func NewRAGService(embedder Embedder, generator Generator, index DocumentIndex, chunker *Chunker, topK int) *RAGService {
	return &RAGService{
		embedder:  embedder,
		generator: generator,
		index:     index,
		chunker:   chunker,
		topK:      topK,
	}
}

// IndexDocument chunks, embeds and stores one document's text. It returns
// the number of chunks stored. Any chunks from an earlier indexing of the
// same file are removed first, so a rerun replaces the file's chunks rather
// than adding a second generation. On a storage failure any partially
// inserted chunks for the file are removed, so the document is either fully
// indexed or absent.
func (r *RAGService) IndexDocument(ctx context.Context, text string, courseID, fileID int64, filename string) (int, error) {
	if _, err := r.index.DeleteByFilter(ctx, vectorstore.ByFile(fileID)); err != nil {
		return 0, err
	}

	pieces := r.chunker.Split(text)
	if len(pieces) == 0 {
		return 0, nil
	}

	vectors, err := r.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return 0, err
	}

	chunks := make([]vectorstore.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = vectorstore.Chunk{
			ID:        uuid.New().String(),
			Text:      piece,
			Embedding: vectors[i],
			CourseID:  courseID,
			FileID:    fileID,
			Filename:  filename,
		}
	}

	if err := r.index.Insert(ctx, chunks); err != nil {
		if _, rbErr := r.index.DeleteByFilter(ctx, vectorstore.ByFile(fileID)); rbErr != nil {
			logger.Error("Failed to roll back partial index insert", "file_id", fileID, "error", rbErr)
		}
		return 0, err
	}

	logger.Info("Document indexed", "course_id", courseID, "file_id", fileID, "chunks", len(chunks))
	return len(chunks), nil
}

// Query answers a question against one course's materials. retrieved is the
// number of chunks given to the model as context; zero retrieval still asks
// the model, which then states the answer is not in the materials.
func (r *RAGService) Query(ctx context.Context, courseID int64, question string, topK int) (answer string, retrieved int, err error) {
	prompt, retrieved, err := r.buildPrompt(ctx, courseID, question, topK)
	if err != nil {
		return "", 0, err
	}

	answer, err = r.generator.Generate(ctx, prompt)
	if err != nil {
		return "", retrieved, err
	}
	return answer, retrieved, nil
}

// QueryStream is Query with a streamed answer. The caller owns the stream
// and must Close it.
func (r *RAGService) QueryStream(ctx context.Context, courseID int64, question string, topK int) (AnswerStream, int, error) {
	prompt, retrieved, err := r.buildPrompt(ctx, courseID, question, topK)
	if err != nil {
		return nil, 0, err
	}

	stream, err := r.generator.GenerateStream(ctx, prompt)
	if err != nil {
		return nil, retrieved, err
	}
	return stream, retrieved, nil
}

func (r *RAGService) buildPrompt(ctx context.Context, courseID int64, question string, topK int) (string, int, error) {
	if topK <= 0 {
		topK = r.topK
	}

	queryVec, err := r.embedder.EmbedText(ctx, question)
	if err != nil {
		return "", 0, err
	}

	results, err := r.index.Search(ctx, queryVec, topK, vectorstore.ByCourse(courseID))
	if err != nil {
		return "", 0, err
	}

	contextBlocks := make([]string, len(results))
	for i, res := range results {
		contextBlocks[i] = res.Text
	}

	prompt := fmt.Sprintf(answerPromptTemplate, strings.Join(contextBlocks, "\n\n"), question)
	return prompt, len(results), nil
}

// DeleteCourseDocuments removes every indexed chunk for a course and
// reports how many were removed. Idempotent: a second call returns 0.
func (r *RAGService) DeleteCourseDocuments(ctx context.Context, courseID int64) (int64, error) {
	return r.index.DeleteByFilter(ctx, vectorstore.ByCourse(courseID))
}

// DeleteFileDocuments removes every indexed chunk for a single file.
func (r *RAGService) DeleteFileDocuments(ctx context.Context, fileID int64) (int64, error) {
	return r.index.DeleteByFilter(ctx, vectorstore.ByFile(fileID))
}

// CourseChunkCount reports how many chunks a course currently has indexed.
func (r *RAGService) CourseChunkCount(ctx context.Context, courseID int64) (int64, error) {
	return r.index.Count(ctx, vectorstore.ByCourse(courseID))
}
