package ai

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"elearning-chat-platform/internal/config"
)

func liveClient(t *testing.T) *GeminiClient {
	t.Helper()
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set, skipping live API test")
	}
	cfg := &config.Config{
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		EmbeddingModel:      "text-embedding-004",
		GenerationModel:     "gemini-2.0-flash",
		ModelRequestTimeout: 60 * time.Second,
	}
	client, err := NewGeminiClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestEmbedTextLive(t *testing.T) {
	client := liveClient(t)

	vec, err := client.EmbedText(context.Background(), "The cell membrane regulates transport.")
	if err != nil {
		t.Fatalf("EmbedText: %v", err)
	}
	if len(vec) != 768 {
		t.Errorf("expected 768 dimensions, got %d", len(vec))
	}
}

func TestEmbedBatchLive(t *testing.T) {
	client := liveClient(t)

	texts := []string{"First chunk of notes.", "Second chunk of notes.", "Third chunk of notes."}
	vecs, err := client.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors for %d texts", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			t.Errorf("vector %d is empty", i)
		}
	}
}

func TestGenerateStreamLive(t *testing.T) {
	client := liveClient(t)

	stream, err := client.GenerateStream(context.Background(), "Reply with the single word: hello")
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		frag, ok := stream.Recv()
		if !ok {
			break
		}
		sb.WriteString(frag)
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if sb.Len() == 0 {
		t.Error("streamed response is empty")
	}
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	gc := &GeminiClient{}
	vecs, err := gc.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch(nil): %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil result for empty input, got %v", vecs)
	}
}
