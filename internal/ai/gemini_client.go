package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"elearning-chat-platform/internal/config"
	"elearning-chat-platform/internal/logger"

	genai "github.com/google/generative-ai-go/genai"
)

// GeminiClient wraps the Google Generative AI SDK as both the embedding
// provider and the answer generator. The embedding and generation model
// identities are fixed at construction and never change for the process
// lifetime: mixing embedding models would silently corrupt retrieval.
type GeminiClient struct {
	client          *genai.Client
	breaker         *gobreaker.CircuitBreaker
	rateLimiter     *rate.Limiter
	embeddingModel  string
	generationModel string
	timeout         time.Duration
}

func NewGeminiClient(ctx context.Context, cfg *config.Config) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	// Stay under the free-tier 10 RPM with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(9.0/60.0), 3)

	return &GeminiClient{
		client:          client,
		breaker:         breaker,
		rateLimiter:     rateLimiter,
		embeddingModel:  cfg.EmbeddingModel,
		generationModel: cfg.GenerationModel,
		timeout:         cfg.ModelRequestTimeout,
	}, nil
}

// EmbedText returns the embedding vector for a single text.
func (gc *GeminiClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.embed_content")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", gc.embeddingModel))

	ctx, cancel := context.WithTimeout(ctx, gc.timeout)
	defer cancel()

	model := gc.client.EmbeddingModel(gc.embeddingModel)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", ErrEmbeddingUnavailable)
	}
	return resp.Embedding.Values, nil
}

// EmbedBatch embeds a batch of texts in one round-trip, preserving order.
func (gc *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.batch_embed_contents")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", gc.embeddingModel),
		attribute.Int("gemini.batch_size", len(texts)),
	)

	ctx, cancel := context.WithTimeout(ctx, gc.timeout)
	defer cancel()

	model := gc.client.EmbeddingModel(gc.embeddingModel)
	batch := model.NewBatch()
	for _, text := range texts {
		batch = batch.AddContent(genai.Text(text))
	}

	resp, err := model.BatchEmbedContents(ctx, batch)
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbeddingUnavailable, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at position %d", ErrEmbeddingUnavailable, i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// Generate produces a complete answer for the given prompt.
func (gc *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", gc.generationModel),
		attribute.Int("gemini.prompt_chars", len(prompt)),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, gc.timeout)
	defer cancel()

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.newGenerativeModel()
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		if errors.Is(err, gobreaker.ErrOpenState) {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
		}
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	text := responseText(result.(*genai.GenerateContentResponse))
	if text == "" {
		return "", fmt.Errorf("%w: model returned no text", ErrGenerationUnavailable)
	}
	span.SetAttributes(attribute.Int("gemini.response_chars", len(text)))
	return text, nil
}

// GenerateStream starts a streamed generation for the given prompt. The
// returned stream is finite and not restartable; closing it cancels the
// underlying call.
func (gc *GeminiClient) GenerateStream(ctx context.Context, prompt string) (*AnswerStream, error) {
	if err := gc.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, gc.timeout)

	model := gc.newGenerativeModel()
	iter := model.GenerateContentStream(ctx, genai.Text(prompt))

	return newAnswerStream(ctx, cancel, iter), nil
}

func (gc *GeminiClient) newGenerativeModel() *genai.GenerativeModel {
	model := gc.client.GenerativeModel(gc.generationModel)
	model.SetTemperature(0.1)
	model.SetMaxOutputTokens(2048)
	return model
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	text := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			text += string(textPart)
		}
	}
	return text
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
