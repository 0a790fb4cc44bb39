package services

import (
	"errors"

	"elearning-chat-platform/internal/ai"
	"elearning-chat-platform/internal/vectorstore"
)

// AsExtractionError reports whether err stems from text extraction.
func AsExtractionError(err error, target **ExtractionError) bool {
	return errors.As(err, target)
}

// IsModelUnavailable reports whether err stems from the embedding or
// generation service being unreachable. These are retryable.
func IsModelUnavailable(err error) bool {
	return errors.Is(err, ai.ErrEmbeddingUnavailable) || errors.Is(err, ai.ErrGenerationUnavailable)
}

// IsIndexError reports whether err stems from the vector index.
func IsIndexError(err error) bool {
	return errors.Is(err, vectorstore.ErrIndexWrite) ||
		errors.Is(err, vectorstore.ErrIndexRead) ||
		errors.Is(err, vectorstore.ErrDimensionMismatch)
}
