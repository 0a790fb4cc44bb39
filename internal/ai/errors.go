package ai

import "errors"

// ErrEmbeddingUnavailable marks an embedding call that failed because the
// model service was unreachable, rate limited or timed out. Retryable with
// backoff at the caller's discretion; never substituted with a zero vector.
var ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

// ErrGenerationUnavailable is the generation-side counterpart. It must not be
// interpreted as "no answer": an empty retrieval result is a normal response,
// this is a transport failure.
var ErrGenerationUnavailable = errors.New("generation service unavailable")
