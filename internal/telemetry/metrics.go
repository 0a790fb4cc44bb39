package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"elearning-chat-platform/internal/logger"
)

var (
	RequestCounter  metric.Int64Counter
	RequestDuration metric.Float64Histogram
	ChunksIndexed   metric.Int64Counter
	QueriesServed   metric.Int64Counter
)

// InitMetrics registers the instruments used across the service.
func InitMetrics() {
	meter := otel.Meter("elearning-chat-platform")

	var err error
	RequestCounter, err = meter.Int64Counter("http.requests.total",
		metric.WithDescription("Total HTTP requests handled"))
	if err != nil {
		logger.Error("Failed to create request counter", "error", err)
	}

	RequestDuration, err = meter.Float64Histogram("http.request.duration",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		logger.Error("Failed to create request duration histogram", "error", err)
	}

	ChunksIndexed, err = meter.Int64Counter("rag.chunks.indexed",
		metric.WithDescription("Chunks written to the vector index"))
	if err != nil {
		logger.Error("Failed to create chunks indexed counter", "error", err)
	}

	QueriesServed, err = meter.Int64Counter("rag.queries.served",
		metric.WithDescription("Chat queries answered"))
	if err != nil {
		logger.Error("Failed to create queries counter", "error", err)
	}
}
