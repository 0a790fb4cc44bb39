package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"elearning-chat-platform/internal/telemetry"
)

// TracingMiddleware provides OpenTelemetry tracing for Gin
func TracingMiddleware() gin.HandlerFunc {
	return otelgin.Middleware("elearning-chat-platform")
}

// EnrichTrace adds user and request attributes to the active span.
func EnrichTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())

		if userID := GetUserID(c); userID != "" {
			span.SetAttributes(
				attribute.String("user.id", userID),
				attribute.String("user.role", GetRole(c)),
			)
		}
		span.SetAttributes(
			attribute.String("http.client_ip", c.ClientIP()),
			attribute.String("request.id", GetRequestID(c)),
		)

		c.Next()

		span.SetAttributes(
			attribute.Int("http.response.status_code", c.Writer.Status()),
		)
	}
}

// MetricsMiddleware records request count and latency.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		if telemetry.RequestCounter == nil {
			return
		}

		status := "success"
		if c.Writer.Status() >= 400 {
			status = "error"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("route", c.FullPath()),
			attribute.String("status", status),
		)
		ctx := c.Request.Context()
		telemetry.RequestCounter.Add(ctx, 1, attrs)
		telemetry.RequestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
