package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/observability"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/span"
)

// ObservabilityMiddleware records one tracing span and one metrics sample
// per request, and logs completion with the execution id when present.
func ObservabilityMiddleware(obs *observability.Observability) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx := c.Request.Context()
		if executionID := c.GetHeader(span.HeaderExecutionID); executionID != "" {
			ctx = observability.ContextWithExecutionID(ctx, executionID)
		}

		ctx, traceSpan := obs.Tracer.StartSpan(ctx, "http "+c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
		)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		duration := time.Since(started)

		traceSpan.SetAttributes(
			observability.AttrExecutionID.String(observability.ExecutionIDFromContext(ctx)),
		)
		traceSpan.End()

		obs.Metrics.RecordHTTPRequest(ctx, c.Request.Method, route, status, duration)
		obs.Logger.WithContext(ctx).Info("request completed",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", duration.Milliseconds(),
		)
	}
}
