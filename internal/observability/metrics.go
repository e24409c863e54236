package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsCollector records service metrics and serves the scrape endpoint.
type MetricsCollector struct {
	registry *promclient.Registry
	provider *sdkmetric.MeterProvider
	server   *http.Server

	httpRequests    metric.Int64Counter
	httpDuration    metric.Float64Histogram
	agentExecutions metric.Int64Counter
	agentDuration   metric.Float64Histogram
	decisionEvents  metric.Int64Counter
	persistFailures metric.Int64Counter
	streamClients   metric.Int64UpDownCounter
}

// NewMetricsCollector creates the metrics collector. The scrape server is
// not started until Start is called.
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	registry := promclient.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("governance-core")

	mc := &MetricsCollector{
		registry: registry,
		provider: provider,
	}

	if mc.httpRequests, err = meter.Int64Counter(
		"governance_http_requests_total",
		metric.WithDescription("HTTP requests by route and status"),
	); err != nil {
		return nil, err
	}
	if mc.httpDuration, err = meter.Float64Histogram(
		"governance_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if mc.agentExecutions, err = meter.Int64Counter(
		"governance_agent_executions_total",
		metric.WithDescription("Agent executions by agent and status"),
	); err != nil {
		return nil, err
	}
	if mc.agentDuration, err = meter.Float64Histogram(
		"governance_agent_execution_duration_seconds",
		metric.WithDescription("Agent execution latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if mc.decisionEvents, err = meter.Int64Counter(
		"governance_decision_events_total",
		metric.WithDescription("Decision events emitted by type"),
	); err != nil {
		return nil, err
	}
	if mc.persistFailures, err = meter.Int64Counter(
		"governance_decision_persist_failures_total",
		metric.WithDescription("Decision persistence failures by class"),
	); err != nil {
		return nil, err
	}
	if mc.streamClients, err = meter.Int64UpDownCounter(
		"governance_stream_clients",
		metric.WithDescription("Connected decision stream clients"),
	); err != nil {
		return nil, err
	}

	if config.Enabled {
		path := config.Path
		if path == "" {
			path = "/metrics"
		}
		mux := http.NewServeMux()
		mux.Handle(path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		mc.server = &http.Server{
			Addr:              fmt.Sprintf(":%d", config.PrometheusPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return mc, nil
}

// Start serves the scrape endpoint. Blocks until the server exits.
func (mc *MetricsCollector) Start() error {
	if mc.server == nil {
		return nil
	}
	if err := mc.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// RecordHTTPRequest records a handled HTTP request.
func (mc *MetricsCollector) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	mc.httpRequests.Add(ctx, 1, attrs)
	mc.httpDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordAgentExecution records one agent invocation outcome.
func (mc *MetricsCollector) RecordAgentExecution(ctx context.Context, agent, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("status", status),
	)
	mc.agentExecutions.Add(ctx, 1, attrs)
	mc.agentDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordDecisionEvent records an emitted decision event.
func (mc *MetricsCollector) RecordDecisionEvent(ctx context.Context, decisionType string) {
	mc.decisionEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("decision_type", decisionType),
	))
}

// RecordPersistFailure records a persistence failure by error class.
func (mc *MetricsCollector) RecordPersistFailure(ctx context.Context, class string) {
	mc.persistFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("class", class),
	))
}

// StreamClientConnected adjusts the connected stream client gauge.
func (mc *MetricsCollector) StreamClientConnected(ctx context.Context, delta int64) {
	mc.streamClients.Add(ctx, delta)
}

// Shutdown stops the scrape server and flushes the meter provider.
func (mc *MetricsCollector) Shutdown(ctx context.Context) error {
	var firstErr error
	if mc.server != nil {
		if err := mc.server.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if err := mc.provider.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
