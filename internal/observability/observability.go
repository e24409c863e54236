package observability

import (
	"context"
	"fmt"
)

// Observability bundles the logger, tracer, and metrics collector. It is
// constructed explicitly at startup and injected into every component that
// needs it; there is no package-level instance.
type Observability struct {
	Logger  *Logger
	Tracer  *TracerProvider
	Metrics *MetricsCollector
}

// New builds the observability stack from config.
func New(config Config) (*Observability, error) {
	logger := NewLogger(config.Logging)

	tracer, err := NewTracerProvider(config.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	metrics, err := NewMetricsCollector(config.Metrics)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &Observability{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
	}, nil
}

// NewForTest returns a minimal stack suitable for unit tests: text logging,
// noop tracing, metrics without a scrape server.
func NewForTest() *Observability {
	obs, err := New(Config{
		Logging: LoggingConfig{Level: "error", Format: "text"},
		Metrics: MetricsConfig{Enabled: false},
		Tracing: TracingConfig{Enabled: false},
	})
	if err != nil {
		panic(err)
	}
	return obs
}

// Shutdown flushes and stops all observability components.
func (o *Observability) Shutdown(ctx context.Context) error {
	var firstErr error
	if o.Tracer != nil {
		if err := o.Tracer.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if o.Metrics != nil {
		if err := o.Metrics.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
