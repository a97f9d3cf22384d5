package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records per-dispatch latency and failure counts via OpenTelemetry,
// grounded on ariadne's side-by-side use of prometheus/client_golang and
// go.opentelemetry.io/otel/metric for the same measurement. Off by default;
// construct with NewMetrics and pass its OnDispatch to Config to enable.
type Metrics struct {
	latency metric.Float64Histogram
	failed  metric.Int64Counter
}

// NewMetrics registers the pipeline's instruments against meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	latency, err := meter.Float64Histogram(
		"telemetry_agent.pipeline.dispatch.duration",
		metric.WithDescription("consumer dispatch latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter(
		"telemetry_agent.pipeline.dispatch.failures",
		metric.WithDescription("consumer dispatch failures"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{latency: latency, failed: failed}, nil
}

// OnDispatch is a Config.OnDispatch implementation that records the
// dispatch's outcome against this Metrics instance.
func (m *Metrics) OnDispatch(consumerID string, err error, elapsed time.Duration) {
	attrs := attribute.NewSet(attribute.String("consumer_id", consumerID))
	m.latency.Record(context.Background(), elapsed.Seconds(), metric.WithAttributeSet(attrs))
	if err != nil {
		m.failed.Add(context.Background(), 1, metric.WithAttributeSet(attrs))
	}
}
