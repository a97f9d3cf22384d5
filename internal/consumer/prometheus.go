package consumer

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/expfmt"
)

// PrometheusConsumer is a pull-mode consumer handle (§4.8, §6): records
// pushed to it update an in-memory gauge set keyed by metric name, and
// Collect renders the current values in Prometheus exposition format on
// demand, exercising the pull-consumer path end to end.
type PrometheusConsumer struct {
	mu       sync.Mutex
	registry *prometheus.Registry
	gauges   map[string]*prometheus.GaugeVec
	labels   []string
}

// NewPrometheusConsumer constructs a PrometheusConsumer. labelNames fixes
// the label set every gauge is registered with; a record whose tags don't
// cover a configured label reports an empty value for it.
func NewPrometheusConsumer(labelNames []string) *PrometheusConsumer {
	return &PrometheusConsumer{
		registry: prometheus.NewRegistry(),
		gauges:   map[string]*prometheus.GaugeVec{},
		labels:   labelNames,
	}
}

// Send implements Handle: every numeric field in ev.Record.Data is recorded
// as its own gauge, named after the field.
func (c *PrometheusConsumer) Send(_ context.Context, ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	labelValues := make([]string, len(c.labels))
	for i, name := range c.labels {
		labelValues[i] = ev.Record.Tags[name]
	}

	for key, v := range ev.Record.Data {
		f, ok := asFloat(v)
		if !ok {
			continue
		}
		gv, ok := c.gauges[key]
		if !ok {
			gv = prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: sanitizeMetricName(key),
				Help: fmt.Sprintf("telemetry field %q", key),
			}, c.labels)
			c.registry.MustRegister(gv)
			c.gauges[key] = gv
		}
		gv.WithLabelValues(labelValues...).Set(f)
	}
	return nil
}

// Collect implements PullHandle, rendering the current gauge set as
// Prometheus text exposition format.
func (c *PrometheusConsumer) Collect(_ context.Context) ([]byte, string, error) {
	c.mu.Lock()
	families, err := c.registry.Gather()
	c.mu.Unlock()
	if err != nil {
		return nil, "", fmt.Errorf("consumer/prometheus: gather: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, "", fmt.Errorf("consumer/prometheus: encode: %w", err)
		}
	}
	return buf.Bytes(), string(expfmt.FmtText), nil
}

// Close implements Handle. The consumer owns no external resources.
func (c *PrometheusConsumer) Close() error { return nil }

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func sanitizeMetricName(name string) string {
	out := make([]rune, 0, len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			out = append(out, r)
		case r >= '0' && r <= '9':
			if i == 0 {
				out = append(out, '_')
			}
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return "telemetry_" + string(out)
}
