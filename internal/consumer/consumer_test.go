package consumer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/f5devcentral/telemetry-streaming-agent/internal/transport"
	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

func TestDebugFileConsumerWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	c := NewDebugFileConsumer(DebugFileConfig{FileConfig: transport.FileConfig{Writer: &buf}}, nil)

	err := c.Send(context.Background(), Event{Record: models.Record{
		SourceID: "listener-1",
		Data:     map[string]any{"pool_name": "my_pool"},
	}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "my_pool") {
		t.Fatalf("expected output to contain record data, got %q", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Fatalf("expected trailing newline")
	}
}

func TestRegistrySwapClosesDisplacedHandles(t *testing.T) {
	r := NewRegistry()
	closed := &closeTrackingHandle{}
	r.Put(&Entry{ID: "c1", Handle: closed})

	r.Swap(map[string]*Entry{})

	if !closed.closed {
		t.Fatalf("expected displaced handle to be closed on Swap")
	}
}

func TestRegistryGetSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Put(&Entry{ID: "c1", Handle: &closeTrackingHandle{}})
	r.Put(&Entry{ID: "c2", Handle: &closeTrackingHandle{}})

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap))
	}
	if _, ok := r.Get("c1"); !ok {
		t.Fatalf("expected c1 to be registered")
	}
}

func TestPrometheusConsumerCollectRendersGauge(t *testing.T) {
	c := NewPrometheusConsumer([]string{"namespace"})
	err := c.Send(context.Background(), Event{Record: models.Record{
		Namespace: "f5telemetry_default",
		Tags:      map[string]string{"namespace": "f5telemetry_default"},
		Data:      map[string]any{"cpu": float64(42)},
	}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	body, contentType, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if contentType == "" {
		t.Fatalf("expected a non-empty content type")
	}
	if !strings.Contains(string(body), "telemetry_cpu") {
		t.Fatalf("expected rendered metric name, got %q", string(body))
	}
}

type closeTrackingHandle struct {
	closed bool
}

func (h *closeTrackingHandle) Send(context.Context, Event) error { return nil }
func (h *closeTrackingHandle) Close() error                      { h.closed = true; return nil }
