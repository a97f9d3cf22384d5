package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/f5devcentral/telemetry-streaming-agent/internal/transport"
)

// DebugFileConfig controls a DebugFileConsumer.
type DebugFileConfig struct {
	transport.FileConfig
}

// DebugFileConsumer is a Handle that marshals each dispatched record to
// JSON and sends it through an internal/transport.Transport, the default
// development-oriented consumer used by tests and the default declaration.
type DebugFileConsumer struct {
	t Transport
}

// Transport is the subset of transport.Transport a consumer needs.
type Transport = transport.Transport

// NewDebugFileConsumer constructs a DebugFileConsumer backed by a file
// transport.
func NewDebugFileConsumer(cfg DebugFileConfig, logger *slog.Logger) *DebugFileConsumer {
	return &DebugFileConsumer{t: transport.NewFileTransport(cfg.FileConfig, logger)}
}

// Send implements Handle.
func (c *DebugFileConsumer) Send(_ context.Context, ev Event) error {
	b, err := json.Marshal(map[string]any{
		"timestamp":              ev.Record.Timestamp,
		"telemetryEventCategory": ev.Record.TelemetryEventCategory,
		"sourceId":               ev.Record.SourceID,
		"data":                   ev.Record.Data,
		"tags":                   ev.Record.Tags,
	})
	if err != nil {
		return fmt.Errorf("consumer/debugfile: marshal: %w", err)
	}
	return c.t.Send(b)
}

// Close implements Handle.
func (c *DebugFileConsumer) Close() error { return c.t.Close() }
