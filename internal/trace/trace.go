// Package trace implements the bounded ring-buffer trace file writer (§6
// "Trace files"): each traced component's input/output is written to
// /var/tmp/telemetry/<Class>.<id> (or INPUT.<Class>.<id> for input traces),
// keeping only the last maxRecords entries.
//
// Grounded on transport/file/rotate.go's mutex-guarded single-file-handle
// shape, swapped from size-triggered rotation to a record-count ring: full
// rewrite of the file on every record rather than append-then-rename.
package trace

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

// defaultMaxRecords is the ring's default capacity (§6: "maxRecords: 10").
const defaultMaxRecords = 10

// Config controls a Writer.
type Config struct {
	// Path is the destination file, typically built by PathFor.
	Path string
	// MaxRecords bounds the ring. <= 0 defaults to 10.
	MaxRecords int
}

func (c Config) withDefaults() Config {
	if c.MaxRecords <= 0 {
		c.MaxRecords = defaultMaxRecords
	}
	return c
}

// Writer appends one record at a time to a bounded ring, rewriting the
// whole file so readers always see a valid JSON array of the most recent
// MaxRecords entries.
type Writer struct {
	mu      sync.Mutex
	cfg     Config
	records []json.RawMessage
	logger  *slog.Logger
}

// New constructs a Writer for cfg.Path, creating its parent directory.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	cfg = cfg.withDefaults()
	if cfg.Path == "" {
		return nil, fmt.Errorf("trace: Path is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("trace: mkdir: %w", err)
	}
	return &Writer{cfg: cfg, logger: logger}, nil
}

// Write appends v to the ring (masking secrets first, per models.MaskSecrets)
// and rewrites the trace file, dropping the oldest entry once MaxRecords is
// exceeded.
func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	masked := models.MaskSecrets(v)
	b, err := json.Marshal(masked)
	if err != nil {
		return fmt.Errorf("trace: marshal: %w", err)
	}

	w.records = append(w.records, json.RawMessage(b))
	if len(w.records) > w.cfg.MaxRecords {
		w.records = w.records[len(w.records)-w.cfg.MaxRecords:]
	}

	out, err := json.MarshalIndent(w.records, "", "  ")
	if err != nil {
		return fmt.Errorf("trace: marshal ring: %w", err)
	}
	if err := os.WriteFile(w.cfg.Path, out, 0o600); err != nil {
		w.logger.Error("trace: write failed", "path", w.cfg.Path, "error", err.Error())
		return fmt.Errorf("trace: write: %w", err)
	}
	return nil
}

// Close is a no-op; Writer holds no open file handle between writes,
// trading one extra rewrite per record for never leaking a descriptor
// across long-lived, rarely-traced components.
func (w *Writer) Close() error { return nil }

// PathFor builds the trace file path for a component (§6): plain
// "<Class>.<id>" for output traces, "INPUT.<Class>.<id>" for input traces.
func PathFor(root, class, id string, input bool) string {
	name := fmt.Sprintf("%s.%s", class, id)
	if input {
		name = "INPUT." + name
	}
	return filepath.Join(root, name)
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
