// Package transport provides the uniform "send a pre-formatted payload,
// then close" contract shared by every consumer handle that ultimately
// writes bytes somewhere, plus the debug file-backed implementation of it.
//
// Adapted nearly verbatim from transport/file/writer.go: same Transport
// interface (Send/Close), same mutex-guarded io.Writer shape.
package transport

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Transport is the contract every output destination satisfies: Send
// delivers one pre-formatted payload, Close flushes and releases resources.
type Transport interface {
	Send(data []byte) error
	Close() error
}

// FileConfig controls a FileTransport.
type FileConfig struct {
	// Writer is the destination. nil defaults to os.Stdout.
	Writer io.Writer
	// Newline appended after each message. Default "\n".
	Newline string
}

// FileTransport implements Transport by writing each payload to an
// io.Writer followed by a configurable newline. Safe for concurrent use.
type FileTransport struct {
	mu     sync.Mutex
	w      io.Writer
	nl     []byte
	logger *slog.Logger
}

// NewFileTransport constructs a FileTransport.
func NewFileTransport(cfg FileConfig, logger *slog.Logger) *FileTransport {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	nl := cfg.Newline
	if nl == "" {
		nl = "\n"
	}
	return &FileTransport{w: w, nl: []byte(nl), logger: logger}
}

// Send implements Transport.
func (t *FileTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.w.Write(data); err != nil {
		t.logger.Error("transport/file: write failed", "error", err.Error(), "bytes", len(data))
		return fmt.Errorf("transport/file: write: %w", err)
	}
	if _, err := t.w.Write(t.nl); err != nil {
		t.logger.Error("transport/file: newline write failed", "error", err.Error())
		return fmt.Errorf("transport/file: write newline: %w", err)
	}
	return nil
}

// Close implements Transport. FileTransport owns no resources beyond its
// writer, which callers are responsible for closing when it is a real file.
func (t *FileTransport) Close() error { return nil }

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
