package receiver

import (
	"log/slog"
	"sync"
	"time"
)

// maxFragmentBytes caps the per-sender partial-line buffer (§9 Open
// Question b: the spec leaves the cap unspecified and suggests 16 KiB with
// drop-and-warn; this implementation pins that choice).
const maxFragmentBytes = 16 * 1024

// RawFrame is one inbound datum emitted by a receiver (§4.2).
type RawFrame struct {
	Data      []byte
	SenderKey string
	Protocol  string
	Timestamp time.Time
	HRTime    int64 // wall-clock Unix nanoseconds at receipt, for ordering within a sender
}

// frameAssembler buffers partial lines per senderKey and emits complete
// '\n'-terminated lines. Safe for concurrent use across multiple readers
// (one per accepted TCP connection, or the single UDP reader).
type frameAssembler struct {
	mu      sync.Mutex
	buffers map[string][]byte
	logger  *slog.Logger
}

func newFrameAssembler(logger *slog.Logger) *frameAssembler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &frameAssembler{buffers: map[string][]byte{}, logger: logger}
}

// Feed appends chunk to senderKey's buffer and returns zero or more
// complete lines. A fragment that would exceed maxFragmentBytes is dropped
// with a warning and the buffer reset, so a single runaway sender cannot
// grow memory unbounded.
func (a *frameAssembler) Feed(senderKey string, chunk []byte) [][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf := append(a.buffers[senderKey], chunk...)
	var lines [][]byte

	for {
		idx := indexByte(buf, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, buf[:idx])
		buf = buf[idx+1:]
	}

	if len(buf) > maxFragmentBytes {
		a.logger.Warn("receiver: fragment buffer overflow, dropping partial line",
			"senderKey", senderKey, "bytes", len(buf))
		buf = nil
	}

	if len(buf) == 0 {
		delete(a.buffers, senderKey)
	} else {
		a.buffers[senderKey] = buf
	}
	return lines
}

// Discard drops any buffered remainder for senderKey without emitting it
// (§4.2: "at close the buffered remainder is discarded").
func (a *frameAssembler) Discard(senderKey string) {
	a.mu.Lock()
	delete(a.buffers, senderKey)
	a.mu.Unlock()
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}
