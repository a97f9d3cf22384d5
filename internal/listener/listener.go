// Package listener implements the Event Listener (C4): per-logical-listener
// framing, filtering, category inference, and tagging on top of the shared
// sockets owned by internal/receiver.
package listener

import (
	"context"
	"encoding/hex"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/f5devcentral/telemetry-streaming-agent/internal/actions"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/receiver"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/trace"
	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

// Config configures one Listener instance.
type Config struct {
	ID        string
	Namespace string
	Port      int
	Match     string // optional regex; empty matches everything
	Tag       map[string]string
	Actions   []models.ActionSpec

	TraceEnable bool
	TracePath   string
	TraceType   string // "input" or "output"
}

// Listener subscribes to every protocol socket bound to its port and turns
// raw frames into Records.
type Listener struct {
	mu      sync.RWMutex // guards matchRe, tag, actions (everything Update can change)
	cfg     Config
	matchRe *regexp.Regexp

	processor *actions.Processor
	logger    *slog.Logger
	tracer    *trace.Writer

	out chan *models.Record

	mgr    *receiver.Manager
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Listener bound to mgr. Start must be called to begin
// receiving.
func New(cfg Config, mgr *receiver.Manager, logger *slog.Logger) (*Listener, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	var re *regexp.Regexp
	if cfg.Match != "" {
		compiled, err := regexp.Compile(cfg.Match)
		if err != nil {
			return nil, err
		}
		re = compiled
	}
	l := &Listener{
		cfg:       cfg,
		matchRe:   re,
		processor: actions.New(logger),
		logger:    logger.With("listener", cfg.ID),
		out:       make(chan *models.Record, 256),
		mgr:       mgr,
	}
	if cfg.TraceEnable {
		w, err := trace.New(trace.Config{Path: cfg.TracePath}, logger)
		if err != nil {
			l.logger.Warn("listener: trace writer unavailable", "path", cfg.TracePath, "error", err.Error())
		} else {
			l.tracer = w
		}
	}
	return l, nil
}

// Output returns the channel of emitted Records.
func (l *Listener) Output() <-chan *models.Record { return l.out }

// Port returns the port this listener is bound to.
func (l *Listener) Port() int { return l.cfg.Port }

// Update applies a changed match/tag/actions declaration to a running
// listener in place, without touching its socket subscriptions (the
// Lifecycle model's "in-place updated... no socket churn" rule). Port
// changes are not handled here: a changed port needs a different socket
// and must go through Stop/New instead.
func (l *Listener) Update(cfg Config) error {
	var re *regexp.Regexp
	if cfg.Match != "" {
		compiled, err := regexp.Compile(cfg.Match)
		if err != nil {
			return err
		}
		re = compiled
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Match = cfg.Match
	l.cfg.Tag = cfg.Tag
	l.cfg.Actions = cfg.Actions
	l.matchRe = re
	return nil
}

// Start subscribes to the TCP/UDP4/UDP6 sockets for this listener's port.
func (l *Listener) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	for _, proto := range []string{"tcp", "udp4", "udp6"} {
		sock, err := l.mgr.Acquire(runCtx, proto, l.cfg.Port, l.cfg.ID)
		if err != nil {
			return err
		}
		frames := sock.Subscribe(l.cfg.ID)
		l.wg.Add(1)
		go l.consume(runCtx, frames)
	}
	return nil
}

// Stop releases this listener's hold on its port's sockets and closes the
// output channel once all consume goroutines exit.
func (l *Listener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	for _, proto := range []string{"tcp", "udp4", "udp6"} {
		if sock, ok := l.mgr.Lookup(proto, l.cfg.Port); ok {
			sock.Unsubscribe(l.cfg.ID)
		}
		l.mgr.Release(proto, l.cfg.Port, l.cfg.ID)
	}
	l.wg.Wait()
	close(l.out)
}

func (l *Listener) consume(ctx context.Context, frames <-chan receiver.RawFrame) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			l.handleFrame(frame)
		}
	}
}

func (l *Listener) handleFrame(frame receiver.RawFrame) {
	l.mu.RLock()
	matchRe := l.matchRe
	tag := l.cfg.Tag
	actionList := l.cfg.Actions
	l.mu.RUnlock()

	text := string(frame.Data)

	if l.tracer != nil && l.cfg.TraceType == "input" {
		l.writeTrace(map[string]any{
			"senderKey": frame.SenderKey,
			"protocol":  frame.Protocol,
			"timestamp": frame.Timestamp,
			"hrtime":    frame.HRTime,
			"data":      hex.EncodeToString(frame.Data),
		})
	}

	if matchRe != nil && !matchRe.MatchString(text) {
		return
	}

	category := inferCategory(text)
	data := parseKeyValues(text)

	rec := &models.Record{
		Timestamp:              frame.Timestamp,
		TelemetryEventCategory: category,
		SourceID:               l.cfg.ID,
		Namespace:              l.cfg.Namespace,
		Data:                   data,
		OriginalRawData:        frame.Data,
	}
	if len(tag) > 0 {
		rec.Tags = map[string]string{}
		for k, v := range tag {
			rec.Tags[k] = v
		}
	}

	l.processor.Apply(actionList, rec)

	if l.tracer != nil && l.cfg.TraceType != "input" {
		l.writeTrace(rec)
	}

	select {
	case l.out <- rec:
	case <-time.After(time.Second):
		l.logger.Warn("listener: output channel full, dropping record")
	}
}

func (l *Listener) writeTrace(v any) {
	if err := l.tracer.Write(v); err != nil {
		l.logger.Warn("listener: trace write failed", "error", err.Error())
	}
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
