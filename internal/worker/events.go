package worker

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// EventKind enumerates the Config Worker's event surface (§4.9).
type EventKind string

const (
	EventReceived           EventKind = "received"
	EventValidationSucceed  EventKind = "validationSucceed"
	EventValidationFailed   EventKind = "validationFailed"
	EventChange             EventKind = "change"
)

// Event is one notification emitted by a declaration apply.
type Event struct {
	Kind          EventKind
	TransactionID string
	Namespace     string
	Metadata      any
	Err           error
}

// EventHandler receives worker events. Implementations must not block for
// long; they run on the worker's single processing goroutine.
type EventHandler func(Event)

// eventBus fans an Event out to every subscribed handler, swallowing panics
// from any one handler so a bad subscriber cannot break the reconciler,
// the same isolation contract the pipeline applies to consumers.
type eventBus struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

func newEventBus(logger *slog.Logger) *eventBus {
	return &eventBus{logger: logger}
}

func (b *eventBus) Subscribe(h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *eventBus) emit(kind EventKind, transactionID, namespace string, metadata any, err error) {
	b.mu.RLock()
	handlers := make([]EventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	ev := Event{Kind: kind, TransactionID: transactionID, Namespace: namespace, Metadata: metadata, Err: err}
	for _, h := range handlers {
		b.invoke(h, ev)
	}
}

func (b *eventBus) invoke(h EventHandler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("worker: event handler panicked", "event", ev.Kind, "panic", r)
		}
	}()
	h(ev)
}

// newTransactionID returns a random correlation id for one apply operation.
func newTransactionID() string {
	return uuid.NewString()
}
