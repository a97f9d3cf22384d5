package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/f5devcentral/telemetry-streaming-agent/internal/consumer"
	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

type recordingHandle struct {
	mu      sync.Mutex
	events  []consumer.Event
	sendErr error
	panic   bool
}

func (h *recordingHandle) Send(_ context.Context, ev consumer.Event) error {
	if h.panic {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return h.sendErr
}

func (h *recordingHandle) Close() error { return nil }

func (h *recordingHandle) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func TestDispatchFansOutToAllMappedConsumers(t *testing.T) {
	reg := consumer.NewRegistry()
	h1, h2 := &recordingHandle{}, &recordingHandle{}
	reg.Put(&consumer.Entry{ID: "c1", Enabled: true, Handle: h1})
	reg.Put(&consumer.Entry{ID: "c2", Enabled: true, Handle: h2})

	p := New(Config{
		Registry: reg,
		Mappings: func(string) []string { return []string{"c1", "c2"} },
	}, nil)

	p.Dispatch(context.Background(), models.Record{SourceID: "listener-1"})

	if h1.count() != 1 || h2.count() != 1 {
		t.Fatalf("expected both consumers to receive the record, got %d %d", h1.count(), h2.count())
	}
}

func TestDispatchSkipsDisabledConsumer(t *testing.T) {
	reg := consumer.NewRegistry()
	h := &recordingHandle{}
	reg.Put(&consumer.Entry{ID: "c1", Enabled: false, Handle: h})

	p := New(Config{
		Registry: reg,
		Mappings: func(string) []string { return []string{"c1"} },
	}, nil)

	p.Dispatch(context.Background(), models.Record{SourceID: "listener-1"})
	if h.count() != 0 {
		t.Fatalf("expected disabled consumer to be skipped")
	}
}

func TestDispatchIsolatesOneFailureFromOthers(t *testing.T) {
	reg := consumer.NewRegistry()
	failing := &recordingHandle{sendErr: errors.New("boom")}
	ok := &recordingHandle{}
	reg.Put(&consumer.Entry{ID: "failing", Enabled: true, Handle: failing})
	reg.Put(&consumer.Entry{ID: "ok", Enabled: true, Handle: ok})

	var dispatched int32
	p := New(Config{
		Registry: reg,
		Mappings: func(string) []string { return []string{"failing", "ok"} },
		OnDispatch: func(_ string, _ error, _ time.Duration) {
			atomic.AddInt32(&dispatched, 1)
		},
	}, nil)

	p.Dispatch(context.Background(), models.Record{SourceID: "listener-1"})

	if ok.count() != 1 {
		t.Fatalf("expected the healthy consumer to still receive the record")
	}
	if atomic.LoadInt32(&dispatched) != 2 {
		t.Fatalf("expected OnDispatch called once per consumer, got %d", dispatched)
	}
}

func TestDispatchRecoversConsumerPanic(t *testing.T) {
	reg := consumer.NewRegistry()
	panicking := &recordingHandle{panic: true}
	reg.Put(&consumer.Entry{ID: "c1", Enabled: true, Handle: panicking})

	p := New(Config{
		Registry: reg,
		Mappings: func(string) []string { return []string{"c1"} },
	}, nil)

	done := make(chan struct{})
	go func() {
		p.Dispatch(context.Background(), models.Record{SourceID: "listener-1"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch did not return; panic was not recovered")
	}
}

func TestDispatchWithNoMappingsIsNoop(t *testing.T) {
	reg := consumer.NewRegistry()
	p := New(Config{Registry: reg, Mappings: func(string) []string { return nil }}, nil)
	p.Dispatch(context.Background(), models.Record{SourceID: "unmapped"})
}
