package receiver

import (
	"testing"
	"time"
)

// P5: a receiver that has never been started and is stopped ends in
// STOPPED, not DESTROYED.
func TestStopWithoutStartEndsStopped(t *testing.T) {
	s := NewSocket("tcp", 0, nil)
	s.Stop()
	if got := s.State(); got != StateStopped {
		t.Fatalf("expected STOPPED, got %s", got)
	}
}

// §8 scenario 6: two listeners bound to the same (protocol, port) must each
// independently receive every frame, not race for one shared channel.
func TestSocketBroadcastsFrameToEverySubscriber(t *testing.T) {
	s := NewSocket("tcp", 0, nil)
	a := s.Subscribe("listener-a")
	b := s.Subscribe("listener-b")

	s.emitLines("sender-1", []byte("hello\n"))

	for name, ch := range map[string]<-chan RawFrame{"a": a, "b": b} {
		select {
		case frame := <-ch:
			if string(frame.Data) != "hello" {
				t.Fatalf("listener %s: unexpected frame data %q", name, frame.Data)
			}
		case <-time.After(time.Second):
			t.Fatalf("listener %s: did not receive broadcast frame", name)
		}
	}
}

func TestSocketUnsubscribeClosesChannelAndStopsDelivery(t *testing.T) {
	s := NewSocket("tcp", 0, nil)
	ch := s.Subscribe("listener-a")

	s.Unsubscribe("listener-a")

	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed after Unsubscribe")
	}
}

func TestFrameAssemblerSplitsLines(t *testing.T) {
	a := newFrameAssembler(nil)
	lines := a.Feed("sender-1", []byte("hello\nworld\npartial"))
	if len(lines) != 2 || string(lines[0]) != "hello" || string(lines[1]) != "world" {
		t.Fatalf("unexpected lines: %v", lines)
	}
	more := a.Feed("sender-1", []byte(" rest\n"))
	if len(more) != 1 || string(more[0]) != "partial rest" {
		t.Fatalf("unexpected continuation: %v", more)
	}
}

func TestFrameAssemblerDropsOversizeFragment(t *testing.T) {
	a := newFrameAssembler(nil)
	big := make([]byte, maxFragmentBytes+1)
	for i := range big {
		big[i] = 'x'
	}
	lines := a.Feed("sender-1", big)
	if len(lines) != 0 {
		t.Fatalf("expected no complete lines, got %d", len(lines))
	}
	// Buffer should have been reset; feeding a terminator now starts fresh.
	lines = a.Feed("sender-1", []byte("ok\n"))
	if len(lines) != 1 || string(lines[0]) != "ok" {
		t.Fatalf("expected fresh buffer after overflow, got %v", lines)
	}
}

func TestFrameAssemblerDiscard(t *testing.T) {
	a := newFrameAssembler(nil)
	a.Feed("sender-1", []byte("partial"))
	a.Discard("sender-1")
	lines := a.Feed("sender-1", []byte("line\n"))
	if len(lines) != 1 || string(lines[0]) != "line" {
		t.Fatalf("expected discarded prefix not to resurface, got %v", lines)
	}
}
