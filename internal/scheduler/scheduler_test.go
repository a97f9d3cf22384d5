package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSchedulerFiresRegisteredPollers(t *testing.T) {
	var mu sync.Mutex
	fired := map[string]int{}

	s := New(func(_ context.Context, pollerID string) {
		mu.Lock()
		fired[pollerID]++
		mu.Unlock()
	}, nil)

	s.SetPollers(map[string]time.Duration{"poller-1": 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	time.Sleep(120 * time.Millisecond)
	cancel()
	s.Stop()

	mu.Lock()
	count := fired["poller-1"]
	mu.Unlock()

	if count < 2 {
		t.Fatalf("expected at least 2 fires, got %d", count)
	}
}

func TestSchedulerExcludesPullModePollers(t *testing.T) {
	s := New(func(_ context.Context, _ string) {}, nil)
	s.SetPollers(map[string]time.Duration{"pull-poller": 0, "normal": time.Second})
	entries := s.Entries()
	if len(entries) != 1 || entries[0] != "normal" {
		t.Fatalf("expected only the non-pull poller scheduled, got %v", entries)
	}
}

func TestSchedulerOverlapGuardSkipsTick(t *testing.T) {
	var mu sync.Mutex
	running := 0
	maxConcurrent := 0
	release := make(chan struct{})

	s := New(func(_ context.Context, _ string) {
		mu.Lock()
		running++
		if running > maxConcurrent {
			maxConcurrent = running
		}
		mu.Unlock()
		<-release
		mu.Lock()
		running--
		mu.Unlock()
	}, nil)

	s.SetPollers(map[string]time.Duration{"poller-1": 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	time.Sleep(80 * time.Millisecond)
	close(release)
	cancel()
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if maxConcurrent > 1 {
		t.Fatalf("expected overlap guard to cap concurrency at 1, saw %d", maxConcurrent)
	}
}
