package worker

import (
	"context"
	"testing"
	"time"

	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

func minimalListenerDeclaration(port int) models.Declaration {
	return models.Declaration{
		"class": "Telemetry",
		"My_Listener": map[string]any{
			"class": "Telemetry_Listener",
			"port":  float64(port),
		},
	}
}

func TestProcessDeclarationFiresEventSurface(t *testing.T) {
	w := New(Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	var kinds []EventKind
	w.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })

	err := w.ProcessDeclaration(ctx, minimalListenerDeclaration(16514), ProcessOptions{})
	if err != nil {
		t.Fatalf("ProcessDeclaration: %v", err)
	}

	want := []EventKind{EventReceived, EventValidationSucceed, EventChange}
	if len(kinds) != len(want) {
		t.Fatalf("got events %v, want %v", kinds, want)
	}
	for i, k := range want {
		if kinds[i] != k {
			t.Fatalf("event %d: got %q, want %q", i, kinds[i], k)
		}
	}
}

func TestProcessDeclarationRejectsUnknownClass(t *testing.T) {
	w := New(Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	var failed bool
	w.Subscribe(func(ev Event) {
		if ev.Kind == EventValidationFailed {
			failed = true
		}
	})

	err := w.ProcessDeclaration(ctx, models.Declaration{
		"class":      "Telemetry",
		"Bad_Object": map[string]any{"class": "Not_A_Real_Class"},
	}, ProcessOptions{})
	if err == nil {
		t.Fatalf("expected an error for an unknown class")
	}
	if !failed {
		t.Fatalf("expected validationFailed to fire")
	}
}

func TestGetDeclarationMissingNamespace(t *testing.T) {
	w := New(Config{}, nil)
	_, err := w.GetDeclaration("does-not-exist")
	if err == nil {
		t.Fatalf("expected ObjectNotFoundInConfigError")
	}
}

func TestCleanupRemovesDeclarationAndLiveState(t *testing.T) {
	w := New(Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	if err := w.ProcessDeclaration(ctx, minimalListenerDeclaration(16515), ProcessOptions{}); err != nil {
		t.Fatalf("ProcessDeclaration: %v", err)
	}
	if err := w.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	decl, err := w.GetDeclaration("")
	if err != nil {
		t.Fatalf("GetDeclaration: %v", err)
	}
	if decl != nil {
		t.Fatalf("expected declaration to be cleared, got %v", decl)
	}
}

func TestApplyDeclarationsAreSerialized(t *testing.T) {
	w := New(Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	done := make(chan error, 2)
	go func() { done <- w.ProcessDeclaration(ctx, minimalListenerDeclaration(16516), ProcessOptions{}) }()
	go func() { done <- w.ProcessDeclaration(ctx, minimalListenerDeclaration(16517), ProcessOptions{}) }()

	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("ProcessDeclaration: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("declaration apply did not complete; serialization may have deadlocked")
		}
	}
}
