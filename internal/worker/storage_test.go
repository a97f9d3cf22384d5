package worker

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStorageSaveLoadDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStorage(filepath.Join(dir, "config.json"))
	ctx := context.Background()

	raw, err := s.Load(ctx)
	if err != nil || raw != nil {
		t.Fatalf("expected (nil, nil) for missing file, got (%v, %v)", raw, err)
	}

	if err := s.Save(ctx, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Fatalf("unexpected raw: %s", raw)
	}

	if err := s.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	raw, err = s.Load(ctx)
	if err != nil || raw != nil {
		t.Fatalf("expected (nil, nil) after delete, got (%v, %v)", raw, err)
	}
}

func TestFileStorageWatchFiresOnExternalWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	s := NewFileStorage(path)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	changed := make(chan struct{}, 1)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	go s.Watch(ctx, logger, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"raw":{}}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("expected Watch to observe the external write")
	}
}
