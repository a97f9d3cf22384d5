package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Storage persists exactly one key ("config") holding {raw: <declaration>}
// (§6 "Persisted state"). No key/value store library appears anywhere in
// the example pack, so this is a hand-rolled file-backed implementation.
type Storage interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, raw []byte) error
	Delete(ctx context.Context) error
}

// persistedState is the on-disk envelope: only "raw" is persisted, per §6.
type persistedState struct {
	Raw json.RawMessage `json:"raw"`
}

// FileStorage persists the declaration as a single JSON file. It is safe
// for concurrent use.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage constructs a FileStorage rooted at path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Load reads the persisted declaration's raw bytes. A missing file is not
// an error: it returns (nil, nil) so callers fall back to an empty
// declaration, per §4.9's load() contract.
func (s *FileStorage) Load(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("worker/storage: read: %w", err)
	}
	var state persistedState
	if err := json.Unmarshal(b, &state); err != nil {
		return nil, fmt.Errorf("worker/storage: decode: %w", err)
	}
	return state.Raw, nil
}

// Save writes raw as the persisted declaration, replacing any prior value.
func (s *FileStorage) Save(_ context.Context, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(persistedState{Raw: raw})
	if err != nil {
		return fmt.Errorf("worker/storage: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("worker/storage: mkdir: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("worker/storage: write: %w", err)
	}
	return nil
}

// Delete removes the persisted declaration, if any.
func (s *FileStorage) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("worker/storage: delete: %w", err)
	}
	return nil
}

// Watch watches the persisted declaration's directory for out-of-band
// writes to its file (e.g. an operator editing the blob directly on a
// dev/local backend) and invokes onChange for each one, until ctx is
// canceled. It logs and returns if the watcher cannot be established;
// callers are expected to run it in a goroutine.
func (s *FileStorage) Watch(ctx context.Context, logger *slog.Logger, onChange func()) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("worker/storage: watch unavailable", "error", err.Error())
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("worker/storage: watch mkdir failed", "error", err.Error())
		return
	}
	if err := watcher.Add(dir); err != nil {
		logger.Error("worker/storage: watch add failed", "error", err.Error(), "dir", dir)
		return
	}

	base := filepath.Base(s.path)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("worker/storage: watch error", "error", err.Error())
		case <-ctx.Done():
			return
		}
	}
}

// memStorage is an in-memory Storage used by tests and when no persistence
// path is configured.
type memStorage struct {
	mu  sync.Mutex
	raw []byte
}

func newMemStorage() *memStorage { return &memStorage{} }

func (s *memStorage) Load(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw, nil
}

func (s *memStorage) Save(_ context.Context, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
	return nil
}

func (s *memStorage) Delete(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = nil
	return nil
}
