package trace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriterKeepsOnlyMaxRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Telemetry_Listener.my-listener")

	w, err := New(Config{Path: path, MaxRecords: 3}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := w.Write(map[string]any{"seq": i}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var records []map[string]any
	if err := json.Unmarshal(b, &records); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records retained, got %d", len(records))
	}
	if records[0]["seq"].(float64) != 2 {
		t.Fatalf("expected the oldest retained record to be seq=2, got %v", records[0]["seq"])
	}
}

func TestPathForInputPrefix(t *testing.T) {
	if got := PathFor("/var/tmp/telemetry", "Telemetry_Listener", "my-listener", true); got != "/var/tmp/telemetry/INPUT.Telemetry_Listener.my-listener" {
		t.Fatalf("got %q", got)
	}
	if got := PathFor("/var/tmp/telemetry", "Telemetry_Listener", "my-listener", false); got != "/var/tmp/telemetry/Telemetry_Listener.my-listener" {
		t.Fatalf("got %q", got)
	}
}

func TestWriterMasksSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Telemetry_System_Poller.my-poller")
	w, err := New(Config{Path: path}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Write(map[string]any{"passphrase": "super-secret"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) == "" {
		t.Fatalf("expected non-empty trace output")
	}
	if contains(b, "super-secret") {
		t.Fatalf("expected secret value to be masked, got %s", b)
	}
}

func contains(haystack []byte, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if string(haystack[i:i+len(needle)]) == needle {
				return true
			}
		}
		return false
	})()
}
