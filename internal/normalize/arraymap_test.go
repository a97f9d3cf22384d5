package normalize

import (
	"reflect"
	"testing"
)

func TestArrayToMap(t *testing.T) {
	data := []any{
		map[string]any{"n": "a", "v": 1},
		map[string]any{"n": "b", "v": 2},
	}
	got, err := ArrayToMap(data, ArrayToMapOptions{KeyNames: []string{"n"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{
		"a": map[string]any{"n": "a", "v": 1},
		"b": map[string]any{"n": "b", "v": 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestArrayToMapNonArrayErrors(t *testing.T) {
	_, err := ArrayToMap(map[string]any{}, ArrayToMapOptions{KeyNames: []string{"n"}})
	if err == nil {
		t.Fatal("expected error for non-array input")
	}
}

func TestArrayToMapSkipWhenKeyMissing(t *testing.T) {
	data := []any{
		map[string]any{"n": "a"},
		map[string]any{"other": "x"},
	}
	got, err := ArrayToMap(data, ArrayToMapOptions{KeyNames: []string{"n"}, SkipWhenKeyMissing: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
}
