package normalize

import "testing"

func TestASMState(t *testing.T) {
	pending := []map[string]any{{"isModified": false}, {"isModified": true}}
	if got := ASMState(pending); got != "Pending Policy Changes" {
		t.Errorf("got %q", got)
	}
	consistent := []map[string]any{{"isModified": false}}
	if got := ASMState(consistent); got != "Policies Consistent" {
		t.Errorf("got %q", got)
	}
}

func TestASMLastChange(t *testing.T) {
	policies := []map[string]any{
		{"versionDatetime": "2020-01-02T00:00:00Z"},
		{"versionDatetime": "2021-06-01T00:00:00Z"},
	}
	want := "2021-06-01T00:00:00.000Z"
	if got := ASMLastChange(policies); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := ASMLastChange(nil); got != "" {
		t.Errorf("expected empty string for empty input, got %q", got)
	}
}
