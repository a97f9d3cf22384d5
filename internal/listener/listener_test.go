package listener

import (
	"testing"

	"github.com/f5devcentral/telemetry-streaming-agent/internal/receiver"
)

func TestInferCategoryLTM(t *testing.T) {
	if got := inferCategory(`virtual_name="test"`); got != "LTM" {
		t.Fatalf("got %q", got)
	}
}

func TestInferCategoryDefault(t *testing.T) {
	if got := inferCategory("plain syslog text"); got != "event" {
		t.Fatalf("got %q", got)
	}
}

func TestParseKeyValues(t *testing.T) {
	data := parseKeyValues(`virtual_name="test" pool_name=my_pool`)
	if data["virtual_name"] != "test" || data["pool_name"] != "my_pool" {
		t.Fatalf("got %+v", data)
	}
}

func TestParseKeyValuesFallback(t *testing.T) {
	data := parseKeyValues("no structured fields here")
	if data["data"] != "no structured fields here" {
		t.Fatalf("got %+v", data)
	}
}

// Update must apply a changed match/tag/actions in place, with no socket
// churn: handleFrame observes the new config on the very next frame.
func TestUpdateAppliesChangedMatchAndTagInPlace(t *testing.T) {
	l, err := New(Config{ID: "l1", Namespace: "ns", Port: 6514}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.handleFrame(receiver.RawFrame{Data: []byte("anything")})
	rec := <-l.out
	if len(rec.Tags) != 0 {
		t.Fatalf("expected no tags before Update, got %+v", rec.Tags)
	}

	if err := l.Update(Config{ID: "l1", Namespace: "ns", Port: 6514, Match: "keep", Tag: map[string]string{"env": "prod"}}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	l.handleFrame(receiver.RawFrame{Data: []byte("drop me")})
	select {
	case rec := <-l.out:
		t.Fatalf("expected non-matching frame to be dropped after Update, got %+v", rec)
	default:
	}

	l.handleFrame(receiver.RawFrame{Data: []byte("keep this")})
	rec = <-l.out
	if rec.Tags["env"] != "prod" {
		t.Fatalf("expected tag applied after Update, got %+v", rec.Tags)
	}
}

func TestUpdateRejectsInvalidMatch(t *testing.T) {
	l, err := New(Config{ID: "l1", Port: 6514}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := l.Update(Config{ID: "l1", Port: 6514, Match: "("}); err == nil {
		t.Fatalf("expected error for invalid regex")
	}
}
