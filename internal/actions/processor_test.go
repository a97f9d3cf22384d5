package actions

import (
	"testing"

	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

func TestApplySetTagResolvesPlaceholders(t *testing.T) {
	p := New(nil)
	rec := &models.Record{SourceID: "f5telemetry_default::My_System::Poller_1", Data: map[string]any{}}
	p.Apply([]models.ActionSpec{
		{SetTag: map[string]string{"tenant": "`T`", "application": "`A`"}},
	}, rec)
	if rec.Tags["tenant"] != "f5telemetry_default" {
		t.Errorf("tenant = %q", rec.Tags["tenant"])
	}
	if rec.Tags["application"] != "My_System" {
		t.Errorf("application = %q", rec.Tags["application"])
	}
}

func TestApplyIncludeExcludeData(t *testing.T) {
	p := New(nil)
	rec := &models.Record{Data: map[string]any{
		"a": map[string]any{"b": 1, "c": 2},
		"z": 9,
	}}
	p.Apply([]models.ActionSpec{{IncludePaths: []string{"a.b"}}}, rec)
	if _, ok := rec.Data["z"]; ok {
		t.Fatalf("expected z excluded, got %+v", rec.Data)
	}
	a, _ := rec.Data["a"].(map[string]any)
	if a["b"] != 1 {
		t.Fatalf("expected a.b preserved, got %+v", rec.Data)
	}
	if _, ok := a["c"]; ok {
		t.Fatalf("expected a.c excluded, got %+v", a)
	}
}

func TestApplyJMESPath(t *testing.T) {
	p := New(nil)
	rec := &models.Record{Data: map[string]any{"items": []any{
		map[string]any{"name": "x"},
		map[string]any{"name": "y"},
	}}}
	p.Apply([]models.ActionSpec{{JMESPath: map[string]string{"names": "items[*].name"}}}, rec)
	names, ok := rec.Data["names"].([]any)
	if !ok || len(names) != 2 {
		t.Fatalf("expected 2 names, got %+v", rec.Data["names"])
	}
}

func TestApplyIfAllMatchSkips(t *testing.T) {
	p := New(nil)
	rec := &models.Record{Data: map[string]any{"kind": "other"}}
	p.Apply([]models.ActionSpec{{
		IfAllMatch: map[string]string{"kind": "ltm"},
		SetTag:     map[string]string{"x": "y"},
	}}, rec)
	if len(rec.Tags) != 0 {
		t.Fatalf("expected action skipped, got tags %+v", rec.Tags)
	}
}

func TestApplyNeverPanics(t *testing.T) {
	p := New(nil)
	rec := &models.Record{}
	p.Apply([]models.ActionSpec{{JMESPath: map[string]string{"x": "[invalid("}}}, rec)
}
