package config

import (
	"reflect"
	"testing"

	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

func TestResolvePullConsumerGroupOrdering(t *testing.T) {
	decl := models.Declaration{
		"class": "Telemetry",
		"Pull_Poller_1": map[string]any{
			"class":    "Telemetry_System_Poller",
			"interval": 0,
		},
		"Pull_Poller_2": map[string]any{
			"class":    "Telemetry_System_Poller",
			"interval": 0,
		},
		"Pull_Poller_3": map[string]any{
			"class":    "Telemetry_System_Poller",
			"interval": 0,
		},
		"My_System": map[string]any{
			"class":        "Telemetry_System",
			"systemPoller": "Pull_Poller_1",
		},
		"My_System_2": map[string]any{
			"class":        "Telemetry_System",
			"systemPoller": "Pull_Poller_2",
		},
		"My_System_3": map[string]any{
			"class":        "Telemetry_System",
			"systemPoller": []any{"Pull_Poller_1", "Pull_Poller_2"},
		},
		"My_Pull_Consumer": map[string]any{
			"class":        "Telemetry_Pull_Consumer",
			"type":         "default",
			"systemPoller": []any{"Pull_Poller_1", "Pull_Poller_2", "Pull_Poller_3"},
		},
	}

	set, err := Resolve(decl, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	groupID := defaultNamespace + "::Telemetry_Pull_Consumer_System_Poller_Group_My_Pull_Consumer"
	group, ok := set.ByID(groupID)
	if !ok {
		t.Fatalf("expected group component %s", groupID)
	}
	fields, ok := group.Fields.(models.PullConsumerGroupFields)
	if !ok {
		t.Fatalf("expected PullConsumerGroupFields, got %T", group.Fields)
	}

	ns := defaultNamespace
	want := []string{
		ns + "::My_System::Pull_Poller_1",
		ns + "::My_System_2::Pull_Poller_2",
		ns + "::My_System_3::Pull_Poller_1",
		ns + "::My_System_3::Pull_Poller_2",
		ns + "::Pull_Poller_3::Pull_Poller_3",
	}
	if !reflect.DeepEqual(fields.PollerIDs, want) {
		t.Fatalf("poller ids mismatch\n got: %v\nwant: %v", fields.PollerIDs, want)
	}

	consumerID := ns + "::My_Pull_Consumer"
	consumers, ok := set.Mappings[groupID]
	if !ok || len(consumers) != 1 || consumers[0] != consumerID {
		t.Fatalf("expected mapping %s -> [%s], got %v", groupID, consumerID, set.Mappings[groupID])
	}
}

func TestResolveNamespaceFlattening(t *testing.T) {
	decl := models.Declaration{
		"class": "Telemetry",
		"Tenant_A": map[string]any{
			"class": "Telemetry_Namespace",
			"Listener_1": map[string]any{
				"class": "Telemetry_Listener",
				"port":  6514,
			},
		},
	}
	set, err := Resolve(decl, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := set.ByID("Tenant_A::Listener_1"); !ok {
		t.Fatalf("expected namespaced listener id, got components: %+v", set.Components)
	}
}

func TestResolveRejectsUnknownClass(t *testing.T) {
	decl := models.Declaration{
		"class": "Telemetry",
		"Thing": map[string]any{
			"class": "Not_A_Real_Class",
		},
	}
	_, err := Resolve(decl, nil)
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestResolveSameDeclarationTwiceIsIdentical(t *testing.T) {
	decl := models.Declaration{
		"class": "Telemetry",
		"Tenant_A": map[string]any{
			"class": "Telemetry_Namespace",
			"Listener_1": map[string]any{
				"class": "Telemetry_Listener",
				"port":  6514,
			},
		},
	}
	set1, err := Resolve(decl, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	set2, err := Resolve(decl, set1.Components)
	if err != nil {
		t.Fatalf("unexpected error on second resolve: %v", err)
	}
	// P3: reconcile of the same declaration twice produces identical output.
	if !reflect.DeepEqual(set1.Components, set2.Components) {
		t.Fatalf("expected identical components across re-resolves")
	}
}

func TestResolveEmptyDeclaration(t *testing.T) {
	set, err := Resolve(models.Declaration{"class": "Telemetry"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.Components) != 0 || len(set.Mappings) != 0 {
		t.Fatalf("expected empty resolved set, got %+v", set)
	}
}

func TestResolveMappingInvariantP1(t *testing.T) {
	decl := models.Declaration{
		"class": "Telemetry",
		"Listener_1": map[string]any{
			"class": "Telemetry_Listener",
			"port":  6514,
		},
		"My_Consumer": map[string]any{
			"class": "Telemetry_Consumer",
			"type":  "default",
		},
	}
	set, err := Resolve(decl, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for producer, consumers := range set.Mappings {
		if _, ok := set.ByID(producer); !ok {
			t.Fatalf("producer %s missing from component set", producer)
		}
		for _, c := range consumers {
			comp, ok := set.ByID(c)
			if !ok || !comp.Enable {
				t.Fatalf("consumer %s missing or disabled", c)
			}
		}
	}
}
