package config

// knownClasses are the recognized top-level and namespace-scoped object
// classes (§6 External Interfaces). Controls and schemaVersion are global
// controls, not classes, and are only valid at the declaration root.
var knownClasses = map[string]bool{
	"Telemetry":                true,
	"Telemetry_Namespace":      true,
	"Telemetry_System":         true,
	"Telemetry_System_Poller":  true,
	"Telemetry_Listener":       true,
	"Telemetry_Consumer":       true,
	"Telemetry_Pull_Consumer":  true,
	"Telemetry_Endpoints":      true,
	"Telemetry_iHealth_Poller": true,
}

// rootOnlyKeys are valid only at the declaration root, never inside a
// Telemetry_Namespace object.
var rootOnlyKeys = map[string]bool{
	"Controls":      true,
	"schemaVersion": true,
}

// validateRoot checks the declaration's root shape: a "class":"Telemetry"
// object whose other keys are either root-only controls or recognized
// classed objects. Unknown keys fail with additionalProperties, matching
// the schema validator the original system delegates to (out of scope here
// per spec §1, so this hand-rolled check stands in for it (see DESIGN.md).
func validateRoot(decl map[string]any) error {
	if cls, _ := decl["class"].(string); cls != "" && cls != "Telemetry" {
		return &ValidationError{Path: "class", Reason: "root class must be \"Telemetry\""}
	}
	for key, val := range decl {
		if key == "class" {
			continue
		}
		if rootOnlyKeys[key] {
			continue
		}
		obj, ok := val.(map[string]any)
		if !ok {
			return &ValidationError{Path: key, Reason: "expected an object"}
		}
		if err := validateObject(key, obj, true); err != nil {
			return err
		}
	}
	return nil
}

// validateNamespaceBody validates the entries of a Telemetry_Namespace
// object: the same classes as the root, minus Controls/schemaVersion.
func validateNamespaceBody(nsName string, body map[string]any) error {
	for key, val := range body {
		if key == "class" {
			continue
		}
		if rootOnlyKeys[key] {
			return &ValidationError{Path: nsName + "." + key, Reason: "additionalProperties: not allowed inside a namespace"}
		}
		obj, ok := val.(map[string]any)
		if !ok {
			return &ValidationError{Path: nsName + "." + key, Reason: "expected an object"}
		}
		if err := validateObject(nsName+"."+key, obj, false); err != nil {
			return err
		}
	}
	return nil
}

func validateObject(path string, obj map[string]any, allowNamespace bool) error {
	cls, _ := obj["class"].(string)
	if cls == "" {
		return &ValidationError{Path: path, Reason: "missing required property \"class\""}
	}
	if cls == "Telemetry_Namespace" && !allowNamespace {
		return &ValidationError{Path: path, Reason: "namespaces cannot be nested"}
	}
	if !knownClasses[cls] {
		return &ValidationError{Path: path, Reason: "unrecognized class \"" + cls + "\""}
	}

	switch cls {
	case "Telemetry_Listener":
		if _, ok := obj["port"]; !ok {
			return &ValidationError{Path: path, Reason: "missing required property \"port\""}
		}
	case "Telemetry_Consumer", "Telemetry_Pull_Consumer":
		if t, _ := obj["type"].(string); t == "" {
			return &ValidationError{Path: path, Reason: "missing required property \"type\""}
		}
	}
	return nil
}
