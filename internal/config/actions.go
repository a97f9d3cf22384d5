package config

import "github.com/f5devcentral/telemetry-streaming-agent/models"

// parseActions reads a declared "actions" array into typed ActionSpec
// values. Unrecognized action shapes are skipped rather than rejected;
// schema validation does not inspect actions, so a malformed action is
// dropped silently here.
func parseActions(obj map[string]any) []models.ActionSpec {
	raw, ok := obj["actions"].([]any)
	if !ok {
		return nil
	}
	out := make([]models.ActionSpec, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if !boolField(m, "enable", true) {
			continue
		}
		spec := models.ActionSpec{}
		if setTag, ok := m["setTag"].(map[string]any); ok {
			spec.SetTag = toStringMap(setTag)
		}
		if include, ok := m["includeData"]; ok {
			spec.IncludePaths = toStringSlice(include)
			if spec.IncludePaths == nil {
				spec.IncludePaths = []string{}
			}
		}
		if exclude, ok := m["excludeData"]; ok {
			spec.ExcludePaths = toStringSlice(exclude)
			if spec.ExcludePaths == nil {
				spec.ExcludePaths = []string{}
			}
		}
		if jp, ok := m["JMESPath"].(map[string]any); ok {
			spec.JMESPath = toStringMap(jp)
		}
		if ifAll, ok := m["ifAllMatch"].(map[string]any); ok {
			spec.IfAllMatch = toStringMap(ifAll)
		}
		out = append(out, spec)
	}
	return out
}

func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toStringMap(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func toTagMap(obj map[string]any, key string) map[string]string {
	m, ok := obj[key].(map[string]any)
	if !ok {
		return nil
	}
	return toStringMap(m)
}
