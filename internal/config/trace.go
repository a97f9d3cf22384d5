package config

import (
	"fmt"

	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

// parseTraceSpec reads a declared "trace" field, which may be a bool or an
// array of {type: "input"|"output"} objects (§4.1 step 7). Path assignment
// happens later in assignTracePaths once the component's id is known.
func parseTraceSpec(body map[string]any) models.TraceSpec {
	v, ok := body["trace"]
	if !ok {
		return models.TraceSpec{Enable: false}
	}
	switch x := v.(type) {
	case bool:
		if !x {
			return models.TraceSpec{Enable: false}
		}
		return models.TraceSpec{Enable: true, Type: "output"}
	case []any:
		// A TraceSpec holds a single Type: the last entry naming a type
		// wins, so an array asking for both input and output yields one
		// trace of the last-named type, not both.
		spec := models.TraceSpec{Enable: len(x) > 0}
		for _, e := range x {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			if t := stringField(m, "type"); t != "" {
				spec.Type = t
			}
		}
		if spec.Type == "" {
			spec.Type = "output"
		}
		return spec
	default:
		return models.TraceSpec{Enable: false}
	}
}

// assignTracePaths fills in TraceSpec.Path for every component with tracing
// enabled, following the "/var/tmp/telemetry/<Class>.<id>" convention
// (INPUT.<Class>.<id> for input traces).
func assignTracePaths(components []models.Component) {
	for i := range components {
		c := &components[i]
		if !c.Trace.Enable {
			continue
		}
		prefix := ""
		if c.Trace.Type == "input" {
			prefix = "INPUT."
		}
		c.Trace.Path = fmt.Sprintf("/var/tmp/telemetry/%s%s.%s", prefix, c.Class, c.ID)
	}
}
