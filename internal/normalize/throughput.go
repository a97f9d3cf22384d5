package normalize

import (
	"fmt"
	"strconv"
	"strings"
)

// ThroughputPreProcess handles a value that may appear as a single object or
// as a duplicate-key array (disambiguated by inner Packets/Bits keys) by
// splitting an array form into suffixed entries: "<key> Packets", "<key>
// Bits", etc.
func ThroughputPreProcess(key string, value any) map[string]any {
	arr, ok := value.([]any)
	if !ok {
		if m, ok := value.(map[string]any); ok {
			return map[string]any{key: m}
		}
		return map[string]any{key: value}
	}

	out := make(map[string]any, len(arr))
	for _, entry := range arr {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		suffix := "Bits"
		if _, hasPackets := m["Packets"]; hasPackets {
			suffix = "Packets"
		}
		out[key+" "+suffix] = m
	}
	return out
}

// ThroughputPostProcess restricts a throughput entry to {average, current,
// max}, lowercases those keys, coerces values to float64, and renames the
// outer key to camelCase, disambiguating collisions by appending a
// numeric suffix.
func ThroughputPostProcess(data map[string]any) map[string]any {
	used := map[string]bool{}
	out := make(map[string]any, len(data))

	for key, v := range data {
		obj, ok := v.(map[string]any)
		if !ok {
			continue
		}
		restricted := map[string]any{}
		for _, field := range []string{"average", "current", "max", "Average", "Current", "Max"} {
			if val, ok := obj[field]; ok {
				restricted[strings.ToLower(field)] = toFloat(val)
			}
		}
		camel := toCamelCase(key)
		name := camel
		n := 2
		for used[name] {
			name = fmt.Sprintf("%s%d", camel, n)
			n++
		}
		used[name] = true
		out[name] = restricted
	}
	return out
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	default:
		return 0
	}
}

func toCamelCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	})
	if len(parts) == 0 {
		return s
	}
	var sb strings.Builder
	sb.WriteString(strings.ToLower(parts[0]))
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(p[:1]))
		sb.WriteString(strings.ToLower(p[1:]))
	}
	return sb.String()
}
