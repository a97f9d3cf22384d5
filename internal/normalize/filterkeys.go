package normalize

import (
	"fmt"
	"strings"
)

// FilterKeys restricts a flat map to an include list (substring match) or an
// exclude list (exact match). Supplying both is an error. Array-typed
// values are passed through untouched.
func FilterKeys(data map[string]any, include, exclude []string) (map[string]any, error) {
	if len(include) > 0 && len(exclude) > 0 {
		return nil, fmt.Errorf("normalize: filterKeys: include and exclude are mutually exclusive")
	}

	out := make(map[string]any, len(data))
	for k, v := range data {
		if _, isArray := v.([]any); isArray {
			out[k] = v
			continue
		}
		if len(include) > 0 {
			if containsSubstring(include, k) {
				out[k] = v
			}
			continue
		}
		if len(exclude) > 0 {
			if containsExact(exclude, k) {
				continue
			}
			out[k] = v
			continue
		}
		out[k] = v
	}
	return out, nil
}

func containsSubstring(list []string, key string) bool {
	for _, s := range list {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

func containsExact(list []string, key string) bool {
	for _, s := range list {
		if s == key {
			return true
		}
	}
	return false
}
