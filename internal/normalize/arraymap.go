// Package normalize is the C8 Normalizers library: a set of pure,
// shape-preserving transforms applied to raw device poll responses before
// they become pipeline Records. Grounded on snmp/decoder/types.go's
// single-purpose conversion-function style.
package normalize

import (
	"fmt"
	"strings"
)

// ArrayToMapOptions configures ArrayToMap.
type ArrayToMapOptions struct {
	// KeyNames, when more than one, are joined with "_" to form the map key.
	KeyNames []string
	// KeyNamePrefix is prepended to the computed key.
	KeyNamePrefix string
	// SkipWhenKeyMissing suppresses the error (and the element) when a key
	// name is absent from an entry, instead of raising.
	SkipWhenKeyMissing bool
}

// ArrayToMap converts an array of objects into a map keyed by one or more
// field values. Raises on non-array input.
func ArrayToMap(data any, opts ArrayToMapOptions) (map[string]any, error) {
	arr, ok := data.([]any)
	if !ok {
		return nil, fmt.Errorf("normalize: arrayToMap: input is not an array")
	}
	out := make(map[string]any, len(arr))
	for _, item := range arr {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		parts := make([]string, 0, len(opts.KeyNames))
		missing := false
		for _, kn := range opts.KeyNames {
			v, ok := obj[kn]
			if !ok {
				missing = true
				break
			}
			parts = append(parts, fmt.Sprintf("%v", v))
		}
		if missing {
			if opts.SkipWhenKeyMissing {
				continue
			}
			return nil, fmt.Errorf("normalize: arrayToMap: missing key in entry")
		}
		key := opts.KeyNamePrefix + strings.Join(parts, "_")
		out[key] = obj
	}
	return out, nil
}
