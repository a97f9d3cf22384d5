package normalize

import "math"

// PercentFromKeys computes round(partial/total*100), optionally inverted
// (100 - result). total=0 is explicitly undefined per spec §8; this
// implementation pins NaN as the chosen boundary behavior so callers can
// detect and skip emitting the metric rather than silently reporting 0,
// which would look like a real zero utilization reading.
func PercentFromKeys(partial, total float64, invert bool) float64 {
	if total == 0 {
		return math.NaN()
	}
	pct := math.Round(partial / total * 100)
	if invert {
		pct = 100 - pct
	}
	return pct
}

// SumNested adds up a numeric field across a slice of nested objects, for
// callers that must first sum across child maps before computing a percent
// (spec §4.6 "may first sum across nested objects").
func SumNested(items []any, key string) float64 {
	var sum float64
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		switch v := obj[key].(type) {
		case float64:
			sum += v
		case int:
			sum += float64(v)
		}
	}
	return sum
}
