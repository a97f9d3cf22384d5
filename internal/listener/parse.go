package listener

import "regexp"

// categoryHeuristics maps a detection regex to the category it implies
// (§4.3 step 2). Order matters: the first matching heuristic wins.
var categoryHeuristics = []struct {
	re       *regexp.Regexp
	category string
}{
	{regexp.MustCompile(`virtual_name\s*=`), "LTM"},
	{regexp.MustCompile(`policy_name\s*=`), "ASM"},
	{regexp.MustCompile(`Common::`), "AVR"},
}

// inferCategory returns the category implied by the first matching
// heuristic, or "event" as the default (§4.3 step 2).
func inferCategory(text string) string {
	for _, h := range categoryHeuristics {
		if h.re.MatchString(text) {
			return h.category
		}
	}
	return "event"
}

// keyValuePattern matches key="value" or key=value tokens.
var keyValuePattern = regexp.MustCompile(`([A-Za-z0-9_.]+)=(?:"([^"]*)"|(\S+))`)

// parseKeyValues attempts key=value / key="value" parsing (§4.3 step 3);
// if no pairs are found the raw text is wrapped as {"data": text}.
func parseKeyValues(text string) map[string]any {
	matches := keyValuePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return map[string]any{"data": text}
	}
	out := make(map[string]any, len(matches))
	for _, m := range matches {
		key := m[1]
		val := m[2]
		if val == "" {
			val = m[3]
		}
		out[key] = val
	}
	return out
}
