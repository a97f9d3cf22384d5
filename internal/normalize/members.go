package normalize

import (
	"regexp"
	"strings"
)

// missingData is returned by GetValue when a path cannot be resolved,
// matching the spec's "treat missing inputs as the string 'missing data'"
// contract for getValue/restructureHostCpuInfo-style lookups.
const missingData = "missing data"

// GetValue walks a dotted path through nested maps, returning missingData
// when any segment is absent or not a map.
func GetValue(data map[string]any, path string) any {
	segments := strings.Split(path, ".")
	var cur any = data
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return missingData
		}
		v, ok := m[seg]
		if !ok {
			return missingData
		}
		cur = v
	}
	return cur
}

// memberSelfLink matches a pool/WideIP member stats selfLink fragment of the
// form ".../members/<vs>:<server>/stats".
var memberSelfLink = regexp.MustCompile(`/members/([^:/]+):([^/]+)/stats`)

// RestructureMemberReferences joins stat-side entries (keyed by numeric
// index, each carrying a selfLink) with item-side metadata (keyed by
// "<vs>:<server>") into a single map keyed by "<vs>:<server>".
func RestructureMemberReferences(statsByIndex map[string]any, itemsByKey map[string]any) map[string]any {
	out := make(map[string]any, len(statsByIndex))
	for _, stat := range statsByIndex {
		statObj, ok := stat.(map[string]any)
		if !ok {
			continue
		}
		link, _ := statObj["selfLink"].(string)
		m := memberSelfLink.FindStringSubmatch(link)
		if m == nil {
			continue
		}
		key := m[1] + ":" + m[2]
		merged := make(map[string]any, len(statObj)+1)
		for k, v := range statObj {
			merged[k] = v
		}
		if item, ok := itemsByKey[key].(map[string]any); ok {
			for k, v := range item {
				merged[k] = v
			}
		}
		out[key] = merged
	}
	return out
}
