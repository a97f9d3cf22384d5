package normalize

import "time"

// asmTimeLayout matches the device's versionDatetime format.
const asmTimeLayout = "2006-01-02T15:04:05Z"

// ASMState reports "Pending Policy Changes" if any policy has isModified
// true, else "Policies Consistent" (§8 scenario 2).
func ASMState(policies []map[string]any) string {
	for _, p := range policies {
		if b, ok := p["isModified"].(bool); ok && b {
			return "Pending Policy Changes"
		}
	}
	return "Policies Consistent"
}

// ASMLastChange returns the maximum parseable versionDatetime across all
// policies as ISO-8601 with milliseconds; empty input yields "" (§8
// scenario 3).
func ASMLastChange(policies []map[string]any) string {
	var max time.Time
	found := false
	for _, p := range policies {
		s, ok := p["versionDatetime"].(string)
		if !ok {
			continue
		}
		t, err := time.Parse(asmTimeLayout, s)
		if err != nil {
			continue
		}
		if !found || t.After(max) {
			max = t
			found = true
		}
	}
	if !found {
		return ""
	}
	return max.UTC().Format("2006-01-02T15:04:05.000Z")
}
