package normalize

import "strings"

// MACNormalize uppercases a MAC address and left-pads each colon-separated
// octet to two hex digits. Input without any ":" is returned unchanged
// (spec §8 scenario 1: "no-colons" -> "no-colons").
func MACNormalize(mac string) string {
	if !strings.Contains(mac, ":") {
		return mac
	}
	parts := strings.Split(mac, ":")
	for i, p := range parts {
		p = strings.ToUpper(p)
		if len(p) < 2 {
			p = strings.Repeat("0", 2-len(p)) + p
		}
		parts[i] = p
	}
	return strings.Join(parts, ":")
}
