package models

// Secret wraps a cipher-text field from a declaration. CipherText is the
// encrypted value as declared; Plaintext is filled in by the Secret Vault
// during resolution and is never marshalled back out.
type Secret struct {
	CipherText string `json:"cipherText,omitempty"`
	Plaintext  string `json:"-"`
}

// sensitiveKeys are masked at any depth by MaskSecrets before a value is
// logged or written to a trace file.
var sensitiveKeys = map[string]bool{
	"passphrase": true,
	"cipherText": true,
}

// MaskSecrets returns a copy of v with every map key in sensitiveKeys
// replaced by the literal string "*********" at any nesting depth. Non-map
// values and unrecognized keys pass through unchanged (but nested maps and
// slices are still copied, not aliased).
func MaskSecrets(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			if sensitiveKeys[k] {
				out[k] = "*********"
				continue
			}
			out[k] = MaskSecrets(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = MaskSecrets(e)
		}
		return out
	default:
		return v
	}
}
