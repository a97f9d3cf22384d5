package normalize

import "testing"

func TestMACNormalize(t *testing.T) {
	cases := map[string]string{
		"a:b:cc:d:ee:f": "0A:0B:CC:0D:EE:0F",
		"no-colons":     "no-colons",
	}
	for in, want := range cases {
		if got := MACNormalize(in); got != want {
			t.Errorf("MACNormalize(%q) = %q, want %q", in, got, want)
		}
	}
}
