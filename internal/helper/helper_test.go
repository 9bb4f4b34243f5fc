package helper

import "testing"

func TestNormTF(t *testing.T) {
	cases := map[string]string{
		"5m":    "5m",
		"5min":  "5m",
		" 15M ": "15m",
		"60m":   "1h",
		"1h":    "1h",
		"24h":   "1d",
	}
	for in, want := range cases {
		if got := NormTF(in); got != want {
			t.Errorf("NormTF(%q) = %q, want %q", in, got, want)
		}
	}
}
