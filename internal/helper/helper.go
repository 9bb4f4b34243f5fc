package helper

import "strings"

// NormTF maps loose operator input to the interval names the futures
// kline endpoint accepts.
func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimSuffix(s, "in") // "5min" -> "5m"
	switch s {
	case "60m", "1h":
		return "1h"
	case "24h", "1d":
		return "1d"
	default:
		return s
	}
}
