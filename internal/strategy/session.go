package strategy

import "time"

// SessionLength is fixed: every session runs exactly 21 hours from its
// configured start, recomputed fresh each check.
const SessionLength = 21 * time.Hour

// InSession reports whether now falls inside the half-open 21-hour
// window starting at hour:minute of day, UTC.
//
// The containment test works on absolute instants: when now precedes
// today's start instant, the candidate window is the one that began
// yesterday. Day-of-week arithmetic around the midnight crossover is
// deliberately avoided.
func InSession(now time.Time, hour, minute int) bool {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if now.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return now.Before(start.Add(SessionLength))
}
