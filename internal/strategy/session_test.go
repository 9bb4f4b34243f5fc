package strategy

import (
	"testing"
	"time"
)

func at(day, hour, min int) time.Time {
	return time.Date(2024, time.March, day, hour, min, 0, 0, time.UTC)
}

func TestInSessionCrossesMidnight(t *testing.T) {
	// session starts 20:00, runs 21h, ends 17:00 next day
	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		// yesterday's window closed at 17:00 today, today's has not begun
		{"gap before start", at(10, 19, 59), false},
		{"at start", at(10, 20, 0), true},
		{"late evening", at(10, 23, 59), true},
		{"after midnight", at(11, 2, 0), true},
		{"next morning", at(11, 10, 0), true},
		{"just before close", at(11, 16, 59), true},
		{"at close", at(11, 17, 0), false},
		{"after close", at(11, 17, 1), false},
	}

	for _, tc := range cases {
		if got := InSession(tc.now, 20, 0); got != tc.want {
			t.Errorf("%s: InSession(%v, 20:00) = %v, want %v", tc.name, tc.now, got, tc.want)
		}
	}
}

func TestInSessionMidnightStart(t *testing.T) {
	// start 00:00: open until 21:00, closed 21:00..24:00
	if !InSession(at(10, 0, 0), 0, 0) {
		t.Error("start instant must be inside the half-open window")
	}
	if !InSession(at(10, 20, 59), 0, 0) {
		t.Error("20:59 must be in session")
	}
	if InSession(at(10, 21, 0), 0, 0) {
		t.Error("21:00 must be out of session")
	}
	if InSession(at(10, 22, 30), 0, 0) {
		t.Error("22:30 must be out of session")
	}
}

func TestInSessionMinutePrecision(t *testing.T) {
	// start 20:30
	if InSession(at(11, 17, 29), 20, 30) != true {
		t.Error("17:29 next day must be in session for a 20:30 start")
	}
	if InSession(at(11, 17, 30), 20, 30) != false {
		t.Error("17:30 next day must be out of session for a 20:30 start")
	}
}
