package models

import "testing"

func TestSessionStartClock(t *testing.T) {
	s := DefaultSettings()
	s.SessionStart = "20:30"
	h, m, err := s.SessionStartClock()
	if err != nil {
		t.Fatal(err)
	}
	if h != 20 || m != 30 {
		t.Errorf("got %d:%d, want 20:30", h, m)
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	bad := []func(*Settings){
		func(s *Settings) { s.Symbol = " " },
		func(s *Settings) { s.Timeframe = "" },
		func(s *Settings) { s.SessionStart = "25:00" },
		func(s *Settings) { s.SessionStart = "8pm" },
		func(s *Settings) { s.SLAmount = 0 },
		func(s *Settings) { s.TSLStep = -1 },
		func(s *Settings) { s.TradeQty = 0 },
		func(s *Settings) { s.PriceBuffer = -0.5 },
	}
	for i, mutate := range bad {
		s := DefaultSettings()
		mutate(&s)
		if err := s.Validate(); err == nil {
			t.Errorf("case %d: expected a validation error for %+v", i, s)
		}
	}
}
