package strategy

import (
	"testing"

	"supertrend_bot/internal/models"
)

func frame(close, vwap float64, uptrend bool) models.IndicatorFrame {
	f := models.IndicatorFrame{VWAP: vwap, Uptrend: uptrend}
	f.Close = close
	return f
}

func TestEvaluateBuy(t *testing.T) {
	prev := frame(105, 100, true)
	last := frame(106, 100, true)
	if got := Evaluate(prev, last); got != models.SideBuy {
		t.Errorf("Evaluate = %q, want BUY", got)
	}
}

func TestEvaluateSell(t *testing.T) {
	prev := frame(95, 100, false)
	last := frame(94, 100, false)
	if got := Evaluate(prev, last); got != models.SideSell {
		t.Errorf("Evaluate = %q, want SELL", got)
	}
}

func TestEvaluateOneDisqualifyingCandleMeansNoSignal(t *testing.T) {
	cases := []struct {
		name       string
		prev, last models.IndicatorFrame
	}{
		{"last dips below vwap", frame(105, 100, true), frame(99, 100, true)},
		{"prev below vwap", frame(99, 100, true), frame(105, 100, true)},
		{"trend flipped on last", frame(105, 100, true), frame(106, 100, false)},
		{"trend flipped on prev", frame(95, 100, true), frame(94, 100, false)},
		{"close equal to vwap", frame(100, 100, true), frame(105, 100, true)},
	}

	for _, tc := range cases {
		if got := Evaluate(tc.prev, tc.last); got != models.SideNone {
			t.Errorf("%s: Evaluate = %q, want no signal", tc.name, got)
		}
	}
}
