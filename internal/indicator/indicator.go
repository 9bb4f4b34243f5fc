// Package indicator annotates candle windows with the VWAP/ATR/Supertrend
// values the signal evaluator works on. Pure computation, no I/O.
package indicator

import (
	"math"

	"github.com/pkg/errors"

	"supertrend_bot/internal/models"
)

const (
	// VWAPWindow is the rolling window for the volume-weighted average price.
	VWAPWindow = 14
	// ATRWindow is the rolling window for the average true range.
	ATRWindow = 7
	// bandMult scales ATR when deriving the Supertrend basic bands.
	bandMult = 2.0
)

// ErrInsufficientData is returned when the candle window is shorter than
// the longest indicator window.
var ErrInsufficientData = errors.New("not enough candles for indicators")

// Annotate computes VWAP, ATR and Supertrend bands/direction over the
// candle sequence in one forward pass. Candles must be ordered by time,
// most recent last.
//
// Index 0 seeds the band recursion: both final bands start at zero and
// the direction starts as uptrend. Later values depend on it, so the
// seed must not change.
func Annotate(candles []models.Candle) ([]models.IndicatorFrame, error) {
	if len(candles) < VWAPWindow {
		return nil, errors.Wrapf(ErrInsufficientData, "got %d, want >= %d", len(candles), VWAPWindow)
	}

	frames := make([]models.IndicatorFrame, len(candles))
	for i, c := range candles {
		frames[i].Candle = c
	}

	annotateVWAP(frames)
	annotateATR(frames)

	for i := range frames {
		f := &frames[i]
		mid := (f.High + f.Low) / 2
		f.BasicUpper = mid + bandMult*f.ATR
		f.BasicLower = mid - bandMult*f.ATR
	}

	frames[0].Uptrend = true
	for i := 1; i < len(frames); i++ {
		cur, prev := &frames[i], &frames[i-1]

		if cur.BasicUpper < prev.FinalUpper || prev.Close > prev.FinalUpper {
			cur.FinalUpper = cur.BasicUpper
		} else {
			cur.FinalUpper = prev.FinalUpper
		}

		if cur.BasicLower > prev.FinalLower || prev.Close < prev.FinalLower {
			cur.FinalLower = cur.BasicLower
		} else {
			cur.FinalLower = prev.FinalLower
		}

		switch {
		case cur.Close > cur.FinalUpper:
			cur.Uptrend = true
		case cur.Close < cur.FinalLower:
			cur.Uptrend = false
		default:
			cur.Uptrend = prev.Uptrend
		}
	}

	return frames, nil
}

// annotateVWAP fills the rolling volume-weighted typical price. Values
// before a full window stay zero, matching the warmup gap of the
// rolling formula.
func annotateVWAP(frames []models.IndicatorFrame) {
	var pvSum, volSum float64
	for i := range frames {
		f := &frames[i]
		typical := (f.High + f.Low + f.Close) / 3
		pvSum += typical * f.Volume
		volSum += f.Volume

		if i >= VWAPWindow {
			old := &frames[i-VWAPWindow]
			oldTypical := (old.High + old.Low + old.Close) / 3
			pvSum -= oldTypical * old.Volume
			volSum -= old.Volume
		}

		if i >= VWAPWindow-1 && volSum > 0 {
			f.VWAP = pvSum / volSum
		}
	}
}

// annotateATR fills the rolling mean of true range.
func annotateATR(frames []models.IndicatorFrame) {
	var trSum float64
	tr := make([]float64, len(frames))
	for i := range frames {
		f := &frames[i]
		if i == 0 {
			tr[i] = f.High - f.Low
		} else {
			prevClose := frames[i-1].Close
			tr[i] = math.Max(f.High-f.Low,
				math.Max(math.Abs(f.High-prevClose), math.Abs(f.Low-prevClose)))
		}

		trSum += tr[i]
		if i >= ATRWindow {
			trSum -= tr[i-ATRWindow]
		}
		if i >= ATRWindow-1 {
			f.ATR = trSum / ATRWindow
		}
	}
}
