// Package strategy holds the pure decision pieces of the bot: the
// entry-signal evaluator and the trading-session gate.
package strategy

import "supertrend_bot/internal/models"

// Evaluate derives the entry signal from the two most recently closed
// candles. A buy needs both to close above VWAP in an uptrend, a sell
// needs both to close below VWAP in a downtrend. One disqualifying
// candle means no signal, never the opposite side.
func Evaluate(prev, last models.IndicatorFrame) models.Side {
	buy := prev.Close > prev.VWAP && last.Close > last.VWAP &&
		prev.Uptrend && last.Uptrend
	if buy {
		return models.SideBuy
	}

	sell := prev.Close < prev.VWAP && last.Close < last.VWAP &&
		!prev.Uptrend && !last.Uptrend
	if sell {
		return models.SideSell
	}

	return models.SideNone
}
