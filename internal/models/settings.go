package models

import (
	"fmt"
	"strings"
	"time"
)

const sessionStartLayout = "15:04"

// Settings is the single editable bot record. The loop re-reads it
// every cycle and never writes it; only the admin surface mutates it.
type Settings struct {
	Symbol       string  `json:"symbol"`
	Timeframe    string  `json:"timeframe"`
	SessionStart string  `json:"session_start"` // "HH:MM", UTC
	SLAmount     float64 `json:"sl_amount"`     // stop distance, price units
	TSLStep      float64 `json:"tsl_step"`      // trailing step, price units
	TradeQty     float64 `json:"trade_quantity"`
	// PriceBuffer is the limit-price offset applied to stop orders.
	// A tick-size artifact of the traded symbol, so it is a per-record
	// setting rather than a constant.
	PriceBuffer float64 `json:"price_buffer"`

	Running bool `json:"-"`
}

// DefaultSettings seeds the record on first start, mirroring a stopped bot.
func DefaultSettings() Settings {
	return Settings{
		Symbol:       "BTCUSDT",
		Timeframe:    "5m",
		SessionStart: "00:00",
		SLAmount:     25,
		TSLStep:      10,
		TradeQty:     0.01,
		PriceBuffer:  0.5,
		Running:      false,
	}
}

// SessionStartClock parses SessionStart into hour/minute of day.
func (s Settings) SessionStartClock() (hour, minute int, err error) {
	t, err := time.Parse(sessionStartLayout, s.SessionStart)
	if err != nil {
		return 0, 0, fmt.Errorf("session_start %q: want HH:MM", s.SessionStart)
	}
	return t.Hour(), t.Minute(), nil
}

// Validate rejects records that must never reach the trading loop.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if strings.TrimSpace(s.Timeframe) == "" {
		return fmt.Errorf("timeframe is required")
	}
	if _, _, err := s.SessionStartClock(); err != nil {
		return err
	}
	if s.SLAmount <= 0 {
		return fmt.Errorf("sl_amount must be positive")
	}
	if s.TSLStep <= 0 {
		return fmt.Errorf("tsl_step must be positive")
	}
	if s.TradeQty <= 0 {
		return fmt.Errorf("trade_quantity must be positive")
	}
	if s.PriceBuffer < 0 {
		return fmt.Errorf("price_buffer must not be negative")
	}
	return nil
}
