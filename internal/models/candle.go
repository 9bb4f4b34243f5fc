package models

import "time"

// Candle is one futures kline, ordered by OpenTime when in a slice.
// The last element of a fetched window may still be open.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// IndicatorFrame is a candle annotated by the indicator pass.
// Final bands are recursive, so a frame is only meaningful inside
// the sequence it was computed from.
type IndicatorFrame struct {
	Candle

	VWAP float64
	ATR  float64

	BasicUpper float64
	BasicLower float64
	FinalUpper float64
	FinalLower float64

	Uptrend bool
}
