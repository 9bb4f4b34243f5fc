package models

// Side is the bot's own order side vocabulary, decoupled from any
// exchange client's enums.
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideNone
	}
}

type OrderType string

const (
	OrderTypeStop   OrderType = "STOP"
	OrderTypeMarket OrderType = "MARKET"
)

// Order is a resting order as the exchange reports it.
type Order struct {
	ID           string
	Side         Side
	Type         OrderType
	TriggerPrice float64
	LimitPrice   float64
	Qty          float64
}

// Position is always re-queried from the exchange, never cached
// across cycles.
type Position struct {
	Side  Side // SideBuy = long, SideSell = short
	Entry float64
	Qty   float64
}
