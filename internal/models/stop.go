package models

// StopPhase tracks where the protective stop is in its lifecycle.
type StopPhase int

const (
	StopNone StopPhase = iota
	StopInitial
	StopBreakEven
	StopTrailing
)

func (p StopPhase) String() string {
	switch p {
	case StopNone:
		return "no_position"
	case StopInitial:
		return "initial_stop_set"
	case StopBreakEven:
		return "break_even_set"
	case StopTrailing:
		return "trailing"
	default:
		return "unknown"
	}
}

// StopState is the protective-stop state machine value, owned by the
// control loop and held only in process memory. OrderID == "" with a
// non-zero phase means a cancel succeeded but the replacement place
// failed; the next cycle repairs it from StopPrice.
type StopState struct {
	Phase     StopPhase
	OrderID   string
	StopPrice float64
}

// Reset returns the state to no-position, dropping any lingering
// order reference.
func (s *StopState) Reset() {
	*s = StopState{}
}
