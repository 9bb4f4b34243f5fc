package engine

import (
	"context"

	"supertrend_bot/internal/models"
	"supertrend_bot/pkg/logger"
)

// manageStop runs every cycle while a position is open. Transitions:
// place the initial stop, move to break-even once, then ratchet by one
// trailing step at a time. Any exchange failure abandons the
// in-progress transition for this cycle; the retained state makes the
// next cycle retry from a consistent point.
func (l *Loop) manageStop(ctx context.Context, cfg models.Settings, pos models.Position) {
	closeSide := pos.Side.Opposite()

	if l.stop.OrderID == "" {
		l.repairStop(ctx, cfg, pos, closeSide)
		return
	}

	mark, err := l.ex.GetMarkPrice(ctx, cfg.Symbol)
	if err != nil {
		logger.Error("fetch mark price: %v", err)
		return
	}

	profit := mark - pos.Entry
	if pos.Side == models.SideSell {
		profit = pos.Entry - mark
	}
	if profit < cfg.SLAmount+cfg.TSLStep {
		return
	}

	var (
		newStop   float64
		nextPhase models.StopPhase
	)
	switch l.stop.Phase {
	case models.StopInitial:
		// break-even: stop to entry, exactly once per position
		newStop = pos.Entry
		nextPhase = models.StopBreakEven
	case models.StopBreakEven, models.StopTrailing:
		// ratchet one step from the current stop, not from the mark
		newStop = l.stop.StopPrice + cfg.TSLStep
		if pos.Side == models.SideSell {
			newStop = l.stop.StopPrice - cfg.TSLStep
		}
		nextPhase = models.StopTrailing
	default:
		return
	}

	if err := l.cancelOrder(ctx, cfg.Symbol, l.stop.OrderID); err != nil {
		logger.Error("cancel stop %s: %v", l.stop.OrderID, err)
		return // old stop is still live, state unchanged
	}

	// cancel happened: from here the exchange has no protective stop, so
	// record the intent first. If the place below fails, the next cycle
	// sees OrderID=="" and repairs from StopPrice.
	l.stop.OrderID = ""
	l.stop.Phase = nextPhase
	l.stop.StopPrice = newStop

	ord, err := l.ex.PlaceStopOrder(ctx, cfg.Symbol, closeSide, newStop, stopLimitPrice(closeSide, newStop, cfg.PriceBuffer), pos.Qty)
	if err != nil {
		logger.Error("place %s stop @ %.4f: %v", nextPhase, newStop, err)
		return
	}
	l.stop.OrderID = ord.ID

	if nextPhase == models.StopBreakEven {
		logger.Info("moved stop to break-even @ %.4f (order %s)", newStop, ord.ID)
		l.n.Sendf("[%s] stop moved to break-even @ %.4f", cfg.Symbol, newStop)
	} else {
		logger.Info("trailed stop by %.4f to %.4f (order %s)", cfg.TSLStep, newStop, ord.ID)
		l.n.Sendf("[%s] trailing stop advanced to %.4f", cfg.Symbol, newStop)
	}
}

// repairStop handles a position with no tracked stop order: a fresh
// fill, a restart while positioned, or the second half of an
// interrupted cancel-then-place. It re-derives state from the exchange
// instead of trusting memory.
func (l *Loop) repairStop(ctx context.Context, cfg models.Settings, pos models.Position, closeSide models.Side) {
	open, err := l.ex.GetOpenOrders(ctx, cfg.Symbol)
	if err != nil {
		logger.Error("fetch open orders for stop repair: %v", err)
		return
	}

	for i := range open {
		o := open[i]
		if o.Side != closeSide || o.Type != models.OrderTypeStop {
			continue
		}
		// a live protective stop survived a restart: adopt it and infer
		// the phase from its price relative to entry
		l.stop.OrderID = o.ID
		l.stop.StopPrice = o.TriggerPrice
		if l.stop.Phase == models.StopNone {
			if stopAtOrBeyondEntry(pos, o.TriggerPrice) {
				l.stop.Phase = models.StopBreakEven
			} else {
				l.stop.Phase = models.StopInitial
			}
		}
		logger.Info("adopted live stop %s @ %.4f as %s", o.ID, o.TriggerPrice, l.stop.Phase)
		return
	}

	trigger := l.stop.StopPrice
	phase := l.stop.Phase
	if phase == models.StopNone {
		// fresh position: initial stop at entry minus the configured
		// distance (plus, for shorts)
		trigger = pos.Entry - cfg.SLAmount
		if pos.Side == models.SideSell {
			trigger = pos.Entry + cfg.SLAmount
		}
		phase = models.StopInitial
	}

	ord, err := l.ex.PlaceStopOrder(ctx, cfg.Symbol, closeSide, trigger, stopLimitPrice(closeSide, trigger, cfg.PriceBuffer), pos.Qty)
	if err != nil {
		logger.Error("place protective stop @ %.4f: %v", trigger, err)
		return
	}
	l.stop = models.StopState{Phase: phase, OrderID: ord.ID, StopPrice: trigger}
	logger.Info("protective stop set @ %.4f (%s, order %s)", trigger, phase, ord.ID)
	l.n.Sendf("[%s] stop loss set @ %.4f", cfg.Symbol, trigger)
}

// stopLimitPrice buffers the limit past the trigger in the losing
// direction so the closing stop-limit fills through.
func stopLimitPrice(closeSide models.Side, trigger, buffer float64) float64 {
	if closeSide == models.SideSell {
		return trigger - buffer
	}
	return trigger + buffer
}

func stopAtOrBeyondEntry(pos models.Position, trigger float64) bool {
	if pos.Side == models.SideBuy {
		return trigger >= pos.Entry
	}
	return trigger <= pos.Entry
}
