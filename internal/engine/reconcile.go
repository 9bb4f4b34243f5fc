package engine

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"supertrend_bot/internal/models"
	"supertrend_bot/pkg/logger"
)

// priceEqual compares exchange-reported prices, which round-trip
// through decimal strings.
func priceEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// reconcileEntry keeps at most one resting conditional entry order in
// line with the signal: cancel on trigger mismatch, leave on match,
// place on absence, cancel everything on no-signal. At most one cancel
// plus one place per cycle. Failures are logged and retried by the
// next cycle's reconciliation; there is no local order bookkeeping to
// corrupt.
func (l *Loop) reconcileEntry(ctx context.Context, cfg models.Settings, sig models.Side, last models.IndicatorFrame, open []models.Order) {
	if sig == models.SideNone {
		for _, o := range open {
			if o.Type != models.OrderTypeStop {
				continue
			}
			if err := l.cancelOrder(ctx, cfg.Symbol, o.ID); err != nil {
				logger.Error("cancel stale entry order %s: %v", o.ID, err)
			} else {
				logger.Info("cancelled stale entry order %s (%s @ %.4f)", o.ID, o.Side, o.TriggerPrice)
			}
		}
		return
	}

	// breakout entry: trigger at the latest closed extreme, limit
	// buffered past the trigger so the stop-limit actually fills
	trigger := last.High
	limit := trigger + cfg.PriceBuffer
	if sig == models.SideSell {
		trigger = last.Low
		limit = trigger - cfg.PriceBuffer
	}

	var existing *models.Order
	for i := range open {
		if open[i].Side == sig && open[i].Type == models.OrderTypeStop {
			existing = &open[i]
			break
		}
	}

	if existing != nil {
		if priceEqual(existing.TriggerPrice, trigger) {
			return
		}
		if err := l.cancelOrder(ctx, cfg.Symbol, existing.ID); err != nil {
			logger.Error("cancel entry order %s before replace: %v", existing.ID, err)
			return
		}
	}

	ord, err := l.ex.PlaceStopOrder(ctx, cfg.Symbol, sig, trigger, limit, cfg.TradeQty)
	if err != nil {
		logger.Error("place %s entry order: %v", sig, err)
		return
	}
	logger.Info("placed %s entry order %s trigger=%.4f limit=%.4f qty=%.4f", sig, ord.ID, trigger, limit, cfg.TradeQty)
	l.n.Sendf("[%s] %s entry stop placed @ %.4f (limit %.4f)", cfg.Symbol, sig, trigger, limit)
}

// cancelOrder is the idempotent cancel: an already-absent order counts
// as cancelled.
func (l *Loop) cancelOrder(ctx context.Context, symbol, orderID string) error {
	if err := l.ex.CancelOrder(ctx, symbol, orderID); err != nil && !errors.Is(err, ErrOrderNotFound) {
		return err
	}
	return nil
}
