// Package engine is the trading core: the control loop, the entry-order
// reconciler and the protective-stop state machine. All exchange I/O
// goes through the Exchange port; the loop goroutine is the only owner
// of trading state.
package engine

import (
	"context"

	"github.com/pkg/errors"

	"supertrend_bot/internal/models"
)

// ErrOrderNotFound is returned by Exchange.CancelOrder when the order is
// already gone. The engine treats it as success: cancelling an absent
// order is a no-op, not a failure.
var ErrOrderNotFound = errors.New("order not found")

// Exchange is the single port for all exchange round-trips. Every call
// can fail transiently; callers decide between retry-next-cycle and
// skip, never assume a mutation succeeded without re-querying.
type Exchange interface {
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]models.Order, error)
	PlaceStopOrder(ctx context.Context, symbol string, side models.Side, triggerPrice, limitPrice, qty float64) (models.Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	// GetPosition returns nil when flat.
	GetPosition(ctx context.Context, symbol string) (*models.Position, error)
	GetMarkPrice(ctx context.Context, symbol string) (float64, error)
	// ClosePositionMarket flattens the position at market. Manual
	// intervention only; the loop itself never calls it.
	ClosePositionMarket(ctx context.Context, symbol string) error
}

// SettingsSource hands out the current settings record. Read once at
// the top of every cycle so admin edits take effect within a cycle.
type SettingsSource interface {
	Current() models.Settings
}

// Notifier receives trade events. Implemented by the Telegram notifier
// or a no-op.
type Notifier interface {
	Sendf(format string, args ...any)
}
