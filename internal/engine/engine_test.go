package engine

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"supertrend_bot/internal/models"
	"supertrend_bot/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// mockExchange records every call so tests can assert exact traffic.
type mockExchange struct {
	candles    []models.Candle
	candlesErr error
	open       []models.Order
	openErr    error
	pos        *models.Position
	posErr     error
	mark       float64
	markErr    error
	placeErr   error
	cancelErr  error

	placed    []models.Order
	cancelled []string
	calls     map[string]int
	nextID    int
}

func newMockExchange() *mockExchange {
	return &mockExchange{calls: map[string]int{}}
}

func (m *mockExchange) GetCandles(_ context.Context, _, _ string, _ int) ([]models.Candle, error) {
	m.calls["GetCandles"]++
	return m.candles, m.candlesErr
}

func (m *mockExchange) GetOpenOrders(_ context.Context, _ string) ([]models.Order, error) {
	m.calls["GetOpenOrders"]++
	return m.open, m.openErr
}

func (m *mockExchange) PlaceStopOrder(_ context.Context, _ string, side models.Side, trigger, limit, qty float64) (models.Order, error) {
	m.calls["PlaceStopOrder"]++
	if m.placeErr != nil {
		return models.Order{}, m.placeErr
	}
	m.nextID++
	ord := models.Order{
		ID:           fmt.Sprintf("ord-%d", m.nextID),
		Side:         side,
		Type:         models.OrderTypeStop,
		TriggerPrice: trigger,
		LimitPrice:   limit,
		Qty:          qty,
	}
	m.placed = append(m.placed, ord)
	return ord, nil
}

func (m *mockExchange) CancelOrder(_ context.Context, _, orderID string) error {
	m.calls["CancelOrder"]++
	if m.cancelErr != nil {
		return m.cancelErr
	}
	m.cancelled = append(m.cancelled, orderID)
	return nil
}

func (m *mockExchange) GetPosition(_ context.Context, _ string) (*models.Position, error) {
	m.calls["GetPosition"]++
	return m.pos, m.posErr
}

func (m *mockExchange) GetMarkPrice(_ context.Context, _ string) (float64, error) {
	m.calls["GetMarkPrice"]++
	return m.mark, m.markErr
}

func (m *mockExchange) ClosePositionMarket(_ context.Context, _ string) error {
	m.calls["ClosePositionMarket"]++
	return nil
}

type staticSettings struct{ cfg models.Settings }

func (s staticSettings) Current() models.Settings { return s.cfg }

type recordingNotifier struct{ msgs []string }

func (n *recordingNotifier) Sendf(format string, args ...any) {
	n.msgs = append(n.msgs, fmt.Sprintf(format, args...))
}

func testSettings() models.Settings {
	cfg := models.DefaultSettings()
	cfg.Running = true
	return cfg
}

func newTestLoop(ex *mockExchange, cfg models.Settings) (*Loop, *recordingNotifier) {
	n := &recordingNotifier{}
	return NewLoop(ex, staticSettings{cfg}, n, nil, Options{}), n
}

// midday UTC, inside the default 00:00 session
var noon = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func risingCandles(n int) []models.Candle {
	candles := make([]models.Candle, n)
	for i := range candles {
		close := 100 + 5*float64(i)
		candles[i] = models.Candle{
			OpenTime: time.Unix(int64(i*300), 0).UTC(),
			Open:     close - 2,
			High:     close + 1,
			Low:      close - 1,
			Close:    close,
			Volume:   1,
		}
	}
	return candles
}

func TestCycleIdleWhenStopped(t *testing.T) {
	ex := newMockExchange()
	cfg := testSettings()
	cfg.Running = false
	l, _ := newTestLoop(ex, cfg)

	idle, err := l.cycle(context.Background(), noon)
	if err != nil {
		t.Fatal(err)
	}
	if !idle {
		t.Error("stopped bot must report idle")
	}
	if len(ex.calls) != 0 {
		t.Errorf("stopped bot must not touch the exchange, calls: %v", ex.calls)
	}
}

func TestCycleOutOfSession(t *testing.T) {
	ex := newMockExchange()
	l, _ := newTestLoop(ex, testSettings())

	// default session starts 00:00, closed from 21:00
	late := time.Date(2024, time.March, 10, 22, 30, 0, 0, time.UTC)
	idle, err := l.cycle(context.Background(), late)
	if err != nil {
		t.Fatal(err)
	}
	if idle {
		t.Error("out-of-session is not idle, only inactive")
	}
	if len(ex.calls) != 0 {
		t.Errorf("out of session the loop must not touch the exchange, calls: %v", ex.calls)
	}
}

func TestCycleErrorsOnCandleFetchFailure(t *testing.T) {
	ex := newMockExchange()
	ex.candlesErr = fmt.Errorf("boom")
	l, _ := newTestLoop(ex, testSettings())

	if _, err := l.cycle(context.Background(), noon); err == nil {
		t.Fatal("candle fetch failure must surface as a cycle error")
	}
}

func TestCycleSkipsOnInsufficientCandles(t *testing.T) {
	ex := newMockExchange()
	ex.candles = risingCandles(10)
	l, _ := newTestLoop(ex, testSettings())

	if _, err := l.cycle(context.Background(), noon); err != nil {
		t.Fatalf("short candle window is a skip, not an error: %v", err)
	}
	if ex.calls["GetPosition"] != 0 {
		t.Error("short window must end the cycle before any trading action")
	}
}

func TestEntryPlacedOnBuySignal(t *testing.T) {
	ex := newMockExchange()
	ex.candles = risingCandles(20)
	cfg := testSettings()
	l, n := newTestLoop(ex, cfg)

	if _, err := l.cycle(context.Background(), noon); err != nil {
		t.Fatal(err)
	}

	if len(ex.placed) != 1 {
		t.Fatalf("want exactly one entry order, got %d", len(ex.placed))
	}
	ord := ex.placed[0]
	if ord.Side != models.SideBuy {
		t.Errorf("side = %q, want BUY", ord.Side)
	}
	// trigger at the high of the latest closed candle (index len-2)
	wantTrigger := ex.candles[len(ex.candles)-2].High
	if ord.TriggerPrice != wantTrigger {
		t.Errorf("trigger = %v, want %v", ord.TriggerPrice, wantTrigger)
	}
	if ord.LimitPrice != wantTrigger+cfg.PriceBuffer {
		t.Errorf("limit = %v, want trigger + buffer = %v", ord.LimitPrice, wantTrigger+cfg.PriceBuffer)
	}
	if ord.Qty != cfg.TradeQty {
		t.Errorf("qty = %v, want %v", ord.Qty, cfg.TradeQty)
	}
	if len(n.msgs) == 0 {
		t.Error("entry placement must notify")
	}
}

func TestEntryIdempotentWhenOrderMatches(t *testing.T) {
	ex := newMockExchange()
	ex.candles = risingCandles(20)
	wantTrigger := ex.candles[len(ex.candles)-2].High
	ex.open = []models.Order{{
		ID:           "existing",
		Side:         models.SideBuy,
		Type:         models.OrderTypeStop,
		TriggerPrice: wantTrigger,
	}}
	l, _ := newTestLoop(ex, testSettings())

	if _, err := l.cycle(context.Background(), noon); err != nil {
		t.Fatal(err)
	}
	if ex.calls["PlaceStopOrder"] != 0 || ex.calls["CancelOrder"] != 0 {
		t.Errorf("matching resting order must be left alone, calls: %v", ex.calls)
	}
}

func TestEntryReplacedOnTriggerChange(t *testing.T) {
	ex := newMockExchange()
	ex.candles = risingCandles(20)
	ex.open = []models.Order{{
		ID:           "stale",
		Side:         models.SideBuy,
		Type:         models.OrderTypeStop,
		TriggerPrice: 42,
	}}
	l, _ := newTestLoop(ex, testSettings())

	if _, err := l.cycle(context.Background(), noon); err != nil {
		t.Fatal(err)
	}
	if len(ex.cancelled) != 1 || ex.cancelled[0] != "stale" {
		t.Errorf("stale order must be cancelled, got %v", ex.cancelled)
	}
	if len(ex.placed) != 1 {
		t.Fatalf("want one replacement order, got %d", len(ex.placed))
	}
}

func TestNoSignalCancelsRestingEntries(t *testing.T) {
	ex := newMockExchange()
	l, _ := newTestLoop(ex, testSettings())

	open := []models.Order{
		{ID: "a", Side: models.SideBuy, Type: models.OrderTypeStop, TriggerPrice: 100},
		{ID: "b", Side: models.SideSell, Type: models.OrderTypeStop, TriggerPrice: 90},
	}
	l.reconcileEntry(context.Background(), testSettings(), models.SideNone, models.IndicatorFrame{}, open)

	if len(ex.cancelled) != 2 {
		t.Errorf("both resting stops must be cancelled, got %v", ex.cancelled)
	}
	if ex.calls["PlaceStopOrder"] != 0 {
		t.Error("no-signal must not place anything")
	}
}

func TestReconcileMakesNoCallsWhenNothingChanged(t *testing.T) {
	ex := newMockExchange()
	l, _ := newTestLoop(ex, testSettings())

	var last models.IndicatorFrame
	last.High = 150
	open := []models.Order{{
		ID:           "ok",
		Side:         models.SideBuy,
		Type:         models.OrderTypeStop,
		TriggerPrice: 150,
	}}
	l.reconcileEntry(context.Background(), testSettings(), models.SideBuy, last, open)

	if len(ex.calls) != 0 {
		t.Errorf("unchanged signal and order must cost zero exchange calls, got %v", ex.calls)
	}
}

func TestFreshPositionGetsInitialStop(t *testing.T) {
	ex := newMockExchange()
	cfg := testSettings() // SL 25
	l, n := newTestLoop(ex, cfg)
	pos := models.Position{Side: models.SideBuy, Entry: 100, Qty: cfg.TradeQty}

	l.manageStop(context.Background(), cfg, pos)

	if len(ex.placed) != 1 {
		t.Fatalf("want one protective stop, got %d", len(ex.placed))
	}
	ord := ex.placed[0]
	if ord.Side != models.SideSell {
		t.Errorf("protective stop side = %q, want SELL", ord.Side)
	}
	if ord.TriggerPrice != 75 {
		t.Errorf("initial stop = %v, want entry - SL = 75", ord.TriggerPrice)
	}
	if l.stop.Phase != models.StopInitial || l.stop.OrderID != ord.ID {
		t.Errorf("state = %+v, want initial phase tracking %s", l.stop, ord.ID)
	}
	if len(n.msgs) == 0 {
		t.Error("stop placement must notify")
	}
}

func TestShortPositionGetsInitialStopAboveEntry(t *testing.T) {
	ex := newMockExchange()
	cfg := testSettings()
	l, _ := newTestLoop(ex, cfg)
	pos := models.Position{Side: models.SideSell, Entry: 100, Qty: cfg.TradeQty}

	l.manageStop(context.Background(), cfg, pos)

	if len(ex.placed) != 1 || ex.placed[0].TriggerPrice != 125 {
		t.Fatalf("short initial stop must sit at entry + SL = 125, got %+v", ex.placed)
	}
	if ex.placed[0].Side != models.SideBuy {
		t.Errorf("short protective stop closes with a BUY, got %q", ex.placed[0].Side)
	}
}

func TestBreakEvenFiresOnceThenTrails(t *testing.T) {
	ex := newMockExchange()
	cfg := testSettings() // SL 25, TSL 10
	l, _ := newTestLoop(ex, cfg)
	pos := models.Position{Side: models.SideBuy, Entry: 100, Qty: cfg.TradeQty}
	l.stop = models.StopState{Phase: models.StopInitial, OrderID: "init", StopPrice: 75}

	// profit 36 >= SL + TSL: break-even
	ex.mark = 136
	l.manageStop(context.Background(), cfg, pos)
	if l.stop.Phase != models.StopBreakEven || l.stop.StopPrice != 100 {
		t.Fatalf("after first qualifying cycle: %+v, want break-even at entry", l.stop)
	}

	// same mark again: the break-even transition must not repeat,
	// trailing ratchets one step from the stop, not from the mark
	l.manageStop(context.Background(), cfg, pos)
	if l.stop.Phase != models.StopTrailing || l.stop.StopPrice != 110 {
		t.Fatalf("after second qualifying cycle: %+v, want trailing at 110", l.stop)
	}

	ex.mark = 200
	l.manageStop(context.Background(), cfg, pos)
	if l.stop.StopPrice != 120 {
		t.Fatalf("trailing must advance exactly one step to 120, got %v", l.stop.StopPrice)
	}
}

func TestStopHoldsBelowProfitThreshold(t *testing.T) {
	ex := newMockExchange()
	cfg := testSettings()
	l, _ := newTestLoop(ex, cfg)
	pos := models.Position{Side: models.SideBuy, Entry: 100, Qty: cfg.TradeQty}
	l.stop = models.StopState{Phase: models.StopInitial, OrderID: "init", StopPrice: 75}

	ex.mark = 134 // profit 34 < 35
	l.manageStop(context.Background(), cfg, pos)

	if ex.calls["CancelOrder"] != 0 || ex.calls["PlaceStopOrder"] != 0 {
		t.Errorf("below threshold the stop must not move, calls: %v", ex.calls)
	}
	if l.stop.OrderID != "init" || l.stop.StopPrice != 75 {
		t.Errorf("state must stay untouched, got %+v", l.stop)
	}
}

func TestStopTrailsDownForShorts(t *testing.T) {
	ex := newMockExchange()
	cfg := testSettings()
	l, _ := newTestLoop(ex, cfg)
	pos := models.Position{Side: models.SideSell, Entry: 100, Qty: cfg.TradeQty}
	l.stop = models.StopState{Phase: models.StopBreakEven, OrderID: "be", StopPrice: 100}

	ex.mark = 60 // profit 40 >= 35
	l.manageStop(context.Background(), cfg, pos)

	if l.stop.Phase != models.StopTrailing || l.stop.StopPrice != 90 {
		t.Fatalf("short trailing must step down to 90, got %+v", l.stop)
	}
}

func TestCancelFailureAbandonsTransition(t *testing.T) {
	ex := newMockExchange()
	cfg := testSettings()
	l, _ := newTestLoop(ex, cfg)
	pos := models.Position{Side: models.SideBuy, Entry: 100, Qty: cfg.TradeQty}
	l.stop = models.StopState{Phase: models.StopInitial, OrderID: "init", StopPrice: 75}

	ex.mark = 150
	ex.cancelErr = fmt.Errorf("exchange down")
	l.manageStop(context.Background(), cfg, pos)

	if l.stop.Phase != models.StopInitial || l.stop.OrderID != "init" || l.stop.StopPrice != 75 {
		t.Errorf("failed cancel must leave state untouched, got %+v", l.stop)
	}
	if ex.calls["PlaceStopOrder"] != 0 {
		t.Error("no placement after a failed cancel")
	}
}

func TestPlaceFailureLeavesRepairableIntent(t *testing.T) {
	ex := newMockExchange()
	cfg := testSettings()
	l, _ := newTestLoop(ex, cfg)
	pos := models.Position{Side: models.SideBuy, Entry: 100, Qty: cfg.TradeQty}
	l.stop = models.StopState{Phase: models.StopInitial, OrderID: "init", StopPrice: 75}

	ex.mark = 150
	ex.placeErr = fmt.Errorf("exchange down")
	l.manageStop(context.Background(), cfg, pos)

	// cancel went through, place failed: intent recorded, no order id
	if l.stop.OrderID != "" || l.stop.Phase != models.StopBreakEven || l.stop.StopPrice != 100 {
		t.Fatalf("want recorded break-even intent with empty order id, got %+v", l.stop)
	}

	// next cycle repairs from the intent
	ex.placeErr = nil
	l.manageStop(context.Background(), cfg, pos)
	if l.stop.OrderID == "" || l.stop.Phase != models.StopBreakEven || l.stop.StopPrice != 100 {
		t.Fatalf("repair must re-place the break-even stop, got %+v", l.stop)
	}
	if len(ex.placed) != 1 || ex.placed[0].TriggerPrice != 100 {
		t.Fatalf("repair order must sit at the intended price, got %+v", ex.placed)
	}
}

func TestRepairAdoptsLiveStopAfterRestart(t *testing.T) {
	ex := newMockExchange()
	cfg := testSettings()
	pos := models.Position{Side: models.SideBuy, Entry: 100, Qty: cfg.TradeQty}

	// stop below entry: still the initial stop
	ex.open = []models.Order{{ID: "live", Side: models.SideSell, Type: models.OrderTypeStop, TriggerPrice: 75}}
	l, _ := newTestLoop(ex, cfg)
	l.manageStop(context.Background(), cfg, pos)
	if l.stop.Phase != models.StopInitial || l.stop.OrderID != "live" || l.stop.StopPrice != 75 {
		t.Errorf("adopting a below-entry stop: %+v, want initial phase", l.stop)
	}
	if ex.calls["PlaceStopOrder"] != 0 {
		t.Error("adoption must not place a new order")
	}

	// stop at entry: break-even already happened
	ex2 := newMockExchange()
	ex2.open = []models.Order{{ID: "live2", Side: models.SideSell, Type: models.OrderTypeStop, TriggerPrice: 100}}
	l2, _ := newTestLoop(ex2, cfg)
	l2.manageStop(context.Background(), cfg, pos)
	if l2.stop.Phase != models.StopBreakEven || l2.stop.OrderID != "live2" {
		t.Errorf("adopting an at-entry stop: %+v, want break-even phase", l2.stop)
	}
}

func TestPositionCloseResetsStopState(t *testing.T) {
	ex := newMockExchange()
	ex.candles = risingCandles(20)
	l, n := newTestLoop(ex, testSettings())
	l.stop = models.StopState{Phase: models.StopTrailing, OrderID: "t1", StopPrice: 120}

	if _, err := l.cycle(context.Background(), noon); err != nil {
		t.Fatal(err)
	}
	if l.stop.Phase != models.StopNone || l.stop.OrderID != "" {
		t.Errorf("flat position must reset stop state, got %+v", l.stop)
	}
	if len(n.msgs) == 0 {
		t.Error("stop-state reset must notify")
	}
}

func TestCancelTreatsMissingOrderAsSuccess(t *testing.T) {
	ex := newMockExchange()
	ex.cancelErr = ErrOrderNotFound
	l, _ := newTestLoop(ex, testSettings())

	if err := l.cancelOrder(context.Background(), "BTCUSDT", "gone"); err != nil {
		t.Errorf("cancelling an absent order must succeed, got %v", err)
	}
}
