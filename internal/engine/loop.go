package engine

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"supertrend_bot/internal/indicator"
	"supertrend_bot/internal/models"
	"supertrend_bot/internal/strategy"
	"supertrend_bot/pkg/logger"
)

// Telemetry is the slice of health state the loop reports into.
type Telemetry interface {
	TouchCycle(t time.Time)
}

// Options tune the loop cadence. Zero values fall back to the defaults
// the bot has always run with: 1s cycles, 5s idle wait, 5s backoff.
type Options struct {
	Cadence     time.Duration
	IdleWait    time.Duration
	Backoff     time.Duration
	CandleLimit int
}

func (o *Options) fill() {
	if o.Cadence <= 0 {
		o.Cadence = time.Second
	}
	if o.IdleWait <= 0 {
		o.IdleWait = 5 * time.Second
	}
	if o.Backoff <= 0 {
		o.Backoff = 5 * time.Second
	}
	if o.CandleLimit <= 0 {
		o.CandleLimit = 100
	}
}

// Loop drives one symbol. Single goroutine, no overlap between cycles:
// the protective-stop state needs no locking because nothing else
// touches it.
type Loop struct {
	ex       Exchange
	settings SettingsSource
	n        Notifier
	tm       Telemetry

	opts Options

	stop models.StopState

	// errNotified throttles failure messages to the transition into an
	// error streak, not every backoff.
	errNotified bool

	status statusBoard
}

func NewLoop(ex Exchange, settings SettingsSource, n Notifier, tm Telemetry, opts Options) *Loop {
	opts.fill()
	return &Loop{
		ex:       ex,
		settings: settings,
		n:        n,
		tm:       tm,
		opts:     opts,
	}
}

// Run blocks until ctx is cancelled. An in-flight cycle always
// completes; cancellation is observed between cycles.
func (l *Loop) Run(ctx context.Context) {
	logger.Info("trading loop started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("trading loop stopped")
			return
		default:
		}

		sp := opentracing.StartSpan("trade_cycle")
		idle, err := l.cycle(opentracing.ContextWithSpan(ctx, sp), time.Now().UTC())
		sp.Finish()

		wait := l.opts.Cadence
		switch {
		case err != nil:
			logger.Error("cycle failed: %v", err)
			l.status.setError(err)
			if !l.errNotified {
				l.n.Sendf("cycle failing: %v", err)
				l.errNotified = true
			}
			wait = l.opts.Backoff
		case idle:
			l.errNotified = false
			l.status.clearError()
			wait = l.opts.IdleWait
		default:
			l.errNotified = false
			l.status.clearError()
		}

		select {
		case <-ctx.Done():
			logger.Info("trading loop stopped")
			return
		case <-time.After(wait):
		}
	}
}

// cycle is one full pass: settings, session gate, candles, indicators,
// then either entry reconciliation (flat) or stop management
// (positioned). idle=true means the run flag is off.
//
// A returned error triggers the backoff wait; errors absorbed inside
// the reconciler and stop machine only abandon their own transition.
func (l *Loop) cycle(ctx context.Context, now time.Time) (idle bool, err error) {
	cfg := l.settings.Current()

	if l.tm != nil {
		l.tm.TouchCycle(now)
	}
	l.status.observe(cfg.Running, false, l.stop, now)

	if !cfg.Running {
		return true, nil
	}

	hour, minute, err := cfg.SessionStartClock()
	if err != nil {
		// the admin surface validates before persisting, so this is a
		// corrupt record, not a user mistake
		return false, errors.Wrap(err, "settings")
	}

	inSession := strategy.InSession(now, hour, minute)
	l.status.observe(true, inSession, l.stop, now)
	if !inSession {
		// out of session: no trading action, a live protective stop
		// stays on the exchange
		return false, nil
	}

	candles, err := l.ex.GetCandles(ctx, cfg.Symbol, cfg.Timeframe, l.opts.CandleLimit)
	if err != nil {
		return false, errors.Wrap(err, "fetch candles")
	}

	frames, err := indicator.Annotate(candles)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientData) {
			logger.Info("skipping cycle: %v", err)
			return false, nil
		}
		return false, errors.Wrap(err, "indicators")
	}
	if len(frames) < 3 {
		logger.Info("skipping cycle: %d candles, need 3 for closed-candle pair", len(frames))
		return false, nil
	}

	// the last candle may still be open; signals come from the two
	// before it
	prev, last := frames[len(frames)-3], frames[len(frames)-2]

	pos, err := l.ex.GetPosition(ctx, cfg.Symbol)
	if err != nil {
		return false, errors.Wrap(err, "fetch position")
	}

	if pos == nil {
		if l.stop.Phase != models.StopNone {
			logger.Info("position closed, clearing stop state (was %s @ %.4f)", l.stop.Phase, l.stop.StopPrice)
			l.n.Sendf("[%s] position closed, stop state cleared", cfg.Symbol)
			l.stop.Reset()
		}

		open, err := l.ex.GetOpenOrders(ctx, cfg.Symbol)
		if err != nil {
			return false, errors.Wrap(err, "fetch open orders")
		}
		l.reconcileEntry(ctx, cfg, strategy.Evaluate(prev, last), last, open)
	} else {
		l.manageStop(ctx, cfg, *pos)
	}

	l.status.observe(true, true, l.stop, now)
	return false, nil
}
