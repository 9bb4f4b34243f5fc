package engine

import (
	"context"

	"go.uber.org/fx"

	"supertrend_bot/internal/modules/config"
	healthsvc "supertrend_bot/internal/modules/health/service"
)

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			NewLoop,
			func(s *healthsvc.State) Telemetry { return s },
			func(cfg *config.Config) Options {
				return Options{
					Cadence:     cfg.Loop.Cadence,
					IdleWait:    cfg.Loop.IdleWait,
					Backoff:     cfg.Loop.Backoff,
					CandleLimit: cfg.Loop.CandleLimit,
				}
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, l *Loop, state *healthsvc.State) {
			loopCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					state.SetReady(true)
					go l.Run(loopCtx)
					return nil
				},
				OnStop: func(_ context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
