package binance

import (
	"context"

	"go.uber.org/fx"

	"supertrend_bot/internal/engine"
	"supertrend_bot/internal/modules/config"
	"supertrend_bot/internal/modules/settings"
)

func Module() fx.Option {
	return fx.Module("binance",
		fx.Provide(
			func(cfg *config.Config) *Client {
				return NewClient(cfg.Binance.BaseURL, cfg.Binance.WSURL, cfg.Binance.APIKey, cfg.Binance.APISecret)
			},
			func(c *Client) engine.Exchange { return c },
			NewMarkPriceFeed,
		),
		fx.Invoke(func(lc fx.Lifecycle, feed *MarkPriceFeed, store *settings.Store) {
			feedCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go feed.Run(feedCtx, func() string { return store.Current().Symbol })
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
