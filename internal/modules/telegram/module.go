package telegram

import (
	"go.uber.org/fx"

	"supertrend_bot/internal/engine"
	"supertrend_bot/internal/modules/config"
	"supertrend_bot/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			func(cfg *config.Config) (engine.Notifier, error) {
				if cfg.Telegram.Token == "" {
					logger.Info("telegram token empty, notifications disabled")
					return Noop{}, nil
				}
				return NewNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
			},
		),
	)
}
