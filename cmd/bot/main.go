package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"supertrend_bot/internal/engine"
	"supertrend_bot/internal/modules/admin"
	"supertrend_bot/internal/modules/binance"
	"supertrend_bot/internal/modules/config"
	"supertrend_bot/internal/modules/health"
	"supertrend_bot/internal/modules/postgres"
	"supertrend_bot/internal/modules/settings"
	"supertrend_bot/internal/modules/telegram"
	"supertrend_bot/pkg/logger"
	"supertrend_bot/pkg/tracing"
)

const serviceName = "supertrend-bot"

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	logger.SetServiceName(serviceName)

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			if cfg.Jaeger.Host == "" {
				return nil
			}
			tracing.SetServiceName(serviceName)
			_, closeTracer, err := tracing.InitTracer(tracing.Config{Host: cfg.Jaeger.Host, Port: cfg.Jaeger.Port})
			if err != nil {
				return err
			}
			lc.Append(fx.Hook{OnStop: func(context.Context) error {
				closeTracer()
				return nil
			}})
			return nil
		}),
		postgres.Module(),
		settings.Module(),
		binance.Module(),
		telegram.Module(),
		health.Module(),
		engine.Module(),
		admin.Module(),
	)
	app.Run()
}
