package settings

import (
	"context"

	"go.uber.org/fx"

	"supertrend_bot/internal/engine"
	"supertrend_bot/pkg/db"
)

func Module() fx.Option {
	return fx.Module("settings",
		fx.Provide(
			func(dbm *db.PgTxManager) (*Store, error) {
				return NewStore(context.Background(), dbm)
			},
			func(s *Store) engine.SettingsSource { return s },
		),
	)
}
