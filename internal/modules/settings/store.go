// Package settings owns the single editable bot record: symbol,
// timeframe, session window, stop parameters and the run flag. The
// record is persisted in Postgres and mirrored in memory so the
// trading loop's per-cycle read never touches the database.
package settings

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"supertrend_bot/internal/models"
	"supertrend_bot/pkg/db"
)

const createTable = `
CREATE TABLE IF NOT EXISTS bot_settings (
	id       smallint PRIMARY KEY,
	settings jsonb    NOT NULL,
	running  boolean  NOT NULL DEFAULT false
)`

// Store implements the settings record with write-through caching:
// admin writes go to Postgres first, then to the in-memory copy the
// loop reads. Only this process writes the row.
type Store struct {
	db db.TxManager

	mu  sync.RWMutex
	cur models.Settings
}

// NewStore ensures the table exists and loads the record, seeding
// defaults (stopped) on first start.
func NewStore(ctx context.Context, dbm *db.PgTxManager) (*Store, error) {
	s := &Store{db: dbm}

	err := dbm.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctxTx, createTable); err != nil {
			return err
		}

		var (
			raw     []byte
			running bool
		)
		err := tx.QueryRow(ctxTx, `SELECT settings, running FROM bot_settings WHERE id = 1`).Scan(&raw, &running)
		if errors.Is(err, pgx.ErrNoRows) {
			def := models.DefaultSettings()
			data, mErr := sonic.Marshal(def)
			if mErr != nil {
				return mErr
			}
			if _, err := tx.Exec(ctxTx, `INSERT INTO bot_settings (id, settings, running) VALUES (1, $1, false)`, data); err != nil {
				return err
			}
			s.cur = def
			return nil
		}
		if err != nil {
			return err
		}

		var cfg models.Settings
		if err := sonic.Unmarshal(raw, &cfg); err != nil {
			return err
		}
		cfg.Running = running
		s.cur = cfg
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "settings.NewStore")
	}
	return s, nil
}

// Current returns a copy of the record. Called at the top of every
// trading cycle.
func (s *Store) Current() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Update replaces the editable fields. The run flag is toggled
// separately and survives the update. Invalid records are rejected
// before anything is written.
func (s *Store) Update(ctx context.Context, cfg models.Settings) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "settings.Update")
		}
	}()

	if err = cfg.Validate(); err != nil {
		return err
	}

	s.mu.RLock()
	cfg.Running = s.cur.Running
	s.mu.RUnlock()

	data, err := sonic.Marshal(cfg)
	if err != nil {
		return err
	}
	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `UPDATE bot_settings SET settings = $1 WHERE id = 1`, data)
		return err
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cur = cfg
	s.mu.Unlock()
	return nil
}

// SetRunning flips the run flag. The loop observes it within one idle
// interval.
func (s *Store) SetRunning(ctx context.Context, running bool) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "settings.SetRunning")
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `UPDATE bot_settings SET running = $1 WHERE id = 1`, running)
		return err
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cur.Running = running
	s.mu.Unlock()
	return nil
}
