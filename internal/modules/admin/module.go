// Package admin is the operator surface: read and edit the trading
// settings, start and stop the loop, flatten the position, inspect
// loop status. It is a control plane, the trading decisions stay in
// the engine.
package admin

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"

	"supertrend_bot/internal/engine"
	"supertrend_bot/internal/helper"
	"supertrend_bot/internal/modules/config"
	"supertrend_bot/internal/modules/settings"
	"supertrend_bot/pkg/logger"
)

type Server struct {
	store *settings.Store
	loop  *engine.Loop
	ex    engine.Exchange
}

func NewServer(store *settings.Store, loop *engine.Loop, ex engine.Exchange) *Server {
	return &Server{store: store, loop: loop, ex: ex}
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/settings", traced(s.handleSettings))
	mux.HandleFunc("/api/start", traced(s.handleStart))
	mux.HandleFunc("/api/stop", traced(s.handleStop))
	mux.HandleFunc("/api/close-position", traced(s.handleClosePosition))
	mux.HandleFunc("/api/status", traced(s.handleStatus))
	return mux
}

func traced(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		span := opentracing.StartSpan("admin " + r.Method + " " + r.URL.Path)
		defer span.Finish()
		h(w, r.WithContext(opentracing.ContextWithSpan(r.Context(), span)))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.store.Current())

	case http.MethodPut:
		// start from the stored record so a partial body only touches
		// the fields it names
		cfg := s.store.Current()
		dec := sonic.ConfigDefault.NewDecoder(r.Body)
		if err := dec.Decode(&cfg); err != nil {
			http.Error(w, "bad request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		cfg.Timeframe = helper.NormTF(cfg.Timeframe)
		if err := s.store.Update(r.Context(), cfg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Info("settings updated: %+v", cfg)
		writeJSON(w, http.StatusOK, s.store.Current())

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.setRunning(w, r, true)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.setRunning(w, r, false)
}

func (s *Server) setRunning(w http.ResponseWriter, r *http.Request, running bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.store.SetRunning(r.Context(), running); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	logger.Info("run flag set: running=%v", running)
	writeJSON(w, http.StatusOK, map[string]bool{"running": running})
}

// handleClosePosition flattens at market. It does not stop the loop:
// pair with /api/stop when the intent is to shut trading down.
func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	symbol := s.store.Current().Symbol
	if err := s.ex.ClosePositionMarket(r.Context(), symbol); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	logger.Info("position closed at market: %s", symbol)
	writeJSON(w, http.StatusOK, map[string]string{"result": "closed", "symbol": symbol})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.loop.Status())
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, srv *Server) {
	httpServer := &http.Server{
		Addr:              cfg.Admin.Addr,
		Handler:           srv.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Admin.Addr)
			if err != nil {
				return err
			}
			go func() { _ = httpServer.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("admin",
		fx.Provide(NewServer),
		fx.Invoke(RunHTTP),
	)
}
