package engine

import (
	"sync"
	"time"

	"supertrend_bot/internal/models"
)

// Status is a read-only snapshot for the admin surface.
type Status struct {
	Running     bool      `json:"running"`
	InSession   bool      `json:"in_session"`
	StopPhase   string    `json:"stop_phase"`
	StopPrice   float64   `json:"stop_price"`
	StopOrderID string    `json:"stop_order_id"`
	LastCycle   time.Time `json:"last_cycle"`
	LastError   string    `json:"last_error,omitempty"`
}

// statusBoard is the one piece of loop state read from outside the
// loop goroutine, hence the lock.
type statusBoard struct {
	mu   sync.RWMutex
	snap Status
}

func (b *statusBoard) observe(running, inSession bool, stop models.StopState, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap.Running = running
	b.snap.InSession = inSession
	b.snap.StopPhase = stop.Phase.String()
	b.snap.StopPrice = stop.StopPrice
	b.snap.StopOrderID = stop.OrderID
	b.snap.LastCycle = now
}

func (b *statusBoard) setError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap.LastError = err.Error()
}

func (b *statusBoard) clearError() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap.LastError = ""
}

// Status returns the latest loop snapshot.
func (l *Loop) Status() Status {
	l.status.mu.RLock()
	defer l.status.mu.RUnlock()
	return l.status.snap
}
