package service

import (
	"math"
	"sync/atomic"
	"time"
)

// State is the process health snapshot: written by the trading loop
// and the mark-price stream, read by the health endpoints.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	wsConnected   atomic.Bool
	lastCycleUnix atomic.Int64  // unix seconds
	markBits      atomic.Uint64 // float64 bits, last streamed mark price
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

func (s *State) TouchCycle(t time.Time) { s.lastCycleUnix.Store(t.Unix()) }
func (s *State) LastCycle() time.Time {
	u := s.lastCycleUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) SetMark(v float64) { s.markBits.Store(math.Float64bits(v)) }
func (s *State) Mark() float64     { return math.Float64frombits(s.markBits.Load()) }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
