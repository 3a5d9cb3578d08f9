package pipeline

import (
	"sync"
	"sync/atomic"
	"time"
)

// Session is the per-connection pipeline state: the connection epoch used for
// the debounce window, the single-flight lock, and the last-motion timestamp.
// One instance exists per active camera connection; it is owned by the
// orchestrator and never shared as ambient global state.
type Session struct {
	connectedAt time.Time
	busy        atomic.Bool

	mu         sync.Mutex
	lastMotion time.Time
}

// NewSession starts a session whose debounce window opens at connectedAt.
func NewSession(connectedAt time.Time) *Session {
	return &Session{connectedAt: connectedAt}
}

// ConnectedAt reports the connection epoch.
func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}

// RecordMotion stores the arrival time of the most recent motion event.
func (s *Session) RecordMotion(at time.Time) {
	s.mu.Lock()
	s.lastMotion = at
	s.mu.Unlock()
}

// LastMotion reports when the most recent motion event arrived.
func (s *Session) LastMotion() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMotion
}

// TryAcquire attempts to take the single-flight lock. It never blocks; a
// false return means another run is in progress and the event must be dropped.
func (s *Session) TryAcquire() bool {
	return s.busy.CompareAndSwap(false, true)
}

// Release frees the single-flight lock.
func (s *Session) Release() {
	s.busy.Store(false)
}

// Busy reports whether a run currently holds the single-flight lock.
func (s *Session) Busy() bool {
	return s.busy.Load()
}
