// Package shutdown provides an explicit, shareable request-to-stop signal.
package shutdown

import (
	"sync"
	"time"
)

// Signal is closed once shutdown has been requested. The first request wins;
// later requests, delayed or not, are ignored.
type Signal struct {
	mu        sync.Mutex
	requested bool
	done      chan struct{}
	closeOnce sync.Once
}

// New constructs an unrequested Signal.
func New() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Request fires the signal immediately.
func (s *Signal) Request() {
	s.RequestAfter(0)
}

// RequestAfter fires the signal once delay has elapsed. It reports whether
// this call was the one that scheduled shutdown.
func (s *Signal) RequestAfter(delay time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.requested {
		return false
	}
	s.requested = true

	if delay <= 0 {
		s.fire()
		return true
	}

	time.AfterFunc(delay, s.fire)
	return true
}

// Requested reports whether shutdown was requested, even if still pending.
func (s *Signal) Requested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested
}

// Done is closed when the signal fires.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

func (s *Signal) fire() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
