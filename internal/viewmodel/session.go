package viewmodel

import (
	"sync"
	"time"

	"calgrid/internal/calendar"
	"calgrid/internal/clock"
	"calgrid/internal/events"
)

// DefaultSubmitDelay is the simulated latency of an add-event request.
const DefaultSubmitDelay = 200 * time.Millisecond

// Outcome of a submit request.
type Outcome int

const (
	// Accepted means the request is queued and will apply after the delay.
	Accepted Outcome = iota
	// Busy means another request is in flight; this one was dropped.
	Busy
	// Rejected means the title was blank or no day was selected.
	Rejected
	// Closed means the session was torn down.
	Closed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Busy:
		return "busy"
	case Rejected:
		return "rejected"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session owns one State shared between goroutines (HTTP handlers and the
// submit timer). At most one submission is in flight at a time; Close
// cancels it so nothing applies after teardown.
type Session struct {
	clock clock.Clock
	delay time.Duration

	mu      sync.Mutex
	state   State
	timer   clock.Timer
	gen     uint64
	closed  bool
	applied func(Submission)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDelay overrides DefaultSubmitDelay. Negative values are treated as zero.
func WithDelay(d time.Duration) SessionOption {
	return func(s *Session) {
		if d < 0 {
			d = 0
		}
		s.delay = d
	}
}

// OnApplied registers a callback invoked, outside the lock, after a
// submission has been applied.
func OnApplied(fn func(Submission)) SessionOption {
	return func(s *Session) { s.applied = fn }
}

// NewSession starts a session at the month of c.Now().
func NewSession(c clock.Clock, opts ...SessionOption) *Session {
	if c == nil {
		c = clock.Real()
	}
	s := &Session{
		clock: c,
		delay: DefaultSubmitDelay,
		state: New(c.Now()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clock returns the session's clock.
func (s *Session) Clock() clock.Clock { return s.clock }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn to the current state and stores the result.
func (s *Session) Update(fn func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
	return s.state
}

// Submit queues the current input of the selected day. The record is
// appended after the configured delay.
func (s *Session) Submit() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitLocked()
}

// SubmitInput replaces the input with text and submits it in one step, so
// concurrent callers cannot interleave between the two.
func (s *Session) SubmitInput(text string) Outcome {
	return s.SubmitFor(nil, text)
}

// SubmitFor selects d (when non-nil), sets the input to text and submits,
// all under one lock. The state only changes when the outcome is Accepted.
func (s *Session) SubmitFor(d *calendar.Date, text string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Closed
	}
	if s.state.Pending {
		return Busy
	}
	st := s.state
	if d != nil {
		st = st.Select(*d)
	}
	next, sub, ok := st.SetInput(text).BeginSubmit()
	if !ok {
		return Rejected
	}
	s.state = next
	s.schedule(sub)
	return Accepted
}

func (s *Session) submitLocked() Outcome {
	if s.closed {
		return Closed
	}
	if s.state.Pending {
		return Busy
	}
	next, sub, ok := s.state.BeginSubmit()
	if !ok {
		return Rejected
	}
	s.state = next
	s.schedule(sub)
	return Accepted
}

// schedule arms the delayed apply of sub. The caller holds mu.
func (s *Session) schedule(sub Submission) {
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.delay, func() { s.apply(gen, sub) })
}

func (s *Session) apply(gen uint64, sub Submission) {
	s.mu.Lock()
	// A stopped or superseded timer must not apply.
	if s.closed || s.timer == nil || s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.state = s.state.CompleteSubmit(sub, events.NewID(sub.Date.Key()))
	s.timer = nil
	cb := s.applied
	s.mu.Unlock()

	if cb != nil {
		cb(sub)
	}
}

// Close cancels a pending submission. Further submits report Closed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = s.state.CancelSubmit()
}
