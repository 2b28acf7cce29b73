package auth

import (
	"context"
	"sync"
	"time"
)

// SessionEvent reports a change of a session's authentication state
type SessionEvent struct {
	SessionID     string    `json:"session_id"`
	UserID        string    `json:"user_id"`
	Authenticated bool      `json:"authenticated"`
	At            time.Time `json:"at"`
}

// Ends reports whether ev signs out the given session. An event without a
// SessionID applies to every session of its UserID.
func (ev SessionEvent) Ends(sessionID, userID string) bool {
	if ev.Authenticated {
		return false
	}
	if ev.SessionID == "" {
		return ev.UserID != "" && ev.UserID == userID
	}
	return ev.SessionID == sessionID
}

// Signal is the process-wide authentication state cell. The auth service is
// its only writer; any number of readers subscribe and get events pushed.
// Readers never mutate it.
type Signal struct {
	mu     sync.RWMutex
	subs   map[uint64]chan SessionEvent
	next   uint64
	closed bool
}

// NewSignal creates an empty Signal
func NewSignal() *Signal {
	return &Signal{subs: make(map[uint64]chan SessionEvent)}
}

// Publish fans ev out to all subscribers. A subscriber whose buffer is full
// misses the event; the writer never blocks.
func (s *Signal) Publish(ev SessionEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a reader. The returned cancel func unregisters it and
// closes the channel; it is safe to call more than once.
func (s *Signal) Subscribe(buffer int) (<-chan SessionEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan SessionEvent, buffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of registered readers
func (s *Signal) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Close unregisters and closes every subscriber
func (s *Signal) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// Watch streams the authenticated state of one session of userID: true first,
// then false once the session is logged out, the user is signed out as a whole
// or expiresAt passes. The channel is closed after false is sent or when ctx
// ends.
func (s *Signal) Watch(ctx context.Context, sessionID, userID string, expiresAt time.Time) <-chan bool {
	out := make(chan bool, 2)
	events, cancel := s.Subscribe(8)

	go func() {
		defer close(out)
		defer cancel()

		out <- true

		expiry := time.NewTimer(time.Until(expiresAt))
		defer expiry.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-expiry.C:
				out <- false
				return
			case ev, ok := <-events:
				if !ok {
					out <- false
					return
				}
				if ev.Ends(sessionID, userID) {
					out <- false
					return
				}
			}
		}
	}()

	return out
}
