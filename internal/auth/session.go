// Package auth holds the authenticated-actor session the polling loop keys off.
package auth

import (
	"sync"

	"ordersync/internal/core"
)

// Session tracks the currently authenticated actor and broadcasts presence
// transitions. Subscribers receive the actor on login and nil on logout.
type Session struct {
	mu     sync.RWMutex
	actor  *core.Actor
	subs   []chan *core.Actor
	logger core.Logger
}

// NewSession creates an unauthenticated session.
func NewSession(logger core.Logger) *Session {
	return &Session{
		logger: logger.WithField("component", "session"),
	}
}

// Actor returns the current actor, or nil when unauthenticated.
func (s *Session) Actor() *core.Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actor
}

// Authenticated reports whether an actor is present.
func (s *Session) Authenticated() bool {
	return s.Actor() != nil
}

// Login installs the actor and notifies subscribers.
func (s *Session) Login(actor *core.Actor) {
	s.mu.Lock()
	s.actor = actor
	subs := append([]chan *core.Actor(nil), s.subs...)
	s.mu.Unlock()

	s.logger.Info("Actor authenticated", "actor_id", actor.ID, "role", actor.Role)
	s.broadcast(subs, actor)
}

// Logout clears the actor and notifies subscribers with nil.
func (s *Session) Logout() {
	s.mu.Lock()
	prev := s.actor
	s.actor = nil
	subs := append([]chan *core.Actor(nil), s.subs...)
	s.mu.Unlock()

	if prev != nil {
		s.logger.Info("Actor logged out", "actor_id", prev.ID)
	}
	s.broadcast(subs, nil)
}

// broadcast never blocks on a stalled subscriber; a transition that does not
// fit its buffer is dropped and logged.
func (s *Session) broadcast(subs []chan *core.Actor, actor *core.Actor) {
	for _, ch := range subs {
		select {
		case ch <- actor:
		default:
			s.logger.Warn("Dropped presence transition for slow subscriber")
		}
	}
}

// Subscribe returns a channel of presence transitions. The channel is
// buffered so a slow subscriber cannot block Login/Logout for long, but
// subscribers are expected to drain it promptly.
func (s *Session) Subscribe() <-chan *core.Actor {
	ch := make(chan *core.Actor, 8)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}
