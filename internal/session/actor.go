package session

import "sync"

// Actor is the authenticated operator's display identity. It is populated
// once at login and only changes through an explicit login, logout or refresh.
type Actor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Store holds the current actor for the gateway process. Readers get a copy;
// nothing outside this package mutates it.
type Store struct {
	mu    sync.RWMutex
	actor *Actor
}

func NewStore() *Store {
	return &Store{}
}

// Current returns the actor, if someone is logged in.
func (s *Store) Current() (Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.actor == nil {
		return Actor{}, false
	}
	return *s.actor, true
}

// Set replaces the actor after a successful login or refresh.
func (s *Store) Set(a Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actor = &a
}

// Clear drops the actor on logout. Idempotent.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actor = nil
}
