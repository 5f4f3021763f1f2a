package auth

import (
	"sync"

	"nexuslab/models"
)

// Principal is the authenticated User/Profile pair making a request.
type Principal struct {
	User    models.User
	Profile models.Profile
}

// IsAdmin derives the authorization gate from the profile row. A missing
// profile flag means not admin, never an error.
func (p *Principal) IsAdmin() bool {
	if p == nil {
		return false
	}
	return p.Profile.IsAdmin
}

type Event string

const (
	EventSignedIn  Event = "signed_in"
	EventSignedOut Event = "signed_out"
)

// SessionStore tracks the currently signed-in principals and notifies
// subscribers on auth state changes. It is the server-side counterpart of a
// session context: components that care about sign-in/sign-out register a
// listener instead of reading ambient global state.
type SessionStore struct {
	mu          sync.RWMutex
	principals  map[string]*Principal
	subscribers map[int]func(Event, *Principal)
	nextSub     int
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		principals:  make(map[string]*Principal),
		subscribers: make(map[int]func(Event, *Principal)),
	}
}

// Subscribe registers a listener for auth state changes. The returned
// function removes the subscription.
func (s *SessionStore) Subscribe(fn func(Event, *Principal)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// SignedIn records a principal and notifies subscribers.
func (s *SessionStore) SignedIn(p *Principal) {
	s.mu.Lock()
	s.principals[p.User.ID] = p
	listeners := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(EventSignedIn, p)
	}
}

// SignedOut removes a principal and notifies subscribers. Signing out an
// unknown user is a no-op.
func (s *SessionStore) SignedOut(userID string) {
	s.mu.Lock()
	p, ok := s.principals[userID]
	if ok {
		delete(s.principals, userID)
	}
	listeners := s.snapshotLocked()
	s.mu.Unlock()

	if !ok {
		return
	}
	for _, fn := range listeners {
		fn(EventSignedOut, p)
	}
}

// Current returns the principal recorded for a user id, if signed in.
func (s *SessionStore) Current(userID string) (*Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[userID]
	return p, ok
}

func (s *SessionStore) snapshotLocked() []func(Event, *Principal) {
	listeners := make([]func(Event, *Principal), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	return listeners
}
