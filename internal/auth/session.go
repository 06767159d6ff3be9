// Package auth supplies the current user to the booking core. Signing in and
// out happens elsewhere; the core only asks who is signed in right now.
package auth

import "sync"

type Session interface {
	CurrentUserID() (string, bool)
}

// StaticSession is a fixed identity, typically taken from a verified bearer
// token. The empty value means nobody is signed in.
type StaticSession string

func (s StaticSession) CurrentUserID() (string, bool) {
	return string(s), s != ""
}

type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
)

type Event struct {
	Kind   EventKind
	UserID string
}

// MemorySession tracks one signed-in user and broadcasts changes to
// subscribers. Safe for concurrent use.
type MemorySession struct {
	mu     sync.RWMutex
	userID string
	subs   map[int]chan Event
	nextID int
}

func NewMemorySession() *MemorySession {
	return &MemorySession{subs: make(map[int]chan Event)}
}

func (s *MemorySession) CurrentUserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != ""
}

func (s *MemorySession) SignIn(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.publish(Event{Kind: EventSignedIn, UserID: userID})
}

func (s *MemorySession) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == "" {
		return
	}
	prev := s.userID
	s.userID = ""
	s.publish(Event{Kind: EventSignedOut, UserID: prev})
}

// Subscribe returns a buffered event stream and a func that closes it.
// Events are dropped for a subscriber whose buffer is full.
func (s *MemorySession) Subscribe(buffer int) (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Event, buffer)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// publish must be called with mu held.
func (s *MemorySession) publish(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
