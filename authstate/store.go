package authstate

import (
	"context"
	"sync"
)

// State is the view model a UserStore exposes.
type State struct {
	User            Session
	IsAuthenticated bool
	IsLoading       bool
}

// UserStore binds one observer to a Manager and keeps the latest State for
// views. It starts out loading until the Manager has heard from its source.
type UserStore struct {
	mu        sync.RWMutex
	state     State
	listeners map[uint64]func(State)
	nextID    uint64
	unbind    func()

	ready     chan struct{}
	readyOnce sync.Once
}

// NewUserStore returns a loading, signed out store.
func NewUserStore() *UserStore {
	return &UserStore{
		state:     State{User: SignedOut(), IsLoading: true},
		listeners: make(map[uint64]func(State)),
		ready:     make(chan struct{}),
	}
}

// Bind registers the store as an observer of manager, replacing any previous
// binding. The manager replays its cached Session immediately.
func (s *UserStore) Bind(manager *Manager) {
	s.Unbind()

	unbind := manager.Subscribe(func(session Session) {
		s.set(session, !manager.IsResolved())
	})

	s.mu.Lock()
	s.unbind = unbind
	s.mu.Unlock()
}

// Unbind releases the manager registration.
func (s *UserStore) Unbind() {
	s.mu.Lock()
	unbind := s.unbind
	s.unbind = nil
	s.mu.Unlock()

	if unbind != nil {
		unbind()
	}
}

// State returns a snapshot of the store.
func (s *UserStore) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the held session.
func (s *UserStore) User() Session {
	return s.State().User
}

// IsAuthenticated reports whether a user is signed in.
func (s *UserStore) IsAuthenticated() bool {
	return s.State().IsAuthenticated
}

// IsLoading reports whether the session source has not resolved yet.
func (s *UserStore) IsLoading() bool {
	return s.State().IsLoading
}

// OnChange registers fn to run after every state change and returns a
// function that removes it.
func (s *UserStore) OnChange(fn func(State)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// WaitReady blocks until the store stops loading or ctx is done.
func (s *UserStore) WaitReady(ctx context.Context) (State, error) {
	select {
	case <-s.ready:
		return s.State(), nil
	case <-ctx.Done():
		return s.State(), ctx.Err()
	}
}

func (s *UserStore) set(session Session, loading bool) {
	next := State{
		User:            session,
		IsAuthenticated: session.IsSignedIn(),
		IsLoading:       loading,
	}

	s.mu.Lock()
	s.state = next
	listeners := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	if !loading {
		s.readyOnce.Do(func() { close(s.ready) })
	}

	for _, fn := range listeners {
		fn(next)
	}
}
