package store

import (
	"sync"
	"sync/atomic"
)

// Store holds a single state snapshot and notifies subscribers when it is
// replaced. The zero value is not usable; construct with New.
type Store[T any] struct {
	// writeMu serializes writers so an updater always sees the latest state.
	writeMu sync.Mutex

	mu        sync.RWMutex
	state     T
	listeners []*listener
	queue     [][]*listener
	draining  bool
}

type listener struct {
	fn     func()
	active atomic.Bool
}

// New returns a Store holding initial.
func New[T any](initial T) *Store[T] {
	return &Store[T]{state: initial}
}

// Get returns the current snapshot.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Set replaces the state with v and notifies subscribers.
func (s *Store[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update replaces the state with fn(current) and notifies subscribers.
//
// If fn panics the panic propagates and the state is left unchanged. fn must
// not write to the same store; reading through Get is fine.
func (s *Store[T]) Update(fn func(T) T) {
	s.adopt(fn)
	s.drain()
}

// Stage adopts fn(current) immediately but holds back the notification until
// the returned function is called. Callers that must change the state while
// holding a lock of their own use it to notify after releasing that lock.
// Passes stay in adoption order whichever way they are delivered.
func (s *Store[T]) Stage(fn func(T) T) (notify func()) {
	s.adopt(fn)
	return s.drain
}

func (s *Store[T]) adopt(fn func(T) T) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := fn(s.Get())

	s.mu.Lock()
	s.state = next
	if len(s.listeners) > 0 {
		pass := make([]*listener, len(s.listeners))
		copy(pass, s.listeners)
		s.queue = append(s.queue, pass)
	}
	s.mu.Unlock()
}

// drain delivers queued notification passes in adoption order. Only one
// goroutine drains at a time; a write made while a drain is running (for
// example from inside a listener) is delivered by that drain once the
// current pass completes.
func (s *Store[T]) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		pass := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()
		s.deliver(pass)
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}

func (s *Store[T]) deliver(pass []*listener) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.draining = false
			s.mu.Unlock()
			panic(r)
		}
	}()
	for _, l := range pass {
		if l.active.Load() {
			l.fn()
		}
	}
}

// Subscribe registers fn to run after every state change and returns a
// function that removes it. Calling the returned function more than once is
// harmless.
func (s *Store[T]) Subscribe(fn func()) func() {
	l := &listener{fn: fn}
	l.active.Store(true)

	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()

	return func() {
		if !l.active.Swap(false) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, cur := range s.listeners {
			if cur == l {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				break
			}
		}
	}
}

// Len reports how many listeners are registered.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// Select reads a projection of the current state.
func Select[T, U any](s *Store[T], pick func(T) U) U {
	return pick(s.Get())
}
