package pipeline

import "sync"

type subscription struct {
	name    string
	release func()
}

// Subscriptions collects everything an instance registered with the outside
// world so it can all be released by one DisposeAll.
type Subscriptions struct {
	mu       sync.Mutex
	entries  []subscription
	disposed bool
}

// Add records a release function. Adding after DisposeAll releases
// immediately.
func (s *Subscriptions) Add(name string, release func()) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		release()
		return
	}
	s.entries = append(s.entries, subscription{name: name, release: release})
	s.mu.Unlock()
}

// Len returns the number of live subscriptions.
func (s *Subscriptions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Names returns live subscription names in registration order.
func (s *Subscriptions) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.name
	}
	return names
}

// DisposeAll releases every subscription in reverse registration order.
// Only the first call does anything; it reports whether it ran.
func (s *Subscriptions) DisposeAll() bool {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false
	}
	s.disposed = true
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	for i := len(entries) - 1; i >= 0; i-- {
		entries[i].release()
	}
	return true
}
