package player

import "github.com/samber/lo"

// Subscriptions owns the unbind functions of a session's event listeners
// and releases all of them exactly once.
type Subscriptions struct {
	unbinds  []func()
	bound    int
	unbound  int
	released bool
}

// Bind records an unbind function. Binding after Release unbinds immediately.
func (s *Subscriptions) Bind(unbind func()) {
	s.bound++
	if s.released {
		unbind()
		s.unbound++
		return
	}
	s.unbinds = append(s.unbinds, unbind)
}

// Release calls every unbind function. Later calls are no-ops.
func (s *Subscriptions) Release() {
	if s.released {
		return
	}
	s.released = true
	lo.ForEach(s.unbinds, func(unbind func(), _ int) {
		unbind()
		s.unbound++
	})
	s.unbinds = nil
}

// Released reports whether Release has run.
func (s *Subscriptions) Released() bool {
	return s.released
}

// Bound returns the number of Bind calls.
func (s *Subscriptions) Bound() int {
	return s.bound
}

// Unbound returns the number of unbind functions that have been called.
func (s *Subscriptions) Unbound() int {
	return s.unbound
}
