package player

import (
	"errors"
	"fmt"
	"slices"
)

// State is the playback state of a session.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StatePlaying       State = "playing"
	StatePaused        State = "paused"
	StateFailed        State = "failed"
	StateDestroyed     State = "destroyed"
)

var ErrInvalidTransition = errors.New("invalid state transition")

var transitions = map[State][]State{
	StateUninitialized: {StateLoading, StateDestroyed},
	StateLoading:       {StateReady, StateFailed, StateDestroyed},
	StateReady:         {StatePlaying, StateDestroyed},
	StatePlaying:       {StatePaused, StateDestroyed},
	StatePaused:        {StatePlaying, StateDestroyed},
	StateFailed:        {StateDestroyed},
	StateDestroyed:     nil,
}

// Terminal reports whether no further transitions are possible from s,
// other than teardown.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateDestroyed
}

// Machine guards the transitions between playback states.
type Machine struct {
	state       State
	initialized bool
	onChange    func(from, to State)
}

// NewMachine returns a machine in StateUninitialized.
// onChange, if non-nil, is called after every successful transition.
func NewMachine(onChange func(from, to State)) *Machine {
	return &Machine{state: StateUninitialized, onChange: onChange}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Initialized becomes true on the loading to ready transition and never reverts.
func (m *Machine) Initialized() bool {
	return m.initialized
}

// Can reports whether a transition to next is allowed.
func (m *Machine) Can(next State) bool {
	return slices.Contains(transitions[m.state], next)
}

// Transition moves to next or returns ErrInvalidTransition.
func (m *Machine) Transition(next State) error {
	if !m.Can(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, next)
	}
	from := m.state
	m.state = next
	if from == StateLoading && next == StateReady {
		m.initialized = true
	}
	if m.onChange != nil {
		m.onChange(from, next)
	}
	return nil
}
