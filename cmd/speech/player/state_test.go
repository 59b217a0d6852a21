package player

import (
	"errors"
	"testing"
)

func TestMachine_Transitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
		ok   bool
	}{
		{StateUninitialized, StateLoading, true},
		{StateUninitialized, StateReady, false},
		{StateLoading, StateReady, true},
		{StateLoading, StateFailed, true},
		{StateLoading, StatePlaying, false},
		{StateReady, StatePlaying, true},
		{StateReady, StatePaused, false},
		{StatePlaying, StatePaused, true},
		{StatePaused, StatePlaying, true},
		{StateFailed, StateReady, false},
		{StateFailed, StateDestroyed, true},
		{StateDestroyed, StateLoading, false},
		{StateDestroyed, StateDestroyed, false},
	}

	for _, tt := range tests {
		m := &Machine{state: tt.from}
		err := m.Transition(tt.to)
		if tt.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tt.from, tt.to, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s -> %s: error = %v, want ErrInvalidTransition", tt.from, tt.to, err)
		}
		if !tt.ok && m.State() != tt.from {
			t.Errorf("%s -> %s: state changed to %s on rejected transition", tt.from, tt.to, m.State())
		}
	}
}

func TestMachine_AnyStateCanBeDestroyed(t *testing.T) {
	for _, s := range []State{StateUninitialized, StateLoading, StateReady, StatePlaying, StatePaused, StateFailed} {
		m := &Machine{state: s}
		if err := m.Transition(StateDestroyed); err != nil {
			t.Errorf("%s -> destroyed: %v", s, err)
		}
	}
}

func TestMachine_InitializedOnce(t *testing.T) {
	var changes []State
	m := NewMachine(func(_, to State) { changes = append(changes, to) })
	if m.Initialized() {
		t.Fatal("new machine should not be initialized")
	}

	steps := []State{StateLoading, StateReady, StatePlaying, StatePaused, StatePlaying, StatePaused}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
		if s != StateLoading && !m.Initialized() {
			t.Fatalf("initialized reverted at %s", s)
		}
	}
	if len(changes) != len(steps) {
		t.Errorf("onChange called %d times, want %d", len(changes), len(steps))
	}

	if err := m.Transition(StateDestroyed); err != nil {
		t.Fatal(err)
	}
	if !m.State().Terminal() {
		t.Error("destroyed should be terminal")
	}
}
