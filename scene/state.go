package scene

import (
	"fmt"
	"slices"
)

// State is a step of one analysis
type State int

const (
	StateIdle State = iota
	StateDecoding
	StateExtracting
	StateClassifying
	StateComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDecoding:
		return "decoding"
	case StateExtracting:
		return "extracting"
	case StateClassifying:
		return "classifying"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError
}

var transitions = map[State][]State{
	StateIdle:        {StateDecoding, StateError},
	StateDecoding:    {StateExtracting, StateError},
	StateExtracting:  {StateClassifying, StateError},
	StateClassifying: {StateComplete, StateError},
}

// StateFunc observes state transitions of an analysis
type StateFunc func(jobID string, from, to State)

// stateMachine is owned by a single Analyze call
type stateMachine struct {
	jobID    string
	state    State
	history  []State
	observer StateFunc
}

func newStateMachine(jobID string, observer StateFunc) *stateMachine {
	return &stateMachine{
		jobID:    jobID,
		state:    StateIdle,
		history:  []State{StateIdle},
		observer: observer,
	}
}

func (m *stateMachine) to(next State) error {
	if !slices.Contains(transitions[m.state], next) {
		return fmt.Errorf("illegal transition %s -> %s", m.state, next)
	}
	prev := m.state
	m.state = next
	m.history = append(m.history, next)
	if m.observer != nil {
		m.observer(m.jobID, prev, next)
	}
	return nil
}

// fail moves to StateError unless already terminal
func (m *stateMachine) fail() {
	if !m.state.Terminal() {
		_ = m.to(StateError)
	}
}
