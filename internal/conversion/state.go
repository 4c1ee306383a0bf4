package conversion

import "fmt"

// State is a stage of the adaptive encode loop.
type State string

const (
	// StateIdle is the initial state before any work.
	StateIdle State = "IDLE"
	// StateExtracting indicates frames are being sampled from the source.
	StateExtracting State = "EXTRACTING"
	// StateEncoding indicates sampled frames are being written as a GIF.
	StateEncoding State = "ENCODING"
	// StateSizeCheck indicates the artifact size is compared to the budget.
	StateSizeCheck State = "SIZE_CHECK"
	// StateRetrying indicates a reduced plan has been derived.
	StateRetrying State = "RETRYING"
	// StateDone indicates an artifact within budget was produced.
	StateDone State = "DONE"
	// StateFailed indicates the loop stopped with an error.
	StateFailed State = "FAILED"
)

// validTransitions defines which state transitions are allowed.
var validTransitions = map[State][]State{
	StateIdle:       {StateExtracting, StateFailed},
	StateExtracting: {StateEncoding, StateFailed},
	StateEncoding:   {StateSizeCheck, StateFailed},
	StateSizeCheck:  {StateDone, StateRetrying, StateFailed},
	StateRetrying:   {StateExtracting, StateFailed},
	StateDone:       {},
	StateFailed:     {},
}

// canTransition checks if a transition from one state to another is valid.
func canTransition(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no transition leaves s.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// machine tracks the state of one adaptive encode.
type machine struct {
	state State
}

func newMachine() *machine {
	return &machine{state: StateIdle}
}

// to moves the machine to next or returns ErrInvalidTransition.
func (m *machine) to(next State) error {
	if !canTransition(m.state, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, next)
	}
	m.state = next
	return nil
}

// fail moves the machine to StateFailed unless it is already terminal.
func (m *machine) fail() {
	if !m.state.IsTerminal() {
		m.state = StateFailed
	}
}
