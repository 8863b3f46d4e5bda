package mdp

import "strconv"

// NumStates is the size of the state space.
const NumStates = 3

// State is the operating mode of the dispatcher.
type State int

const (
	// Idle dispatches nothing.
	Idle State = iota
	// DoQueue services the normal queue.
	DoQueue
	// DoImmediate services the immediate queue.
	DoImmediate
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case DoQueue:
		return "queue"
	case DoImmediate:
		return "immediate"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Valid reports whether s is inside the state space.
func (s State) Valid() bool {
	return s >= 0 && int(s) < NumStates
}

// Action is the policy's decision: the state to move into next.
type Action struct {
	state State
}

// State returns the destination state of the action.
func (a Action) State() State { return a.state }

func (a Action) String() string { return a.state.String() }

// ExtState is the external observation handed to the policy: the depth of
// both input queues at decision time.
type ExtState struct {
	Normal    int
	Immediate int
}
