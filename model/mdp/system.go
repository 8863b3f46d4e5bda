package mdp

import (
	"math"
	"sync"
)

// Weigher adjusts the policy score of a candidate state given the external
// queue observation. It is the hook for backpressure aware policies; the
// baseline policy has none and ignores ExtState.
type Weigher func(ext ExtState, candidate State, score float64) float64

// SystemOption configures a System.
type SystemOption func(s *System)

// WithWeigher installs an ExtState aware score adjustment.
func WithWeigher(w Weigher) SystemOption {
	return func(s *System) {
		s.weigher = w
	}
}

// System is the decision system shared by the dispatcher and the value
// iteration task. All access to state and values goes through mu; the model
// is immutable.
type System struct {
	mu      sync.RWMutex
	state   State
	values  Vector
	model   Model
	weigher Weigher
}

// New creates a system with zero values in the Idle state.
func New(model Model, options ...SystemOption) *System {
	s := &System{model: model, state: Idle}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Init seeds the value table with one backup pass.
func (s *System) Init(discount float64) *System {
	s.mu.Lock()
	s.values = Backup(&s.model, s.values, discount)
	s.mu.Unlock()
	return s
}

// ComputeValues returns the backup of the current value table without
// committing it.
func (s *System) ComputeValues(discount float64) Vector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Backup(&s.model, s.values, discount)
}

// Step computes and commits a backup inside a single exclusive section and
// returns the committed values together with the mean absolute change.
func (s *System) Step(discount float64) (Vector, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := Backup(&s.model, s.values, discount)
	diff := MeanAbsDiff(next, s.values)
	s.values = next
	return next, diff
}

// Decide picks the next state among those different from the current one,
// maximising P[current][c]*V[c]. Ties go to the lowest index.
func (s *System) Decide(ext ExtState) Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	current := s.state
	best := State(-1)
	bestScore := math.Inf(-1)
	for c := State(0); int(c) < NumStates; c++ {
		if c == current {
			continue
		}
		score := s.model.Transitions[current][c] * s.values[c]
		if s.weigher != nil {
			score = s.weigher(ext, c, score)
		}
		if best == -1 || score > bestScore {
			best, bestScore = c, score
		}
	}
	if best == -1 {
		panic("mdp: no candidate action for state " + current.String())
	}
	return Action{state: best}
}

// SetState records the action taken.
func (s *System) SetState(state State) {
	if !state.Valid() {
		panic("mdp: invalid state " + state.String())
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// State returns the current state.
func (s *System) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Values returns a copy of the value table.
func (s *System) Values() Vector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

// Rewards returns the reward vector.
func (s *System) Rewards() Vector {
	return s.model.Rewards
}

// Model returns a copy of the static model.
func (s *System) Model() Model {
	return s.model
}
