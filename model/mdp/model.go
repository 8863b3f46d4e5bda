package mdp

import (
	"fmt"
	"math"
)

// Vector holds one float per state.
type Vector = [NumStates]float64

// Matrix holds a transition row per state.
type Matrix = [NumStates][NumStates]float64

// DefaultTransitions is the static transition model used by the scheduler.
var DefaultTransitions = Matrix{
	{0.1, 0.5, 0.4},
	{0.2, 0.4, 0.4},
	{0.2, 0.4, 0.4},
}

// SchedulerRewards rewards any move that services a queue.
var SchedulerRewards = Vector{0.0, 1.0, 1.0}

const rowSumTolerance = 1e-6

// Model is the static part of the decision process. It is read-only once
// handed to a System.
type Model struct {
	Transitions Matrix `json:"transitions" yaml:"transitions"`
	Rewards     Vector `json:"rewards" yaml:"rewards"`
}

// DefaultModel returns the scheduler model.
func DefaultModel() Model {
	return Model{Transitions: DefaultTransitions, Rewards: SchedulerRewards}
}

// Validate checks that every row is a probability distribution and every
// reward is finite.
func (m Model) Validate() error {
	for i, row := range m.Transitions {
		sum := 0.0
		for j, p := range row {
			if math.IsNaN(p) || p < 0 || p > 1 {
				return fmt.Errorf("%w: transition[%d][%d]=%v is not a probability", ErrInvalidModel, i, j, p)
			}
			sum += p
		}
		if math.Abs(sum-1) > rowSumTolerance {
			return fmt.Errorf("%w: transition row %d sums to %v", ErrInvalidModel, i, sum)
		}
	}
	for i, r := range m.Rewards {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return fmt.Errorf("%w: reward[%d]=%v", ErrInvalidModel, i, r)
		}
	}
	return nil
}

// ValidateDiscount checks that γ lies in [0,1).
func ValidateDiscount(discount float64) error {
	if math.IsNaN(discount) || discount < 0 || discount >= 1 {
		return fmt.Errorf("%w: %v not in [0,1)", ErrInvalidDiscount, discount)
	}
	return nil
}

// Backup applies one synchronous Bellman backup to values.
func Backup(m *Model, values Vector, discount float64) Vector {
	var result Vector
	for i := range result {
		best := math.Inf(-1)
		for d, p := range m.Transitions[i] {
			if v := p * (m.Rewards[d] + discount*values[d]); v > best {
				best = v
			}
		}
		result[i] = best
	}
	return result
}

// MeanAbsDiff returns mean(|a[i]-b[i]|).
func MeanAbsDiff(a, b Vector) float64 {
	sum := 0.0
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum / NumStates
}

// MeanDiff returns the signed mean(prev[i]-next[i]).
func MeanDiff(prev, next Vector) float64 {
	sum := 0.0
	for i := range prev {
		sum += prev[i] - next[i]
	}
	return sum / NumStates
}
