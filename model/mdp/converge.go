package mdp

import (
	"fmt"
	"math"
)

// DiffFunc measures the change between two successive value tables.
type DiffFunc func(prev, next Vector) float64

// Result is the outcome of an offline value iteration run.
type Result struct {
	Values Vector
	Steps  int
	Diff   float64
}

// Converge iterates Backup from an all-zero table until |diff| < threshold.
// A maxSteps of zero means no limit. When diff is nil MeanAbsDiff is used.
func Converge(m Model, discount, threshold float64, maxSteps int, diff DiffFunc) (Result, error) {
	if err := m.Validate(); err != nil {
		return Result{}, err
	}
	if err := ValidateDiscount(discount); err != nil {
		return Result{}, err
	}
	if diff == nil {
		diff = MeanAbsDiff
	}
	var result Result
	for {
		next := Backup(&m, result.Values, discount)
		result.Diff = diff(result.Values, next)
		result.Values = next
		result.Steps++
		if math.Abs(result.Diff) < threshold {
			return result, nil
		}
		if maxSteps > 0 && result.Steps >= maxSteps {
			return result, fmt.Errorf("%w after %d steps (diff %v)", ErrNotConverged, result.Steps, result.Diff)
		}
	}
}
