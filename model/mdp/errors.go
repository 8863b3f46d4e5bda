package mdp

import "errors"

var (
	// ErrInvalidModel is returned when transition probabilities or rewards are malformed.
	ErrInvalidModel = errors.New("mdp: invalid model")

	// ErrInvalidDiscount is returned for a discount factor outside [0,1).
	ErrInvalidDiscount = errors.New("mdp: invalid discount factor")

	// ErrNotConverged is returned when Converge exhausts its step budget.
	ErrNotConverged = errors.New("mdp: value iteration did not converge")
)
