// Package calculator runs offline value iteration over a three state model
// for one or more discount factors and exports the converged values as CSV.
package calculator
