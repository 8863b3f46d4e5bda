// Package progress keeps the aggregated task counters of a running
// dispatcher: how many tasks were submitted, routed to workers, completed
// or failed, and how many are running right now.
package progress
