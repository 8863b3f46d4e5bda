// Package valueiter re-estimates the decision system value table from
// inside the dispatcher. Each step is a task; a step that has not converged
// publishes exactly one successor onto the normal queue.
package valueiter
