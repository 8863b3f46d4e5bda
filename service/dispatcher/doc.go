// Package dispatcher owns the two input queues and runs the control loop
// that asks the decision system which queue to service next, pops one task
// from it and routes the task to the least loaded worker.
package dispatcher
