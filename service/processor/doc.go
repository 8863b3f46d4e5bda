// Package processor hosts the workers that execute tasks. Every worker owns
// a FIFO queue fed by the dispatcher and runs one task at a time; a failing
// or panicking task is reported and never takes its worker down.
package processor
