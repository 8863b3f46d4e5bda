// Package task defines the unit of deferred work moved between the
// dispatcher input queues and the per-worker queues. A Task wraps a single
// invoke-once function; ownership travels with the pointer.
package task
