package progress

import (
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the dispatcher
// or a worker. Fields are signed.
type Delta struct {
	Submitted int
	Routed    int
	Completed int
	Failed    int
	Running   int
}

// Counters is a point-in-time copy of the tracked values.
type Counters struct {
	StartedAt time.Time

	SubmittedTasks int
	RoutedTasks    int
	CompletedTasks int
	FailedTasks    int
	RunningTasks   int
}

// Progress keeps aggregated task counters. It is safe for concurrent use.
type Progress struct {
	mu       sync.Mutex
	counters Counters
	onChange func(Counters)
}

// New creates a tracker started now.
func New() *Progress {
	return &Progress{counters: Counters{StartedAt: time.Now()}}
}

// Update applies the supplied delta. The onChange callback, if any, receives
// a copy outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.counters.SubmittedTasks += d.Submitted
	p.counters.RoutedTasks += d.Routed
	p.counters.CompletedTasks += d.Completed
	p.counters.FailedTasks += d.Failed
	p.counters.RunningTasks += d.Running
	snapshot := p.counters
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy suitable for read-only inspection.
func (p *Progress) Snapshot() Counters {
	if p == nil {
		return Counters{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counters
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables it.
func (p *Progress) OnChange(cb func(Counters)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onChange = cb
	p.mu.Unlock()
}
