package task

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/viant/markov/internal/clock"
	"github.com/viant/markov/internal/idgen"
)

// Func is the suspended computation carried by a Task.
type Func func(ctx context.Context) error

// Task is a one-shot unit of work. The dispatcher never observes its result;
// any effect happens through shared state touched by Func.
type Task struct {
	ID        string
	Name      string
	CreatedAt time.Time

	fn       Func
	consumed atomic.Bool
}

// New creates a task with a fresh identifier.
func New(name string, fn Func) *Task {
	return &Task{
		ID:        idgen.WithPrefix("task"),
		Name:      name,
		CreatedAt: clock.Now(),
		fn:        fn,
	}
}

// Run invokes the task function. Only the first call runs it; later calls
// return ErrConsumed.
func (t *Task) Run(ctx context.Context) error {
	if !t.consumed.CompareAndSwap(false, true) {
		return ErrConsumed
	}
	if t.fn == nil {
		return ErrNilFunc
	}
	return t.fn(ctx)
}

// Consumed reports whether Run has been called.
func (t *Task) Consumed() bool {
	return t.consumed.Load()
}

// String returns a short human readable description.
func (t *Task) String() string {
	if t.Name == "" {
		return t.ID
	}
	return t.Name + "(" + t.ID + ")"
}
