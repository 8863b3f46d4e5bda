package markov

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/viant/markov/model/mdp"
	"github.com/viant/markov/model/task"
	"github.com/viant/markov/progress"
	"github.com/viant/markov/service/dispatcher"
	"github.com/viant/markov/service/messaging/memory"
	"github.com/viant/markov/service/processor"
	"github.com/viant/markov/service/valueiter"
)

// Runtime represents a running (or ready to run) dispatcher
type Runtime struct {
	logger     *slog.Logger
	tracker    *progress.Progress
	system     *mdp.System
	normal     *memory.Queue[task.Task]
	immediate  *memory.Queue[task.Task]
	processor  *processor.Service
	dispatcher *dispatcher.Service
	valueIter  *valueiter.Service

	mu      sync.Mutex
	group   *errgroup.Group
	cancel  context.CancelFunc
	started bool
}

// Launch seeds the value iteration task, starts the workers and runs the
// dispatcher loop. It blocks until ctx is done (returning nil) or a fatal
// error stops the dispatcher.
func (r *Runtime) Launch(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	return r.Wait()
}

// Start launches the runtime in the background; use Wait or Shutdown to
// stop it.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("runtime already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(ctx)

	if err := r.valueIter.Seed(groupCtx); err != nil {
		cancel()
		return fmt.Errorf("failed to seed value iteration: %w", err)
	}
	if err := r.processor.Start(groupCtx); err != nil {
		cancel()
		return err
	}
	group.Go(func() error {
		return r.dispatcher.Launch(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		r.processor.Shutdown()
		return nil
	})
	r.group, r.cancel, r.started = group, cancel, true
	return nil
}

// Wait blocks until the runtime stops and returns the fatal error, if any.
func (r *Runtime) Wait() error {
	r.mu.Lock()
	group := r.group
	r.mu.Unlock()
	if group == nil {
		return fmt.Errorf("runtime not started")
	}
	err := group.Wait()
	if err != nil {
		r.logger.Error("runtime stopped", "error", err)
	}
	return err
}

// Shutdown stops the dispatcher and the workers, waiting at most until ctx
// is done.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	done := make(chan error, 1)
	go func() { done <- r.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues fn on the normal queue.
func (r *Runtime) Submit(ctx context.Context, name string, fn task.Func) (*task.Task, error) {
	aTask := task.New(name, fn)
	return aTask, r.dispatcher.Submit(ctx, aTask)
}

// SubmitImmediate queues fn on the immediate queue.
func (r *Runtime) SubmitImmediate(ctx context.Context, name string, fn task.Func) (*task.Task, error) {
	aTask := task.New(name, fn)
	return aTask, r.dispatcher.SubmitImmediate(ctx, aTask)
}

// Values returns the current value table.
func (r *Runtime) Values() mdp.Vector {
	return r.system.Values()
}

// State returns the last action taken by the dispatcher.
func (r *Runtime) State() mdp.State {
	return r.system.State()
}

// Stats returns the task counters.
func (r *Runtime) Stats() progress.Counters {
	return r.tracker.Snapshot()
}

// QueueSizes returns the depth of the normal and immediate queues.
func (r *Runtime) QueueSizes() mdp.ExtState {
	return mdp.ExtState{Normal: r.normal.Size(), Immediate: r.immediate.Size()}
}

// ValueIteration returns the background value iteration service.
func (r *Runtime) ValueIteration() *valueiter.Service {
	return r.valueIter
}

// Failed returns tasks that returned an error, panicked or could not be
// routed to a worker.
func (r *Runtime) Failed() []*task.Task {
	result := r.normal.DeadLetters()
	result = append(result, r.immediate.DeadLetters()...)
	return append(result, r.processor.Failed()...)
}
