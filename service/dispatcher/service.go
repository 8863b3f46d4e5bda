package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/viant/markov/metrics"
	"github.com/viant/markov/model/mdp"
	"github.com/viant/markov/model/task"
	"github.com/viant/markov/progress"
	"github.com/viant/markov/service/messaging"
)

// Config represents dispatcher configuration
type Config struct {
	// PollInterval bounds how long the loop parks when no queue has work.
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval"`
	// Fallback serves the other input queue when the preferred one is empty.
	Fallback bool `json:"fallback" yaml:"fallback"`
}

// DefaultConfig returns the default dispatcher configuration
func DefaultConfig() Config {
	return Config{
		PollInterval: 20 * time.Millisecond,
		Fallback:     true,
	}
}

// Service is the dispatcher.
type Service struct {
	config    Config
	system    *mdp.System
	normal    messaging.Queue[task.Task]
	immediate messaging.Queue[task.Task]
	workers   []messaging.Queue[task.Task]
	logger    *slog.Logger
	tracker   *progress.Progress
	signals   []<-chan struct{}
}

// New creates a dispatcher over the given input queues and worker queues.
func New(system *mdp.System, normal, immediate messaging.Queue[task.Task], workers []messaging.Queue[task.Task], options ...Option) (*Service, error) {
	if system == nil {
		return nil, fmt.Errorf("decision system is required")
	}
	if normal == nil || immediate == nil {
		return nil, fmt.Errorf("normal and immediate queues are required")
	}
	if len(workers) == 0 {
		return nil, fmt.Errorf("at least one worker queue is required")
	}
	s := &Service{
		config:    DefaultConfig(),
		system:    system,
		normal:    normal,
		immediate: immediate,
		workers:   workers,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.config.PollInterval <= 0 {
		s.config.PollInterval = DefaultConfig().PollInterval
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "dispatcher")
	for _, q := range []messaging.Queue[task.Task]{normal, immediate} {
		if n, ok := q.(messaging.Notifier); ok {
			s.signals = append(s.signals, n.Subscribe())
		}
	}
	return s, nil
}

// Submit publishes a task onto the normal queue.
func (s *Service) Submit(ctx context.Context, aTask *task.Task) error {
	if err := s.normal.Publish(ctx, aTask); err != nil {
		return err
	}
	s.tracker.Update(progress.Delta{Submitted: 1})
	return nil
}

// SubmitImmediate publishes a task onto the immediate queue.
func (s *Service) SubmitImmediate(ctx context.Context, aTask *task.Task) error {
	if err := s.immediate.Publish(ctx, aTask); err != nil {
		return err
	}
	s.tracker.Update(progress.Delta{Submitted: 1})
	return nil
}

// Launch runs the control loop until ctx is done. Any panic inside the loop
// is fatal and returned as an error.
func (s *Service) Launch(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatcher: fatal: %v\n%s", r, debug.Stack())
			s.logger.Error("dispatcher stopped", "error", r)
		}
	}()
	s.logger.Info("dispatcher started", "workers", len(s.workers))
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if !s.dispatchOnce(ctx) {
			s.wait(ctx)
		}
	}
}

// dispatchOnce runs one iteration of the loop; it returns false when there
// was nothing to route.
func (s *Service) dispatchOnce(ctx context.Context) bool {
	ext := mdp.ExtState{Normal: s.normal.Size(), Immediate: s.immediate.Size()}
	metrics.QueueDepth.WithLabelValues(mdp.DoQueue.String()).Set(float64(ext.Normal))
	metrics.QueueDepth.WithLabelValues(mdp.DoImmediate.String()).Set(float64(ext.Immediate))

	action := s.system.Decide(ext)
	msg, taken := s.pop(action.State())
	if msg == nil {
		if action.State() == mdp.Idle {
			s.system.SetState(mdp.Idle)
			// idle is a transition, not a lack of work
			return ext.Normal+ext.Immediate > 0
		}
		return false
	}
	s.system.SetState(taken)
	s.route(ctx, msg, taken)
	return true
}

// pop takes one message from the queue selected by state, falling back to
// the other input queue when enabled.
func (s *Service) pop(state mdp.State) (messaging.Message[task.Task], mdp.State) {
	var primary, secondary messaging.Queue[task.Task]
	var other mdp.State
	switch state {
	case mdp.DoQueue:
		primary, secondary, other = s.normal, s.immediate, mdp.DoImmediate
	case mdp.DoImmediate:
		primary, secondary, other = s.immediate, s.normal, mdp.DoQueue
	default:
		return nil, state
	}
	if msg, ok := primary.TryConsume(); ok {
		return msg, state
	}
	if !s.config.Fallback {
		return nil, state
	}
	if msg, ok := secondary.TryConsume(); ok {
		return msg, other
	}
	return nil, state
}

func (s *Service) route(ctx context.Context, msg messaging.Message[task.Task], from mdp.State) {
	aTask := msg.T()
	loads := make([]int, len(s.workers))
	for i, q := range s.workers {
		loads[i] = q.Size()
	}
	idx := LeastLoaded(loads)
	if err := s.workers[idx].Publish(ctx, aTask); err != nil {
		// the input queue dead-letters it; Runtime.Failed reports it
		s.logger.Error("failed to route task, dropping", "task", aTask.String(), "worker", idx, "error", err)
		if nErr := msg.Nack(err); nErr != nil {
			s.logger.Warn("nack failed", "task", aTask.String(), "error", nErr)
		}
		s.tracker.Update(progress.Delta{Failed: 1})
		return
	}
	if aErr := msg.Ack(); aErr != nil {
		s.logger.Warn("ack failed", "task", aTask.String(), "error", aErr)
	}
	metrics.TasksRouted.WithLabelValues(from.String()).Inc()
	s.tracker.Update(progress.Delta{Routed: 1})
	s.logger.Debug("task routed", "task", aTask.String(), "queue", from.String(), "worker", idx)
}

// wait parks until an input queue signals, the poll interval elapses or ctx
// is done.
func (s *Service) wait(ctx context.Context) {
	timer := time.NewTimer(s.config.PollInterval)
	defer timer.Stop()
	var normal, immediate <-chan struct{}
	if len(s.signals) > 0 {
		normal = s.signals[0]
	}
	if len(s.signals) > 1 {
		immediate = s.signals[1]
	}
	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-normal:
	case <-immediate:
	}
}
