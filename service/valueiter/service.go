package valueiter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/viant/markov/metrics"
	"github.com/viant/markov/model/mdp"
	"github.com/viant/markov/model/task"
	"github.com/viant/markov/service/messaging"
	"github.com/viant/markov/tracing"
)

// TaskName names every value iteration task.
const TaskName = "value-iteration"

// Config controls the background value iteration.
type Config struct {
	// Discount is the Bellman discount factor.
	Discount float64 `json:"discount" yaml:"discount"`
	// Threshold stops resubmission once the mean absolute change drops to it.
	Threshold float64 `json:"threshold" yaml:"threshold"`
	// MaxIterations caps the chain length, zero disables the cap.
	MaxIterations int `json:"maxIterations" yaml:"maxIterations"`
}

// DefaultConfig returns the scheduler defaults.
func DefaultConfig() Config {
	return Config{
		Discount:      0.9,
		Threshold:     0.1,
		MaxIterations: 1000,
	}
}

// Option configures the service.
type Option func(*Service)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service owns one chain of self-resubmitting value iteration tasks.
type Service struct {
	config Config
	system *mdp.System
	queue  messaging.Queue[task.Task]
	logger *slog.Logger

	iterations atomic.Int64
	converged  atomic.Bool
	lastDiff   atomic.Value

	mu   sync.Mutex
	done chan struct{}
}

// New creates the service; queue receives every successor task.
func New(system *mdp.System, queue messaging.Queue[task.Task], config Config, options ...Option) (*Service, error) {
	if system == nil {
		return nil, fmt.Errorf("decision system is required")
	}
	if queue == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if err := mdp.ValidateDiscount(config.Discount); err != nil {
		return nil, err
	}
	if math.IsNaN(config.Threshold) {
		return nil, fmt.Errorf("threshold is NaN")
	}
	if config.Threshold <= 0 && config.MaxIterations <= 0 {
		return nil, fmt.Errorf("threshold %v requires an iteration cap", config.Threshold)
	}
	s := &Service{
		config: config,
		system: system,
		queue:  queue,
		done:   make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "valueiter")
	return s, nil
}

// Seed publishes the first task of a new chain.
func (s *Service) Seed(ctx context.Context) error {
	s.mu.Lock()
	select {
	case <-s.done:
		s.done = make(chan struct{})
	default:
	}
	s.mu.Unlock()
	s.iterations.Store(0)
	s.converged.Store(false)
	return s.queue.Publish(ctx, s.NewTask())
}

// NewTask returns a task performing one value iteration step.
func (s *Service) NewTask() *task.Task {
	return task.New(TaskName, s.step)
}

func (s *Service) step(ctx context.Context) (err error) {
	ctx, span := tracing.StartSpan(ctx, "valueiter.Step", tracing.KindInternal)
	defer func() { tracing.EndSpan(span, err) }()

	values, diff := s.system.Step(s.config.Discount)
	n := s.iterations.Add(1)
	s.lastDiff.Store(diff)

	metrics.ValueIterations.Inc()
	metrics.ValueDiff.Set(diff)
	for i, v := range values {
		metrics.Values.WithLabelValues(mdp.State(i).String()).Set(v)
	}
	span.WithFloat("diff", diff).WithAttributes(map[string]string{"iteration": strconv.FormatInt(n, 10)})

	if diff <= s.config.Threshold {
		s.converged.Store(true)
		s.logger.Info("value iteration converged", "iterations", n, "diff", diff, "values", values)
		s.finish()
		return nil
	}
	if s.config.MaxIterations > 0 && n >= int64(s.config.MaxIterations) {
		s.logger.Warn("value iteration cap reached", "iterations", n, "diff", diff)
		s.finish()
		return nil
	}
	s.logger.Debug("value iteration step", "iteration", n, "diff", diff)
	if err = s.queue.Publish(ctx, s.NewTask()); err != nil {
		s.finish()
		return fmt.Errorf("failed to resubmit value iteration: %w", err)
	}
	return nil
}

func (s *Service) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// Done is closed when the current chain stops resubmitting.
func (s *Service) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Iterations returns the number of steps run by the current chain.
func (s *Service) Iterations() int {
	return int(s.iterations.Load())
}

// Converged reports whether the current chain reached the threshold.
func (s *Service) Converged() bool {
	return s.converged.Load()
}

// LastDiff returns the mean absolute change of the latest step.
func (s *Service) LastDiff() float64 {
	if v, ok := s.lastDiff.Load().(float64); ok {
		return v
	}
	return 0
}
