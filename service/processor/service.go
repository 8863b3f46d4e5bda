package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/viant/markov/metrics"
	"github.com/viant/markov/model/task"
	"github.com/viant/markov/progress"
	"github.com/viant/markov/service/messaging"
	"github.com/viant/markov/service/messaging/memory"
	"github.com/viant/markov/tracing"
)

// Config represents worker pool configuration
type Config struct {
	// WorkerCount is the number of workers processing tasks
	WorkerCount int `json:"workers" yaml:"workers"`
}

// DefaultConfig returns the default worker pool configuration
func DefaultConfig() Config {
	return Config{WorkerCount: 4}
}

// Service is a fixed pool of workers, each consuming its own queue.
type Service struct {
	config      Config
	queueConfig memory.Config
	logger      *slog.Logger
	tracker     *progress.Progress

	workers  []*worker
	workerWg sync.WaitGroup
	mu       sync.Mutex
	started  bool
}

type worker struct {
	id       int
	queue    *memory.Queue[task.Task]
	service  *Service
	cancelFn context.CancelFunc
}

// New creates the pool and its per-worker queues. Workers start with Start.
func New(options ...Option) (*Service, error) {
	s := &Service{
		config: DefaultConfig(),
		// tasks are invoke-once, a failed one is dead-lettered, never retried
		queueConfig: memory.Config{DeadLetter: true},
	}
	for _, opt := range options {
		opt(s)
	}
	if s.config.WorkerCount <= 0 {
		return nil, fmt.Errorf("worker count must be > 0, got %d", s.config.WorkerCount)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "processor")
	for i := 0; i < s.config.WorkerCount; i++ {
		s.workers = append(s.workers, &worker{
			id:      i,
			queue:   memory.NewQueue[task.Task](s.queueConfig),
			service: s,
		})
	}
	return s, nil
}

// Queues returns the per-worker queues in worker order.
func (s *Service) Queues() []messaging.Queue[task.Task] {
	result := make([]messaging.Queue[task.Task], len(s.workers))
	for i, w := range s.workers {
		result[i] = w.queue
	}
	return result
}

// Loads returns the pending queue length of every worker.
func (s *Service) Loads() []int {
	result := make([]int, len(s.workers))
	for i, w := range s.workers {
		result[i] = w.queue.Size()
	}
	return result
}

// Failed returns the tasks that errored or panicked, across all workers.
func (s *Service) Failed() []*task.Task {
	var result []*task.Task
	for _, w := range s.workers {
		result = append(result, w.queue.DeadLetters()...)
	}
	return result
}

// Start launches every worker goroutine.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("processor already started")
	}
	s.started = true
	for _, w := range s.workers {
		workerCtx, cancel := context.WithCancel(ctx)
		w.cancelFn = cancel
		s.workerWg.Add(1)
		go w.run(workerCtx)
	}
	s.logger.Info("workers started", "count", len(s.workers))
	return nil
}

func (w *worker) run(ctx context.Context) {
	defer w.service.workerWg.Done()
	logger := w.service.logger.With("worker", w.id)
	for {
		msg, err := w.queue.Consume(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, messaging.ErrClosed) {
				return
			}
			logger.Warn("consume failed", "error", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		aTask := msg.T()
		if err := w.execute(ctx, aTask); err != nil {
			logger.Error("task failed", "task", aTask.String(), "error", err)
			if nErr := msg.Nack(err); nErr != nil {
				logger.Warn("nack failed", "task", aTask.String(), "error", nErr)
			}
			continue
		}
		if aErr := msg.Ack(); aErr != nil {
			logger.Warn("ack failed", "task", aTask.String(), "error", aErr)
		}
	}
}

// execute runs a task inside a recover boundary.
func (w *worker) execute(ctx context.Context, aTask *task.Task) (err error) {
	tracker := w.service.tracker
	tracker.Update(progress.Delta{Running: 1})
	ctx, span := tracing.StartSpan(ctx, "processor.execute "+aTask.Name, tracing.KindConsumer)
	span.WithAttributes(map[string]string{"task.id": aTask.ID, "worker.id": strconv.Itoa(w.id)})
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
		metrics.TaskLatency.Observe(time.Since(started).Seconds())
		tracing.EndSpan(span, err)
		if err != nil {
			metrics.TasksProcessed.WithLabelValues("failed").Inc()
			tracker.Update(progress.Delta{Running: -1, Failed: 1})
			return
		}
		metrics.TasksProcessed.WithLabelValues("ok").Inc()
		tracker.Update(progress.Delta{Running: -1, Completed: 1})
	}()
	return aTask.Run(ctx)
}

// Shutdown stops every worker and waits for running tasks to return.
func (s *Service) Shutdown() {
	s.mu.Lock()
	for _, w := range s.workers {
		if w.cancelFn != nil {
			w.cancelFn()
		}
	}
	s.mu.Unlock()
	s.workerWg.Wait()
}
