package markov

import (
	"fmt"
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/viant/markov/model/mdp"
	"github.com/viant/markov/model/task"
	"github.com/viant/markov/progress"
	"github.com/viant/markov/service/dispatcher"
	"github.com/viant/markov/service/messaging/memory"
	"github.com/viant/markov/service/processor"
	"github.com/viant/markov/service/valueiter"
	"github.com/viant/markov/tracing"
)

// Service wires the decision system, queues, workers and dispatcher.
type Service struct {
	config        *Config
	logger        *slog.Logger
	weigher       mdp.Weigher
	statsListener func(progress.Counters)
	workers       *int
	tracing       *TracingConfig
	exporter      sdktrace.SpanExporter
	runtime       *Runtime
}

// New creates a dispatcher service. Workers do not run until the runtime is
// launched.
func New(options ...Option) (*Service, error) {
	s := &Service{config: DefaultConfig()}
	for _, opt := range options {
		opt(s)
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init() error {
	if s.workers != nil {
		s.config.Processor.WorkerCount = *s.workers
	}
	if s.tracing != nil {
		s.config.Tracing = *s.tracing
	}
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if t := s.config.Tracing; t.Enabled {
		var err error
		if s.exporter != nil {
			err = tracing.InitWithExporter(t.ServiceName, t.ServiceVersion, s.exporter)
		} else {
			err = tracing.Init(t.ServiceName, t.ServiceVersion, t.OutputFile)
		}
		if err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	model, err := s.config.Model()
	if err != nil {
		return err
	}
	var systemOptions []mdp.SystemOption
	if s.weigher != nil {
		systemOptions = append(systemOptions, mdp.WithWeigher(s.weigher))
	}

	rt := &Runtime{
		logger:  s.logger,
		tracker: progress.New(),
		system:  mdp.New(model, systemOptions...).Init(s.config.ValueIteration.Discount),
		// input queues hand tasks over to workers, nothing is ever retried
		normal:    memory.NewQueue[task.Task](memory.Config{DeadLetter: true}),
		immediate: memory.NewQueue[task.Task](memory.Config{DeadLetter: true}),
	}
	rt.tracker.OnChange(s.statsListener)

	if rt.processor, err = processor.New(
		processor.WithConfig(s.config.Processor),
		processor.WithLogger(s.logger),
		processor.WithTracker(rt.tracker),
	); err != nil {
		return err
	}
	if rt.valueIter, err = valueiter.New(rt.system, rt.normal, s.config.ValueIteration, valueiter.WithLogger(s.logger)); err != nil {
		return err
	}
	if rt.dispatcher, err = dispatcher.New(rt.system, rt.normal, rt.immediate, rt.processor.Queues(),
		dispatcher.WithConfig(s.config.Dispatcher),
		dispatcher.WithLogger(s.logger),
		dispatcher.WithTracker(rt.tracker),
	); err != nil {
		return err
	}
	s.runtime = rt
	return nil
}

// Runtime returns the runtime
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Config returns the effective configuration
func (s *Service) Config() *Config {
	return s.config
}
