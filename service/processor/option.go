package processor

import (
	"log/slog"

	"github.com/viant/markov/progress"
	"github.com/viant/markov/service/messaging/memory"
)

// Option configures the worker pool.
type Option func(*Service)

// WithWorkers sets the number of worker goroutines
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.WorkerCount = count
	}
}

// WithQueueConfig sets the configuration of every per-worker queue
func WithQueueConfig(config memory.Config) Option {
	return func(s *Service) {
		s.queueConfig = config
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracker sets the progress tracker updated by workers
func WithTracker(tracker *progress.Progress) Option {
	return func(s *Service) {
		s.tracker = tracker
	}
}

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}
