package dispatcher

import (
	"log/slog"

	"github.com/viant/markov/progress"
)

// Option configures the dispatcher.
type Option func(*Service)

// WithConfig sets the dispatcher configuration
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracker sets the progress tracker
func WithTracker(tracker *progress.Progress) Option {
	return func(s *Service) {
		s.tracker = tracker
	}
}
