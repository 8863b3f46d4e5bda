package markov

import (
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/viant/markov/model/mdp"
	"github.com/viant/markov/progress"
)

// Option configures the Service.
type Option func(s *Service)

// WithConfig replaces the whole configuration. The service keeps its own
// copy; overrides such as WithWorkers apply on top regardless of order.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			clone := *config
			s.config = &clone
		}
	}
}

// WithWorkers overrides the configured number of workers
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.workers = &count
	}
}

// WithLogger sets the structured logger shared by all components
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithWeigher installs an ExtState aware policy adjustment, see mdp.Weigher
func WithWeigher(weigher mdp.Weigher) Option {
	return func(s *Service) {
		s.weigher = weigher
	}
}

// WithStatsListener registers a callback invoked after every counter change
func WithStatsListener(fn func(progress.Counters)) Option {
	return func(s *Service) {
		s.statsListener = fn
	}
}

// WithTracing configures OpenTelemetry tracing with the stdout exporter. If
// outputFile is empty spans go to stdout. The first successful
// initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		s.tracing = &TracingConfig{
			Enabled:        true,
			ServiceName:    serviceName,
			ServiceVersion: serviceVersion,
			OutputFile:     outputFile,
		}
	}
}

// WithTracingExporter configures OpenTelemetry tracing with a custom
// exporter, installed when the service is created.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		s.tracing = &TracingConfig{
			Enabled:        true,
			ServiceName:    serviceName,
			ServiceVersion: serviceVersion,
		}
		s.exporter = exporter
	}
}
