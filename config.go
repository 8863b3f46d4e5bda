package markov

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/viant/markov/model/mdp"
	"github.com/viant/markov/service/dispatcher"
	"github.com/viant/markov/service/processor"
	"github.com/viant/markov/service/valueiter"
)

// Config is a serialisable representation of the dispatcher configuration.
// It is read once at construction; nothing in it is tunable at runtime.
type Config struct {
	Processor      processor.Config  `json:"processor" yaml:"processor"`
	Dispatcher     dispatcher.Config `json:"dispatcher" yaml:"dispatcher"`
	ValueIteration valueiter.Config  `json:"valueIteration" yaml:"valueIteration"`
	Policy         PolicyConfig      `json:"policy" yaml:"policy"`
	Tracing        TracingConfig     `json:"tracing" yaml:"tracing"`
}

// PolicyConfig externalises the decision model. Empty fields fall back to
// the built-in scheduler model.
type PolicyConfig struct {
	Rewards     []float64   `json:"rewards,omitempty" yaml:"rewards,omitempty"`
	Transitions [][]float64 `json:"transitions,omitempty" yaml:"transitions,omitempty"`
}

// TracingConfig enables the OpenTelemetry stdout exporter.
type TracingConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	ServiceName    string `json:"serviceName,omitempty" yaml:"serviceName,omitempty"`
	ServiceVersion string `json:"serviceVersion,omitempty" yaml:"serviceVersion,omitempty"`
	OutputFile     string `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Processor:      processor.DefaultConfig(),
		Dispatcher:     dispatcher.DefaultConfig(),
		ValueIteration: valueiter.DefaultConfig(),
		Tracing: TracingConfig{
			ServiceName:    "markov",
			ServiceVersion: Version,
		},
	}
}

// Model builds the decision model from the policy section.
func (c *Config) Model() (mdp.Model, error) {
	model := mdp.DefaultModel()
	if len(c.Policy.Rewards) > 0 {
		if len(c.Policy.Rewards) != mdp.NumStates {
			return model, fmt.Errorf("policy.rewards: expected %d values, got %d", mdp.NumStates, len(c.Policy.Rewards))
		}
		copy(model.Rewards[:], c.Policy.Rewards)
	}
	if len(c.Policy.Transitions) > 0 {
		if len(c.Policy.Transitions) != mdp.NumStates {
			return model, fmt.Errorf("policy.transitions: expected %d rows, got %d", mdp.NumStates, len(c.Policy.Transitions))
		}
		for i, row := range c.Policy.Transitions {
			if len(row) != mdp.NumStates {
				return model, fmt.Errorf("policy.transitions[%d]: expected %d values, got %d", i, mdp.NumStates, len(row))
			}
			copy(model.Transitions[i][:], row)
		}
	}
	return model, model.Validate()
}

// Validate returns an error describing the first invalid setting, or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Processor.WorkerCount <= 0 {
		return fmt.Errorf("processor.workers must be > 0")
	}
	if c.Dispatcher.PollInterval < 0 {
		return fmt.Errorf("dispatcher.pollInterval must be >= 0")
	}
	if err := mdp.ValidateDiscount(c.ValueIteration.Discount); err != nil {
		return fmt.Errorf("valueIteration.discount: %w", err)
	}
	if !(c.ValueIteration.Threshold > 0) {
		return fmt.Errorf("valueIteration.threshold must be > 0, got %v", c.ValueIteration.Threshold)
	}
	if c.ValueIteration.MaxIterations < 0 {
		return fmt.Errorf("valueIteration.maxIterations must be >= 0")
	}
	if _, err := c.Model(); err != nil {
		return err
	}
	return nil
}

// DecodeConfig parses YAML (or JSON) on top of DefaultConfig.
func DecodeConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfig downloads and decodes a config from any afs supported URL.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	return DecodeConfig(data)
}
