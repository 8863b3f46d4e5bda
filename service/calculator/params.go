package calculator

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/viant/markov/model/mdp"
)

// DefaultThreshold is the mean signed change below which a run is
// considered converged.
const DefaultThreshold = 1e-6

// Params represents calculator input
type Params struct {
	Rewards []float64 `json:"rewards" yaml:"rewards"`
	// Transitions is the row major transition matrix
	Transitions []float64 `json:"transitions" yaml:"transitions"`
	Discounts   []float64 `json:"discounts" yaml:"discounts"`
	// Runs is the number of repeated runs per discount factor
	Runs      int     `json:"runs" yaml:"runs"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	// MaxSteps bounds a single run, zero means no limit
	MaxSteps int          `json:"maxSteps" yaml:"maxSteps"`
	Verbose  bool         `json:"verbose" yaml:"verbose"`
	Logger   *slog.Logger `json:"-" yaml:"-"`
}

// DefaultParams returns the reference calculator input
func DefaultParams() *Params {
	return &Params{
		Rewards:     []float64{5, 2.5, 2.5},
		Transitions: flatten(mdp.DefaultTransitions),
		Discounts:   []float64{0.9},
		Runs:        1,
		Threshold:   DefaultThreshold,
	}
}

// Model builds the decision model from rewards and transitions.
func (p *Params) Model() (mdp.Model, error) {
	var model mdp.Model
	if len(p.Rewards) != mdp.NumStates {
		return model, fmt.Errorf("%d rewards values are given, instead of %d", len(p.Rewards), mdp.NumStates)
	}
	if len(p.Transitions) != mdp.NumStates*mdp.NumStates {
		return model, fmt.Errorf("%d probability values are given, instead of %d", len(p.Transitions), mdp.NumStates*mdp.NumStates)
	}
	copy(model.Rewards[:], p.Rewards)
	for i := range model.Transitions {
		copy(model.Transitions[i][:], p.Transitions[i*mdp.NumStates:(i+1)*mdp.NumStates])
	}
	return model, model.Validate()
}

// Validate returns an error describing the first invalid setting, or nil.
func (p *Params) Validate() error {
	if _, err := p.Model(); err != nil {
		return err
	}
	if len(p.Discounts) == 0 {
		return fmt.Errorf("at least one discount factor is required")
	}
	for _, d := range p.Discounts {
		if err := mdp.ValidateDiscount(d); err != nil {
			return err
		}
	}
	if p.Runs <= 0 {
		return fmt.Errorf("runs must be > 0, got %d", p.Runs)
	}
	if !(p.Threshold > 0) {
		return fmt.Errorf("threshold must be > 0, got %v", p.Threshold)
	}
	return nil
}

// ParseValues parses a comma separated list of floats.
func ParseValues(value string) ([]float64, error) {
	var result []float64
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		v, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", item, err)
		}
		result = append(result, v)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no values in %q", value)
	}
	return result, nil
}

// ParseRewards parses exactly three comma separated rewards.
func ParseRewards(value string) ([]float64, error) {
	result, err := ParseValues(value)
	if err != nil {
		return nil, err
	}
	if len(result) != mdp.NumStates {
		return nil, fmt.Errorf("%d rewards values are given, instead of %d", len(result), mdp.NumStates)
	}
	return result, nil
}

// ParseDiscounts parses comma separated discount factors, each in [0,1).
func ParseDiscounts(value string) ([]float64, error) {
	result, err := ParseValues(value)
	if err != nil {
		return nil, err
	}
	for _, d := range result {
		if err := mdp.ValidateDiscount(d); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ParseProbability parses a matrix in the p00,p01,p02;p10,p11,p12;p20,p21,p22
// format into a row major slice.
func ParseProbability(value string) ([]float64, error) {
	rows := strings.Split(value, ";")
	if len(rows) != mdp.NumStates {
		return nil, fmt.Errorf("%d probability rows are given, instead of %d", len(rows), mdp.NumStates)
	}
	result := make([]float64, 0, mdp.NumStates*mdp.NumStates)
	for i, row := range rows {
		values, err := ParseValues(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if len(values) != mdp.NumStates {
			return nil, fmt.Errorf("row %d: %d probability values are given, instead of %d", i, len(values), mdp.NumStates)
		}
		result = append(result, values...)
	}
	return result, nil
}

func flatten(m mdp.Matrix) []float64 {
	result := make([]float64, 0, mdp.NumStates*mdp.NumStates)
	for _, row := range m {
		result = append(result, row[:]...)
	}
	return result
}
