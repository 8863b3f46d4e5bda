package calculator

import (
	"context"
	"log/slog"
	"time"

	"github.com/viant/markov/internal/clock"
	"github.com/viant/markov/model/mdp"
)

// Result holds the averaged values for a single discount factor.
type Result struct {
	Discount float64
	Values   mdp.Vector
	// Steps is the number of backups the last run needed
	Steps       int
	AvgDuration time.Duration
	Elapsed     time.Duration
}

// Calculate runs value iteration params.Runs times for every discount
// factor, in the given order.
func Calculate(ctx context.Context, params *Params) ([]Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	model, _ := params.Model()
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]Result, 0, len(params.Discounts))
	for _, discount := range params.Discounts {
		started := clock.Now()
		var total time.Duration
		var sum mdp.Vector
		result := Result{Discount: discount}
		for run := 0; run < params.Runs; run++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			runStarted := clock.Now()
			converged, err := mdp.Converge(model, discount, params.Threshold, params.MaxSteps, mdp.MeanDiff)
			if err != nil {
				return nil, err
			}
			took := clock.Since(runStarted)
			total += took
			for i, v := range converged.Values {
				sum[i] += v
			}
			result.Steps = converged.Steps
			if params.Verbose {
				logger.Info("run completed", "discount", discount, "run", run, "steps", converged.Steps, "diff", converged.Diff, "values", converged.Values, "took", took)
			}
		}
		for i := range sum {
			result.Values[i] = sum[i] / float64(params.Runs)
		}
		result.AvgDuration = total / time.Duration(params.Runs)
		result.Elapsed = clock.Since(started)
		results = append(results, result)
	}
	return results, nil
}
