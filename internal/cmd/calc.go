package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/viant/markov/service/calculator"
)

type calcOptions struct {
	rewards     string
	discounts   string
	probability string
	runs        int
	output      string
	threshold   float64
	maxSteps    int
}

func newCalcCommand() *cobra.Command {
	opts := &calcOptions{}
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate converged state values for one or more discount factors",
		Example: `  markov calc -r 5,2.5,2.5 -d 0.9,0.5 -i 10 -o values.csv
  markov calc -p "0.1,0.5,0.4;0.2,0.4,0.4;0.2,0.4,0.4"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalc(cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.rewards, "rewards", "r", "5,2.5,2.5", "comma separated rewards values")
	flags.StringVarP(&opts.discounts, "discount", "d", "0.9", "comma separated discount factors, produces values for each factor")
	flags.StringVarP(&opts.probability, "probability", "p", "0.1,0.5,0.4;0.2,0.4,0.4;0.2,0.4,0.4", "transition matrix as p00,p01,p02;p10,p11,p12;p20,p21,p22")
	flags.IntVarP(&opts.runs, "iter", "i", 1, "number of runs per discount factor")
	flags.StringVarP(&opts.output, "output", "o", "", "where to save CSV encoded values (any afs URL)")
	flags.Float64Var(&opts.threshold, "threshold", calculator.DefaultThreshold, "mean signed difference that stops a run")
	flags.IntVar(&opts.maxSteps, "max-steps", 0, "upper bound of backups per run, 0 means unbounded")
	return cmd
}

func runCalc(cmd *cobra.Command, opts *calcOptions) error {
	params := calculator.DefaultParams()
	var err error
	if params.Rewards, err = calculator.ParseRewards(opts.rewards); err != nil {
		return fmt.Errorf("invalid rewards: %w", err)
	}
	if params.Discounts, err = calculator.ParseDiscounts(opts.discounts); err != nil {
		return fmt.Errorf("invalid discount: %w", err)
	}
	if params.Transitions, err = calculator.ParseProbability(opts.probability); err != nil {
		return fmt.Errorf("invalid probability: %w", err)
	}
	params.Runs = opts.runs
	params.Threshold = opts.threshold
	params.MaxSteps = opts.maxSteps
	params.Verbose = verbose(cmd)
	params.Logger = newLogger(cmd.ErrOrStderr(), params.Verbose)

	ctx := cmd.Context()
	results, err := calculator.Calculate(ctx, params)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, result := range results {
		fmt.Fprintf(out, "--- discount %v ---\n", result.Discount)
		fmt.Fprintf(out, "values: %v (steps: %d)\n", result.Values, result.Steps)
		fmt.Fprintf(out, "average duration: %v\n", result.AvgDuration)
		fmt.Fprintf(out, "time to complete %d runs: %v\n\n", params.Runs, result.Elapsed)
	}
	if opts.output == "" {
		return nil
	}
	return calculator.WriteCSV(ctx, afs.New(), opts.output, results)
}
