package cmd

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the markov command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "markov",
		Short: "Self-tuning MDP task dispatcher",
		Long: `markov routes tasks from a normal and an immediate queue to a pool of
workers, choosing the next queue with a three state Markov decision process
whose values are refined by value iteration running on the same workers.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	root.AddCommand(newCalcCommand(), newRunCommand(), newVersionCommand())
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func verbose(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("verbose")
	return v
}
