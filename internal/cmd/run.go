package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/viant/markov"
	"github.com/viant/markov/metrics"
	"github.com/viant/markov/tracing"
)

type runOptions struct {
	config   string
	duration time.Duration
	metrics  string
	load     int
	workers  int
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the dispatcher, optionally with a synthetic load",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatcher(cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.config, "config", "c", "", "YAML config URL (any afs URL)")
	flags.DurationVar(&opts.duration, "duration", 0, "stop after this long, 0 runs until interrupted")
	flags.StringVar(&opts.metrics, "metrics", "", "serve Prometheus metrics on this address, e.g. :9090")
	flags.IntVar(&opts.load, "load", 0, "number of synthetic tasks to submit")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "override the configured worker count")
	return cmd
}

func runDispatcher(cmd *cobra.Command, opts *runOptions) error {
	logger := newLogger(cmd.ErrOrStderr(), verbose(cmd))
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	config := markov.DefaultConfig()
	if opts.config != "" {
		var err error
		if config, err = markov.LoadConfig(ctx, opts.config); err != nil {
			return err
		}
	}
	options := []markov.Option{markov.WithConfig(config), markov.WithLogger(logger)}
	if opts.workers > 0 {
		options = append(options, markov.WithWorkers(opts.workers))
	}
	srv, err := markov.New(options...)
	if err != nil {
		return err
	}
	if srv.Config().Tracing.Enabled {
		defer func() { _ = tracing.Shutdown(context.Background()) }()
	}

	if opts.metrics != "" {
		server := metricsServer(opts.metrics)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() { _ = server.Shutdown(context.Background()) }()
		logger.Info("serving metrics", "address", opts.metrics)
	}

	runtime := srv.Runtime()
	if err := runtime.Start(ctx); err != nil {
		return err
	}
	if err := submitLoad(ctx, runtime, opts.load, logger); err != nil {
		_ = runtime.Shutdown(context.Background())
		return err
	}
	err = runtime.Wait()

	stats := runtime.Stats()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "submitted: %d routed: %d completed: %d failed: %d\n",
		stats.SubmittedTasks, stats.RoutedTasks, stats.CompletedTasks, stats.FailedTasks)
	fmt.Fprintf(out, "values: %v state: %v value iterations: %d\n",
		runtime.Values(), runtime.State(), runtime.ValueIteration().Iterations())
	return err
}

func metricsServer(address string) *http.Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.Collectors()...)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &http.Server{Addr: address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

// submitLoad publishes count short sleeping tasks, every fourth one on the
// immediate queue.
func submitLoad(ctx context.Context, runtime *markov.Runtime, count int, logger *slog.Logger) error {
	for i := 0; i < count; i++ {
		took := time.Duration(i%5) * time.Millisecond
		fn := func(ctx context.Context) error {
			select {
			case <-time.After(took):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		name := fmt.Sprintf("load-%d", i)
		var err error
		if i%4 == 0 {
			_, err = runtime.SubmitImmediate(ctx, name, fn)
		} else {
			_, err = runtime.Submit(ctx, name, fn)
		}
		if err != nil {
			return fmt.Errorf("failed to submit %v: %w", name, err)
		}
	}
	logger.Info("synthetic load submitted", "tasks", count)
	return nil
}
