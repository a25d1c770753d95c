package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jzx17/offload/internal/config"
	"github.com/jzx17/offload/internal/logging"
	"github.com/jzx17/offload/pkg/blocking"
	"github.com/jzx17/offload/pkg/event"
	"github.com/jzx17/offload/pkg/metrics"
	"github.com/jzx17/offload/pkg/types"
)

const shutdownTimeout = 5 * time.Second

func newRunCommand(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit a burst of blocking work items and report how the pool handled them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.New(), cmd.Flags())
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			logger.Debug("configuration loaded", cfg.Fields()...)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, logger, stdout)
		},
	}

	if err := config.RegisterFlags(cmd.Flags()); err != nil {
		panic(err)
	}
	return cmd
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	exporter, err := metrics.NewExporter("offload", reg, metrics.ExporterOptions{})
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	pool, err := blocking.New(cfg.PoolConfig("offload", logger, exporter))
	if err != nil {
		return err
	}

	report, err := runBurst(ctx, pool, cfg.Tasks, cfg.TaskDuration, cfg.AbortRatio)
	if err != nil {
		pool.Close()
		return err
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := pool.Shutdown(sctx); err != nil {
		logger.Warn("pool did not drain before timeout", zap.Error(err))
	}

	report.print(out)
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

type burstReport struct {
	Submitted int
	Completed int
	Failed    int
	Cancelled int
	Elapsed   time.Duration
	Stats     types.PoolStats
}

type submitted struct {
	ctl    *blocking.CancelHandle
	done   *event.Event
	result *event.ResultHolder
}

// runBurst submits tasks sleepers of duration d, aborts the first abortRatio share of
// them and waits for every item. Cancelling ctx aborts whatever is still pending.
func runBurst(ctx context.Context, pool *blocking.Pool, tasks int, d time.Duration, abortRatio float64) (*burstReport, error) {
	sleeper := func(ctx context.Context, args []any, _ map[string]any) (any, error) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return args[0], nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	start := time.Now()
	items := make([]submitted, 0, tasks)
	for i := 0; i < tasks; i++ {
		ctl, done, result, err := pool.Spawn(sleeper, []any{i}, nil)
		if err != nil {
			for _, it := range items {
				it.ctl.Abort()
			}
			return nil, fmt.Errorf("submitting item %d: %w", i, err)
		}
		items = append(items, submitted{ctl: ctl, done: done, result: result})
	}

	aborts := int(math.Round(abortRatio * float64(tasks)))
	for i := 0; i < aborts; i++ {
		items[i].ctl.Abort()
	}

	report := &burstReport{Submitted: len(items)}
	for _, it := range items {
		select {
		case <-it.done.Done():
		case <-ctx.Done():
			it.ctl.Abort()
			<-it.done.Done()
		}

		_, err := blocking.Unpack(it.result)
		switch {
		case err == nil:
			report.Completed++
		case types.IsCancelled(err):
			report.Cancelled++
		default:
			report.Failed++
		}
	}
	report.Elapsed = time.Since(start)
	report.Stats = pool.Stats()
	return report, nil
}

func (r *burstReport) print(out io.Writer) {
	fmt.Fprintf(out, "submitted:  %d\n", r.Submitted)
	fmt.Fprintf(out, "completed:  %d\n", r.Completed)
	fmt.Fprintf(out, "cancelled:  %d\n", r.Cancelled)
	fmt.Fprintf(out, "failed:     %d\n", r.Failed)
	fmt.Fprintf(out, "elapsed:    %v\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "threads:    %d spawned, %d live, %d max\n", r.Stats.Spawned, r.Stats.Threads, r.Stats.MaxThreads)
}
