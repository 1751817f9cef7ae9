// Package prefetch warms the drug and target caches for a batch of drug
// names ahead of interactive queries. Each name resolves through the
// knowledge-graph client's drug-plus-targets aggregate, so one pass
// leaves both cache namespaces populated for every drug in the batch.
package prefetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/drugscout/errors"
	"github.com/c360/drugscout/metric"
	"github.com/c360/drugscout/opentargets"
	"github.com/c360/drugscout/pkg/worker"
)

// Source is the name the runner reports in errors, logs, and metrics.
const Source = "prefetch"

const (
	// defaultWorkers keeps the fan-out well under the upstream rate
	// limit so a warm batch does not starve interactive calls.
	defaultWorkers = 4

	// defaultQueueSize bounds names buffered ahead of the workers.
	defaultQueueSize = 64

	// metricsPrefix namespaces the pool metrics when a registry is set.
	metricsPrefix = "drugscout_prefetch"
)

// Fetcher is the slice of the knowledge-graph client the runner needs.
// *opentargets.Client satisfies it.
type Fetcher interface {
	GetDrugWithTargets(ctx context.Context, name string) (opentargets.DrugWithTargets, error)
}

// Config sizes the runner's worker pool.
type Config struct {
	// Workers is the number of concurrent fetches.
	Workers int `json:"workers"`

	// QueueSize bounds the submission queue. Warm applies backpressure
	// on a full queue rather than dropping names.
	QueueSize int `json:"queue_size"`
}

// DefaultConfig returns pool sizes suited to rate-limited upstreams.
func DefaultConfig() Config {
	return Config{Workers: defaultWorkers, QueueSize: defaultQueueSize}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, Source, "Validate",
			fmt.Sprintf("workers cannot be negative, got %d", c.Workers))
	}
	if c.QueueSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, Source, "Validate",
			fmt.Sprintf("queue_size cannot be negative, got %d", c.QueueSize))
	}
	return nil
}

// DrugResult is the outcome of warming one drug.
type DrugResult struct {
	Drug     string
	ChemblID string
	Targets  int
	Duration time.Duration
	Err      error
}

// Report summarizes one warming batch. Results holds one entry per
// requested name, in input order.
type Report struct {
	Results   []DrugResult
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}

type task struct {
	index int
	name  string
	out   chan<- taskResult
}

type taskResult struct {
	index  int
	result DrugResult
}

// Runner drives warm batches through a shared worker pool. One Runner
// serves many Warm calls; concurrent batches share the same workers.
type Runner struct {
	fetcher  Fetcher
	pool     *worker.Pool[task]
	logger   *slog.Logger
	registry *metric.MetricsRegistry
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetricsRegistry exports the pool's metrics under the
// drugscout_prefetch prefix.
func WithMetricsRegistry(registry *metric.MetricsRegistry) Option {
	return func(r *Runner) {
		r.registry = registry
	}
}

// NewRunner creates a runner fetching through the given client.
func NewRunner(fetcher Fetcher, cfg Config, opts ...Option) (*Runner, error) {
	if fetcher == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, Source, "NewRunner",
			"fetcher is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers == 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = defaultQueueSize
	}

	r := &Runner{
		fetcher: fetcher,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("source", Source)

	var poolOpts []worker.Option[task]
	if r.registry != nil {
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[task](r.registry, metricsPrefix))
	}
	r.pool = worker.NewPool(cfg.Workers, cfg.QueueSize, r.process, poolOpts...)

	return r, nil
}

// Start launches the pool workers. Fetches run under ctx; cancelling it
// abandons queued names.
func (r *Runner) Start(ctx context.Context) error {
	return r.pool.Start(ctx)
}

// Stop drains queued names and waits up to timeout for in-flight
// fetches to finish.
func (r *Runner) Stop(timeout time.Duration) error {
	return r.pool.Stop(timeout)
}

// PoolStats returns the underlying pool's counters.
func (r *Runner) PoolStats() worker.PoolStats {
	return r.pool.Stats()
}

// Warm fetches and caches drug and target profiles for each name.
// Per-name failures land in the report, never abort the batch. The
// returned error concerns the batch itself: the runner not started,
// or ctx ending before all results arrived.
func (r *Runner) Warm(ctx context.Context, names []string) (Report, error) {
	started := time.Now()
	report := Report{Results: make([]DrugResult, len(names))}
	if len(names) == 0 {
		return report, nil
	}

	out := make(chan taskResult, len(names))
	settled := make([]bool, len(names))
	pending := 0
	var batchErr error

	for i, name := range names {
		err := r.pool.SubmitWait(ctx, task{index: i, name: name, out: out})
		if err != nil {
			report.Results[i] = DrugResult{Drug: name, Err: err}
			settled[i] = true
			if batchErr == nil {
				batchErr = err
			}
			continue
		}
		pending++
	}

	for pending > 0 {
		select {
		case res := <-out:
			report.Results[res.index] = res.result
			settled[res.index] = true
			pending--
		case <-ctx.Done():
			for i, done := range settled {
				if !done {
					report.Results[i] = DrugResult{Drug: names[i], Err: ctx.Err()}
				}
			}
			if batchErr == nil {
				batchErr = ctx.Err()
			}
			pending = 0
		}
	}

	for _, res := range report.Results {
		if res.Err != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}
	report.Elapsed = time.Since(started)

	r.logger.Info("Warm batch complete",
		"drugs", len(names),
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"elapsed", report.Elapsed)
	return report, batchErr
}

func (r *Runner) process(ctx context.Context, tk task) error {
	started := time.Now()
	bundle, err := r.fetcher.GetDrugWithTargets(ctx, tk.name)

	result := DrugResult{Drug: tk.name, Duration: time.Since(started)}
	if err != nil {
		result.Err = err
		r.logger.Warn("Drug warm failed", "drug", tk.name, "error", err)
	} else {
		result.ChemblID = bundle.Drug.ChemblID
		result.Targets = len(bundle.Targets)
		r.logger.Debug("Drug warmed",
			"drug", tk.name,
			"chembl_id", result.ChemblID,
			"targets", result.Targets,
			"duration", result.Duration)
	}

	// The channel is buffered to the batch size, so this never blocks.
	tk.out <- taskResult{index: tk.index, result: result}
	return err
}
