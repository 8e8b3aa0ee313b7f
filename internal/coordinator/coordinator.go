package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"optionsfetcher/internal/fetcher"
	"optionsfetcher/internal/storage"
)

// Mode selects how symbols are dispatched
type Mode string

const (
	// Sequential processes symbols one after another in resolved order
	Sequential Mode = "sequential"
	// Parallel processes symbols on a bounded worker pool; order is not guaranteed
	Parallel Mode = "parallel"
)

// ParseMode converts a configuration value into a Mode
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Sequential, "":
		return Sequential, nil
	case Parallel:
		return Parallel, nil
	default:
		return "", fmt.Errorf("unknown concurrency mode %q", s)
	}
}

// Processor handles one symbol and never fails the batch
type Processor interface {
	Process(ctx context.Context, symbol string, quoteDate time.Time) fetcher.Outcome
}

// StatsSource reports what is persisted after a run
type StatsSource interface {
	Stats() (storage.Stats, error)
}

// Options configures a Coordinator
type Options struct {
	Mode    Mode
	Workers int
	Logger  *slog.Logger
}

// Summary aggregates one run
type Summary struct {
	Outcomes  []fetcher.Outcome
	Succeeded int
	Failed    int
	Stats     storage.Stats
}

// FailedSymbols lists the symbols for which no artifact was written
func (s Summary) FailedSymbols() []string {
	var out []string
	for _, o := range s.Outcomes {
		if !o.Succeeded() {
			out = append(out, o.Symbol)
		}
	}
	return out
}

// Coordinator drives the worker over all resolved symbols
type Coordinator struct {
	processor Processor
	stats     StatsSource
	mode      Mode
	workers   int
	logger    *slog.Logger
}

// New creates a new Coordinator. A non-positive worker count means one
// worker per available CPU.
func New(processor Processor, stats StatsSource, opts Options) *Coordinator {
	if opts.Mode == "" {
		opts.Mode = Sequential
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		processor: processor,
		stats:     stats,
		mode:      opts.Mode,
		workers:   opts.Workers,
		logger:    opts.Logger,
	}
}

// Run processes every symbol and returns the aggregated summary.
// Per-symbol failures are reported in the summary, never as an error.
// An empty list completes with an empty summary.
// Statistics are gathered only after every worker has returned.
func (c *Coordinator) Run(ctx context.Context, symbols []string, quoteDate time.Time) (Summary, error) {
	var outcomes []fetcher.Outcome
	switch {
	case len(symbols) == 0:
		c.logger.Warn("No symbols to process")
	case c.mode == Parallel:
		outcomes = c.runParallel(ctx, symbols, quoteDate)
	default:
		outcomes = c.runSequential(ctx, symbols, quoteDate)
	}

	summary := Summary{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	stats, err := c.stats.Stats()
	if err != nil {
		return summary, fmt.Errorf("failed to collect run statistics: %w", err)
	}
	summary.Stats = stats

	c.logger.Info(fmt.Sprintf("Run finished: %d succeeded, %d failed, %d symbol directories, %d files",
		summary.Succeeded, summary.Failed, stats.Symbols, stats.Files))

	return summary, nil
}

func (c *Coordinator) runSequential(ctx context.Context, symbols []string, quoteDate time.Time) []fetcher.Outcome {
	outcomes := make([]fetcher.Outcome, 0, len(symbols))
	for _, symbol := range symbols {
		outcomes = append(outcomes, c.processor.Process(ctx, symbol, quoteDate))
	}
	return outcomes
}

func (c *Coordinator) runParallel(ctx context.Context, symbols []string, quoteDate time.Time) []fetcher.Outcome {
	p := pool.NewWithResults[fetcher.Outcome]().WithMaxGoroutines(c.workers)
	for _, symbol := range symbols {
		symbol := symbol
		p.Go(func() fetcher.Outcome {
			return c.processor.Process(ctx, symbol, quoteDate)
		})
	}
	return p.Wait()
}
