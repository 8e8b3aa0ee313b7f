package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"optionsfetcher/internal/calendar"
	"optionsfetcher/internal/config"
	"optionsfetcher/internal/coordinator"
	"optionsfetcher/internal/fetcher"
	"optionsfetcher/internal/logging"
	"optionsfetcher/internal/ratelimit"
	"optionsfetcher/internal/report"
	"optionsfetcher/internal/storage"
	"optionsfetcher/internal/symbols"
	"optionsfetcher/internal/worker"
)

// environment carries the process-level collaborators a run depends on
type environment struct {
	fs     afero.Fs
	now    func() time.Time
	stderr io.Writer
	sender report.Sender
}

func newRootCmd(env environment) *cobra.Command {
	var docs, docsAlias bool

	cmd := &cobra.Command{
		Use:           "optionsfetcher",
		Short:         "Collect CBOE delayed options chains for a list of symbols",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if docs || docsAlias {
				fmt.Fprint(cmd.OutOrStdout(), documentation)
				return nil
			}

			// Load .env file if it exists
			_ = godotenv.Load()

			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, env)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&docs, "docs", "d", false, "Display documentation")
	flags.BoolVar(&docsAlias, "d", false, "Display documentation")
	_ = flags.MarkHidden("d")
	flags.String("config", "", "Config file (default ./config.yaml)")
	flags.String("base-dir", "", "Root directory for hub/, log/ and meta/")
	flags.Bool("parallel", false, "Fetch symbols on a worker pool")
	flags.Int("workers", 0, "Worker pool size (default: number of CPUs)")
	flags.Bool("live-symbols", true, "Scrape the symbol directory before using the cache")
	flags.Bool("report", false, "Email a summary when the run completes")
	flags.Bool("verbose", false, "Mirror log lines to stderr")

	return cmd
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	env := environment{
		fs:     afero.NewOsFs(),
		now:    time.Now,
		stderr: os.Stderr,
	}

	if err := newRootCmd(env).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one collection pass. It returns nil on completion and on the
// weekend short-circuit; per-symbol failures are only logged.
func run(ctx context.Context, cfg *config.Config, env environment) error {
	rc := calendar.NewRunContext(env.now())

	var mirror io.Writer
	if cfg.Verbose {
		mirror = env.stderr
	}
	logRun, err := logging.Open(env.fs, cfg.BaseDir, rc.RunStamp(), slog.LevelInfo, mirror)
	if err != nil {
		return err
	}
	defer logRun.Close()

	logger := logRun.Logger
	slog.SetDefault(logger)

	if cfg.SkipWeekends && rc.MarketClosed() {
		logger.Info(fmt.Sprintf("Quote date %s is a %s, markets closed; nothing to fetch", rc.QuoteStamp(), rc.QuoteDate.Weekday()))
		return nil
	}

	limiter := ratelimit.New(map[ratelimit.API]rate.Limit{
		ratelimit.APIOptions: rate.Limit(cfg.RequestsPerSecond),
		ratelimit.APISymbols: rate.Limit(cfg.RequestsPerSecond),
	})

	client := fetcher.NewClient(fetcher.Options{
		Timeout:   cfg.RequestTimeout,
		UserAgent: cfg.UserAgent,
		Accept:    cfg.Accept,
		Logger:    logger,
	})
	defer client.Close()

	var live symbols.Source
	if cfg.LiveSymbols {
		live = symbols.NewLiveSource(client, cfg.SymbolsURL, cfg.SymbolsColumn, limiter)
	}
	resolver := symbols.NewResolver(live, symbols.NewCache(env.fs, cfg.SymbolsPath()), logger)

	list, err := resolver.Resolve(ctx)
	if err != nil {
		logging.Critical(logger, fmt.Sprintf("No symbols available - %v", err))
		return err
	}

	mode := coordinator.Sequential
	if cfg.Parallel {
		mode = coordinator.Parallel
	}

	store := storage.New(env.fs, cfg.BaseDir)
	coord := coordinator.New(
		worker.New(client, store, cfg.OptionsURL, limiter, logger),
		store,
		coordinator.Options{Mode: mode, Workers: cfg.Workers, Logger: logger},
	)

	summary, err := coord.Run(ctx, list, rc.QuoteDate)
	if err != nil {
		return err
	}

	if !cfg.Report.Enabled {
		return nil
	}

	sender := env.sender
	if sender == nil {
		sender = report.NewMailer(report.SMTPConfig{
			Host:     cfg.Report.SMTPHost,
			Port:     cfg.Report.SMTPPort,
			Username: cfg.Report.Username,
			Password: cfg.Report.Password,
		})
	}

	reporter := report.NewReporter(sender, env.fs, cfg.Report.From, cfg.Report.Recipients)
	data := report.Data{
		NumSymbols:    summary.Stats.Symbols,
		NumFiles:      summary.Stats.Files,
		Succeeded:     summary.Succeeded,
		Failed:        summary.Failed,
		FailedSymbols: summary.FailedSymbols(),
		QuoteDate:     rc.QuoteStamp(),
		RunID:         rc.ID.String(),
	}
	if err := reporter.Send(ctx, data, logRun.Path, env.now()); err != nil {
		logger.Error(fmt.Sprintf("Report delivery failed - %v", err))
		return err
	}
	logger.Info(fmt.Sprintf("Report sent to %d recipients", len(cfg.Report.Recipients)))

	return nil
}
