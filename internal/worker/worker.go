// Package worker fetches and persists the options chain for one symbol,
// trying each resource-key variation in order until one succeeds.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"optionsfetcher/internal/fetcher"
	"optionsfetcher/internal/logging"
	"optionsfetcher/internal/ratelimit"
	"optionsfetcher/internal/symbols"
)

// SymbolPlaceholder is substituted with the variation in the resource URL template
const SymbolPlaceholder = "{symbol}"

// ErrEmptySymbol is returned for symbols that normalize to nothing
var ErrEmptySymbol = errors.New("empty symbol")

// Saver persists a fetched document. Rel shortens a saved path for logging.
type Saver interface {
	Save(variation string, doc fetcher.Document, quoteDate time.Time) (string, error)
	Rel(path string) string
}

// Worker processes single symbols. It holds no per-symbol state and is safe
// for concurrent use when its collaborators are.
type Worker struct {
	client      fetcher.Fetcher
	store       Saver
	urlTemplate string
	limiter     *ratelimit.Limiter
	logger      *slog.Logger
}

// New creates a new Worker. urlTemplate must contain SymbolPlaceholder.
func New(client fetcher.Fetcher, store Saver, urlTemplate string, limiter *ratelimit.Limiter, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		client:      client,
		store:       store,
		urlTemplate: urlTemplate,
		limiter:     limiter,
		logger:      logger,
	}
}

// ResourceURL returns the options chain URL for a variation, escaped as a
// single path segment
func (w *Worker) ResourceURL(variation string) string {
	return strings.ReplaceAll(w.urlTemplate, SymbolPlaceholder, url.PathEscape(variation))
}

// Process fetches and persists one symbol. Failures never escape as errors
// or panics; they are logged and reported in the returned Outcome.
func (w *Worker) Process(ctx context.Context, symbol string, quoteDate time.Time) fetcher.Outcome {
	sym := symbols.Normalize(symbol)
	outcome := fetcher.Outcome{Symbol: sym}
	if sym == "" {
		outcome.Err = ErrEmptySymbol
		w.logger.Warn(fmt.Sprintf("Skipping empty symbol entry %q", symbol))
		return outcome
	}

	for _, variation := range symbols.Variations(sym) {
		outcome.Attempts = append(outcome.Attempts, variation)

		path, err := w.attempt(ctx, variation, quoteDate)
		if err == nil {
			outcome.Variation = variation
			outcome.Path = path
			outcome.Err = nil
			w.logger.Info(fmt.Sprintf("Data received and saved at @root:%s", w.store.Rel(path)))
			return outcome
		}

		outcome.Err = err
		if fetcher.IsHTTPError(err) {
			w.logger.Warn(fmt.Sprintf("Failed to fetch data for symbol: %s - %v", variation, err))
			continue
		}
		logging.Critical(w.logger, fmt.Sprintf("Unhandled exception for symbol: %s - %v", variation, err))
	}

	return outcome
}

// attempt runs one variation, converting a collaborator panic into an error
func (w *Worker) attempt(ctx context.Context, variation string, quoteDate time.Time) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := w.limiter.Wait(ctx, ratelimit.APIOptions); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	doc, err := w.client.Fetch(ctx, w.ResourceURL(variation), nil)
	if err != nil {
		return "", err
	}

	return w.store.Save(variation, doc, quoteDate)
}
