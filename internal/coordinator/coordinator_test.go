package coordinator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionsfetcher/internal/fetcher"
	"optionsfetcher/internal/logging"
	"optionsfetcher/internal/storage"
	"optionsfetcher/internal/testutil"
	"optionsfetcher/internal/worker"
)

var quoteDate = time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)

type processorFunc func(ctx context.Context, symbol string, quoteDate time.Time) fetcher.Outcome

func (f processorFunc) Process(ctx context.Context, symbol string, quoteDate time.Time) fetcher.Outcome {
	return f(ctx, symbol, quoteDate)
}

type stubStats struct {
	stats storage.Stats
	err   error
}

func (s stubStats) Stats() (storage.Stats, error) {
	return s.stats, s.err
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", Sequential, false},
		{"sequential", Sequential, false},
		{" Parallel ", Parallel, false},
		{"threads", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	coord := New(processorFunc(nil), stubStats{}, Options{})

	assert.Equal(t, Sequential, coord.mode)
	assert.Positive(t, coord.workers)
	assert.NotNil(t, coord.logger)
}

func TestRun_NoSymbols(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(logging.NewHandler(&logs, nil))
	stats := storage.Stats{Symbols: 7, Files: 40}
	coord := New(processorFunc(nil), stubStats{stats: stats}, Options{Logger: logger})

	for _, mode := range []Mode{Sequential, Parallel} {
		coord.mode = mode
		summary, err := coord.Run(context.Background(), nil, quoteDate)
		require.NoError(t, err)

		assert.Empty(t, summary.Outcomes)
		assert.Zero(t, summary.Succeeded)
		assert.Zero(t, summary.Failed)
		assert.Equal(t, stats, summary.Stats, "statistics still describe what is on disk")
	}
	assert.Equal(t, 2, strings.Count(logs.String(), " - WARNING - No symbols to process"))
}

func TestRun_SequentialPreservesOrder(t *testing.T) {
	var order []string
	proc := processorFunc(func(_ context.Context, symbol string, _ time.Time) fetcher.Outcome {
		order = append(order, symbol)
		return fetcher.Outcome{Symbol: symbol, Variation: symbol, Path: "p/" + symbol}
	})
	coord := New(proc, stubStats{stats: storage.Stats{Symbols: 3, Files: 3}}, Options{Mode: Sequential})

	summary, err := coord.Run(context.Background(), []string{"MSFT", "AAPL", "MSFT"}, quoteDate)
	require.NoError(t, err)

	assert.Equal(t, []string{"MSFT", "AAPL", "MSFT"}, order, "duplicates are processed twice")
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, storage.Stats{Symbols: 3, Files: 3}, summary.Stats)
}

func TestRun_FailureIsolation(t *testing.T) {
	for _, mode := range []Mode{Sequential, Parallel} {
		t.Run(string(mode), func(t *testing.T) {
			client := testutil.NewMockFetcher(map[string]fetcher.Document{
				"http://cdn/options/AAPL.json": map[string]any{"s": "AAPL"},
				"http://cdn/options/MSFT.json": map[string]any{"s": "MSFT"},
				"http://cdn/options/_SPX.json": map[string]any{"s": "_SPX"},
				"http://cdn/options/TSLA.json": map[string]any{"s": "TSLA"},
			})
			fs := afero.NewMemMapFs()
			store := storage.New(fs, "/data")
			w := worker.New(client, store, "http://cdn/options/{symbol}.json", nil, nil)
			coord := New(w, store, Options{Mode: mode, Workers: 2})

			summary, err := coord.Run(context.Background(), []string{"AAPL", "ZZZZ", "MSFT", "SPX", "TSLA"}, quoteDate)
			require.NoError(t, err)

			assert.Equal(t, 4, summary.Succeeded)
			assert.Equal(t, 1, summary.Failed)
			assert.Equal(t, []string{"ZZZZ"}, summary.FailedSymbols())
			assert.Equal(t, storage.Stats{Symbols: 4, Files: 4}, summary.Stats)
			assert.Len(t, summary.Outcomes, 5)

			for _, v := range []string{"AAPL", "MSFT", "_SPX", "TSLA"} {
				exists, err := afero.Exists(fs, store.ArtifactPath(v, quoteDate))
				require.NoError(t, err)
				assert.True(t, exists, v)
			}
			dirExists, err := afero.DirExists(fs, "/data/hub/options/ZZZZ")
			require.NoError(t, err)
			assert.False(t, dirExists)
		})
	}
}

func TestRun_ParallelRespectsWorkerBound(t *testing.T) {
	var inFlight, peak int32
	proc := processorFunc(func(_ context.Context, symbol string, _ time.Time) fetcher.Outcome {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return fetcher.Outcome{Symbol: symbol, Variation: symbol, Path: symbol}
	})
	coord := New(proc, stubStats{}, Options{Mode: Parallel, Workers: 3})

	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
	summary, err := coord.Run(context.Background(), symbols, quoteDate)
	require.NoError(t, err)

	assert.Equal(t, len(symbols), summary.Succeeded)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1), "work should overlap")
}

func TestRun_ParallelProcessesEverySymbol(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	proc := processorFunc(func(_ context.Context, symbol string, _ time.Time) fetcher.Outcome {
		mu.Lock()
		seen = append(seen, symbol)
		mu.Unlock()
		return fetcher.Outcome{Symbol: symbol, Err: errors.New("HTTP 404")}
	})
	coord := New(proc, stubStats{}, Options{Mode: Parallel})

	summary, err := coord.Run(context.Background(), []string{"C", "A", "B"}, quoteDate)
	require.NoError(t, err)

	sort.Strings(seen)
	assert.Equal(t, []string{"A", "B", "C"}, seen)
	assert.Equal(t, 3, summary.Failed)
}

func TestRun_StatsError(t *testing.T) {
	proc := processorFunc(func(_ context.Context, symbol string, _ time.Time) fetcher.Outcome {
		return fetcher.Outcome{Symbol: symbol, Variation: symbol, Path: symbol}
	})
	coord := New(proc, stubStats{err: errors.New("permission denied")}, Options{})

	summary, err := coord.Run(context.Background(), []string{"AAPL"}, quoteDate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to collect run statistics")
	assert.Equal(t, 1, summary.Succeeded, "outcomes are still reported")
}
