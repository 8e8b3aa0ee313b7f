package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"optionsfetcher/internal/fetcher"
	"optionsfetcher/internal/logging"
	"optionsfetcher/internal/ratelimit"
	"optionsfetcher/internal/storage"
	"optionsfetcher/internal/testutil"
)

const urlTemplate = "https://cdn.example.com/options/{symbol}.json"

var quoteDate = time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)

func newTestWorker(client fetcher.Fetcher, saver Saver) (*Worker, *bytes.Buffer) {
	var logs bytes.Buffer
	logger := slog.New(logging.NewHandler(&logs, nil))
	return New(client, saver, urlTemplate, nil, logger), &logs
}

func countLines(logs, level, needle string) int {
	n := 0
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, " - "+level+" - ") && strings.Contains(line, needle) {
			n++
		}
	}
	return n
}

func TestResourceURL(t *testing.T) {
	w, _ := newTestWorker(&testutil.MockFetcher{}, &testutil.MockSaver{})
	assert.Equal(t, "https://cdn.example.com/options/_SPX.json", w.ResourceURL("_SPX"))
	assert.Equal(t, "https://cdn.example.com/options/..%2FX.json", w.ResourceURL("../X"))
	assert.Equal(t, "https://cdn.example.com/options/A%2FB.json", w.ResourceURL("A/B"))
}

func TestProcess_LogsPathRelativeToRoot(t *testing.T) {
	client := testutil.NewMockFetcher(map[string]fetcher.Document{
		"https://cdn.example.com/options/AAPL.json": map[string]any{},
	})
	w, logs := newTestWorker(client, storage.New(afero.NewMemMapFs(), "/data"))

	outcome := w.Process(context.Background(), "AAPL", quoteDate)

	require.True(t, outcome.Succeeded())
	assert.Contains(t, logs.String(), "@root:hub/options/AAPL/options-chain-AAPL-10062024.json")
	assert.NotContains(t, logs.String(), "@root:/data")
}

func TestProcess_PathLikeSymbolStaysInsideArtifactTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	client := &testutil.MockFetcher{
		FetchFunc: func(context.Context, string) (fetcher.Document, error) {
			return map[string]any{"symbol": "x"}, nil
		},
	}
	w, logs := newTestWorker(client, storage.New(fs, "/data"))

	for _, symbol := range []string{"../X", "A/B", "../../meta"} {
		outcome := w.Process(context.Background(), symbol, quoteDate)
		assert.False(t, outcome.Succeeded(), symbol)
		assert.ErrorIs(t, outcome.Err, storage.ErrInvalidVariation, symbol)
	}

	for _, call := range client.Calls() {
		assert.NotContains(t, call, "/../", "variation must be escaped in %s", call)
	}
	assert.Equal(t, 6, countLines(logs.String(), "CRITICAL", "invalid variation name"))

	exists, err := afero.DirExists(fs, "/data")
	require.NoError(t, err)
	assert.False(t, exists, "no directory may be created for a rejected variation")
}

func TestProcess_RateLimiterCancelledIsCritical(t *testing.T) {
	limiter := ratelimit.New(map[ratelimit.API]rate.Limit{ratelimit.APIOptions: rate.Limit(0.001)})
	client := &testutil.MockFetcher{}
	var logs bytes.Buffer
	w := New(client, &testutil.MockSaver{}, urlTemplate, limiter, slog.New(logging.NewHandler(&logs, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := w.Process(ctx, "AAPL", quoteDate)

	assert.False(t, outcome.Succeeded())
	assert.ErrorIs(t, outcome.Err, context.Canceled)
	assert.Empty(t, client.Calls())
	assert.Equal(t, 2, countLines(logs.String(), "CRITICAL", "rate limiter"))
}

func TestProcess_RateLimiterPacesRequests(t *testing.T) {
	limiter := ratelimit.New(map[ratelimit.API]rate.Limit{ratelimit.APIOptions: rate.Every(50 * time.Millisecond)})
	client := testutil.NewMockFetcher(map[string]fetcher.Document{
		"https://cdn.example.com/options/A.json": map[string]any{},
		"https://cdn.example.com/options/B.json": map[string]any{},
		"https://cdn.example.com/options/C.json": map[string]any{},
	})
	w := New(client, &testutil.MockSaver{}, urlTemplate, limiter, slog.New(logging.NewHandler(io.Discard, nil)))

	start := time.Now()
	for _, symbol := range []string{"A", "B", "C"} {
		require.True(t, w.Process(context.Background(), symbol, quoteDate).Succeeded())
	}

	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestProcess_PrimaryVariationSucceeds(t *testing.T) {
	client := testutil.NewMockFetcher(map[string]fetcher.Document{
		"https://cdn.example.com/options/AAPL.json": map[string]any{"symbol": "AAPL"},
	})
	store := storage.New(afero.NewMemMapFs(), "/data")
	w, logs := newTestWorker(client, store)

	outcome := w.Process(context.Background(), " aapl ", quoteDate)

	require.True(t, outcome.Succeeded())
	assert.Equal(t, "AAPL", outcome.Symbol)
	assert.Equal(t, "AAPL", outcome.Variation)
	assert.Equal(t, store.ArtifactPath("AAPL", quoteDate), outcome.Path)
	assert.Equal(t, []string{"AAPL"}, outcome.Attempts)
	assert.Equal(t, []string{"https://cdn.example.com/options/AAPL.json"}, client.Calls(), "alias must not be tried after success")
	assert.Equal(t, 1, countLines(logs.String(), "INFO", "Data received and saved"))
}

func TestProcess_FallsBackToAlias(t *testing.T) {
	client := testutil.NewMockFetcher(map[string]fetcher.Document{
		"https://cdn.example.com/options/_SPX.json": map[string]any{"symbol": "_SPX"},
	})
	fs := afero.NewMemMapFs()
	store := storage.New(fs, "/data")
	w, logs := newTestWorker(client, store)

	outcome := w.Process(context.Background(), "SPX", quoteDate)

	require.True(t, outcome.Succeeded())
	assert.Equal(t, "SPX", outcome.Symbol)
	assert.Equal(t, "_SPX", outcome.Variation)
	assert.Equal(t, []string{
		"https://cdn.example.com/options/SPX.json",
		"https://cdn.example.com/options/_SPX.json",
	}, client.Calls())
	assert.Equal(t, 1, countLines(logs.String(), "WARNING", "symbol: SPX -"))

	exists, err := afero.Exists(fs, "/data/hub/options/_SPX/options-chain-_SPX-10062024.json")
	require.NoError(t, err)
	assert.True(t, exists, "artifact keyed by the variation used")
	exists, err = afero.DirExists(fs, "/data/hub/options/SPX")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestProcess_AllVariationsFail(t *testing.T) {
	client := testutil.NewMockFetcher(nil)
	saver := &testutil.MockSaver{}
	w, logs := newTestWorker(client, saver)

	outcome := w.Process(context.Background(), "ZZZZ", quoteDate)

	assert.False(t, outcome.Succeeded())
	assert.Empty(t, outcome.Variation)
	assert.Empty(t, outcome.Path)
	assert.Equal(t, []string{"ZZZZ", "_ZZZZ"}, outcome.Attempts)
	assert.Equal(t, 404, fetcher.StatusCode(outcome.Err))
	assert.Empty(t, saver.Saved())
	assert.Equal(t, 2, countLines(logs.String(), "WARNING", "ZZZZ"))
}

func TestProcess_TransportErrorIsCritical(t *testing.T) {
	client := &testutil.MockFetcher{
		FetchFunc: func(_ context.Context, url string) (fetcher.Document, error) {
			if strings.HasSuffix(url, "/QQQ.json") {
				return nil, fetcher.NewTransportError(url, "request failed", errors.New("connection reset"))
			}
			return map[string]any{"symbol": "_QQQ"}, nil
		},
	}
	w, logs := newTestWorker(client, &testutil.MockSaver{})

	outcome := w.Process(context.Background(), "QQQ", quoteDate)

	require.True(t, outcome.Succeeded(), "transport failure must not stop the next variation")
	assert.Equal(t, "_QQQ", outcome.Variation)
	assert.Equal(t, 1, countLines(logs.String(), "CRITICAL", "Unhandled exception for symbol: QQQ"))
}

func TestProcess_PersistenceErrorContinues(t *testing.T) {
	client := testutil.NewMockFetcher(map[string]fetcher.Document{
		"https://cdn.example.com/options/VIX.json":  map[string]any{},
		"https://cdn.example.com/options/_VIX.json": map[string]any{},
	})
	saver := &testutil.MockSaver{
		SaveFunc: func(variation string, _ fetcher.Document, _ time.Time) (string, error) {
			if variation == "VIX" {
				return "", &storage.PersistenceError{Path: "/data/hub/options/VIX", Op: "mkdir", Cause: errors.New("disk full")}
			}
			return "/data/hub/options/_VIX/x.json", nil
		},
	}
	w, logs := newTestWorker(client, saver)

	outcome := w.Process(context.Background(), "VIX", quoteDate)

	require.True(t, outcome.Succeeded())
	assert.Equal(t, "_VIX", outcome.Variation)
	assert.Equal(t, []string{"_VIX"}, saver.Saved())
	assert.Equal(t, 1, countLines(logs.String(), "CRITICAL", "disk full"))
}

func TestProcess_PanicIsContained(t *testing.T) {
	client := &testutil.MockFetcher{
		FetchFunc: func(context.Context, string) (fetcher.Document, error) {
			panic("boom")
		},
	}
	w, logs := newTestWorker(client, &testutil.MockSaver{})

	var outcome fetcher.Outcome
	require.NotPanics(t, func() {
		outcome = w.Process(context.Background(), "AAPL", quoteDate)
	})
	assert.False(t, outcome.Succeeded())
	assert.Contains(t, outcome.Err.Error(), "panic: boom")
	assert.Equal(t, 2, countLines(logs.String(), "CRITICAL", "panic: boom"))
}

func TestProcess_EmptySymbol(t *testing.T) {
	client := &testutil.MockFetcher{}
	w, _ := newTestWorker(client, &testutil.MockSaver{})

	outcome := w.Process(context.Background(), "   ", quoteDate)

	assert.ErrorIs(t, outcome.Err, ErrEmptySymbol)
	assert.Empty(t, client.Calls())
}
