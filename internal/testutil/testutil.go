package testutil

import (
	"context"
	"sync"
	"time"

	"optionsfetcher/internal/fetcher"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing.
// Calls are recorded in order and safe for concurrent use.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, url string) (fetcher.Document, error)

	mu    sync.Mutex
	calls []string
}

// Fetch implements the Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context, url string, _ map[string]string, _ ...fetcher.RequestOption) (fetcher.Document, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, url)
	}
	return map[string]any{}, nil
}

// Calls returns the URLs requested so far, in call order
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// NewMockFetcher creates a mock that answers from responses keyed by URL.
// URLs missing from responses fail with HTTP 404.
func NewMockFetcher(responses map[string]fetcher.Document) *MockFetcher {
	return &MockFetcher{
		FetchFunc: func(_ context.Context, url string) (fetcher.Document, error) {
			doc, ok := responses[url]
			if !ok {
				return nil, fetcher.NewHTTPError(url, 404)
			}
			return doc, nil
		},
	}
}

// MockSaver records saves without touching a filesystem
type MockSaver struct {
	SaveFunc func(variation string, doc fetcher.Document, quoteDate time.Time) (string, error)

	mu    sync.Mutex
	saved []string
}

// Save implements worker.Saver
func (m *MockSaver) Save(variation string, doc fetcher.Document, quoteDate time.Time) (string, error) {
	if m.SaveFunc != nil {
		path, err := m.SaveFunc(variation, doc, quoteDate)
		if err != nil {
			return "", err
		}
		m.record(variation)
		return path, nil
	}
	m.record(variation)
	return "mock/" + variation + ".json", nil
}

// Rel implements worker.Saver
func (m *MockSaver) Rel(path string) string {
	return path
}

// Saved returns the variations saved so far
func (m *MockSaver) Saved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.saved...)
}

func (m *MockSaver) record(variation string) {
	m.mu.Lock()
	m.saved = append(m.saved, variation)
	m.mu.Unlock()
}
