package fetcher

import "context"

// Document is an options-chain payload decoded as an untyped JSON tree.
// Its shape is owned by the provider and is never validated here.
type Document = any

// Fetcher is the core interface used by the per-symbol worker.
// Implementations issue exactly one request per call; retry policy belongs
// to the caller.
type Fetcher interface {
	// Fetch retrieves the JSON document at url and decodes it.
	// Failures are returned as *FetchError.
	Fetch(ctx context.Context, url string, params map[string]string, opts ...RequestOption) (Document, error)
}

// PageFetcher retrieves raw page bodies, such as the symbol directory.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string, opts ...RequestOption) (string, error)
}

// RequestHeaders holds per-call overrides of the client's default headers.
// Empty fields keep the client default.
type RequestHeaders struct {
	UserAgent string
	Accept    string
}

// RequestOption customizes a single request
type RequestOption func(*RequestHeaders)

// WithUserAgent overrides the User-Agent header for one request
func WithUserAgent(userAgent string) RequestOption {
	return func(h *RequestHeaders) {
		h.UserAgent = userAgent
	}
}

// WithAccept overrides the Accept header for one request
func WithAccept(accept string) RequestOption {
	return func(h *RequestHeaders) {
		h.Accept = accept
	}
}

// ApplyOptions folds opts into a RequestHeaders value
func ApplyOptions(opts ...RequestOption) RequestHeaders {
	var h RequestHeaders
	for _, opt := range opts {
		opt(&h)
	}
	return h
}
