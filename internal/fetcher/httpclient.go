package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"resty.dev/v3"
)

const (
	// DefaultTimeout bounds a single request, connection through body read
	DefaultTimeout = 100 * time.Second
	// DefaultUserAgent mimics a desktop browser; the CDN rejects obvious bots
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:88.0) Gecko/20100101 Firefox/88.0"
	// DefaultAccept is the Accept header sent with every request
	DefaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
)

// Options configures the HTTP client
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Accept    string
	Logger    *slog.Logger
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
		Accept:    DefaultAccept,
	}
}

// Client issues single GET requests and maps failures onto FetchError.
// It is safe for concurrent use.
type Client struct {
	client *resty.Client
	logger *slog.Logger
}

// NewClient creates a new HTTP client. Zero-valued options fall back to defaults.
func NewClient(opts Options) *Client {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.Accept == "" {
		opts.Accept = def.Accept
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		client: NewHTTPClient(opts.Timeout, opts.UserAgent, opts.Accept, logger),
		logger: logger,
	}
}

// NewHTTPClient creates the underlying resty client.
// Retries are disabled: the caller decides what to try next.
func NewHTTPClient(timeout time.Duration, userAgent, accept string, logger *slog.Logger) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", accept).
		SetLogger(restyLogger{logger: logger})
}

// Close releases idle connections held by the client
func (c *Client) Close() error {
	return c.client.Close()
}

// Fetch retrieves the JSON document at url
func (c *Client) Fetch(ctx context.Context, url string, params map[string]string, opts ...RequestOption) (Document, error) {
	body, err := c.get(ctx, url, params, opts)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		fetchErr := NewTransportError(url, "malformed JSON response", err)
		c.logger.Error(fmt.Sprintf("An error occurred while fetching URL: %s - %v", url, fetchErr))
		return nil, fetchErr
	}

	return doc, nil
}

// FetchPage retrieves the raw body at url
func (c *Client) FetchPage(ctx context.Context, url string, opts ...RequestOption) (string, error) {
	body, err := c.get(ctx, url, nil, opts)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) get(ctx context.Context, url string, params map[string]string, opts []RequestOption) ([]byte, error) {
	req := c.client.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParams(params)
	}

	headers := ApplyOptions(opts...)
	if headers.UserAgent != "" {
		req.SetHeader("User-Agent", headers.UserAgent)
	}
	if headers.Accept != "" {
		req.SetHeader("Accept", headers.Accept)
	}

	resp, err := req.Get(url)
	if err != nil {
		fetchErr := NewTransportError(url, "request failed", err)
		c.logger.Error(fmt.Sprintf("An error occurred while fetching URL: %s - %v", url, fetchErr))
		return nil, fetchErr
	}

	if !resp.IsSuccess() {
		fetchErr := NewHTTPError(url, resp.StatusCode())
		c.logger.Error(fmt.Sprintf("HTTP error occurred for URL: %s - Status Code: %d - %v", url, resp.StatusCode(), fetchErr))
		return nil, fetchErr
	}

	c.logger.Info(fmt.Sprintf("Successfully fetched data for URL: %s", url))
	return resp.Bytes(), nil
}

// restyLogger routes resty's internal diagnostics through slog
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}
