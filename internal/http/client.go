package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// Common errors.
var (
	ErrNotFound         = errors.New("http: resource not found")
	ErrForbidden        = errors.New("http: access forbidden")
	ErrUnexpectedStatus = errors.New("http: unexpected status")
	ErrRetriesExhausted = errors.New("http: connection retries exhausted")
)

// Options configures the Client.
type Options struct {
	// Timeout bounds Get/GetJSON requests and the wait for response headers
	// of streaming requests. Zero disables it.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// MaxRetries is how many times a request is retried after a
	// connection-level failure. Status errors are never retried.
	MaxRetries int

	// RetryCooldown is the wait before the first retry; each further retry
	// waits RetryExponent times longer.
	RetryCooldown time.Duration
	RetryExponent float64

	// Transport overrides the default transport. Mostly useful in tests.
	Transport http.RoundTripper

	// Logger receives retry warnings. Nil discards them.
	Logger *slog.Logger
}

// DefaultOptions returns the options used by the CLI unless overridden.
func DefaultOptions() Options {
	return Options{
		Timeout:       60 * time.Second,
		UserAgent:     "thucloud-dl",
		MaxRetries:    3,
		RetryCooldown: 200 * time.Millisecond,
		RetryExponent: 4.0,
	}
}

// Client wraps HTTP operations against a share server.
//
// Client provides:
//   - Configured User-Agent header
//   - A fixed retry budget for connection failures, with exponential cooldown
//   - JSON listing requests bounded by Options.Timeout
//   - Streaming downloads bounded only by the caller's context
//
// Example usage:
//
//	client := NewClient(DefaultOptions())
//
//	// Fetch the share landing page
//	html, err := client.GetString(ctx, "https://cloud.tsinghua.edu.cn/d/0123456789abcdef0123/")
//
//	// Stream a file
//	stream, err := client.Open(ctx, downloadURL)
//	defer stream.Body.Close()
type Client struct {
	httpClient *http.Client
	opts       Options
	log        *slog.Logger
}

// NewClient creates a new Client with the given options.
func NewClient(opts Options) *Client {
	transport := opts.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.ResponseHeaderTimeout = opts.Timeout
		transport = t
	}
	if opts.RetryExponent < 1 {
		opts.RetryExponent = 1
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		// No client-wide timeout: it would also cut off long streaming bodies.
		httpClient: &http.Client{Transport: transport},
		opts:       opts,
		log:        log.With(slog.String("item", "HTTPClient")),
	}
}

// Stream is an open response body for a streaming download.
//
// The caller must close Body.
type Stream struct {
	Body io.ReadCloser

	// ContentLength is the announced length, or -1 if unknown.
	ContentLength int64
}

// ProgressWriter wraps a writer to track download progress.
//
// OnUpdate is called after each successful Write with the number of bytes
// just written and the running total.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    OnUpdate: func(n, written int64) {
//	        aggregate.Add(n)
//	    },
//	}
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with (bytesJustWritten, bytesWrittenSoFar).
	OnUpdate func(n, written int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil && n > 0 {
		pw.OnUpdate(int64(n), pw.Written)
	}
	return n, err
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns an error if:
//   - The connection keeps failing after the retry budget
//   - The response status is not 2xx
//   - Reading the body fails
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// GetString performs a GET request and returns the response body as a string.
func (c *Client) GetString(ctx context.Context, url string) (string, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetJSON performs a GET request and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

// Open starts a streaming GET request.
//
// Connection failures are retried within the retry budget. Once Open
// returns, nothing is retried: read errors surface to the caller.
func (c *Client) Open(ctx context.Context, url string) (*Stream, error) {
	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Stream{Body: resp.Body, ContentLength: resp.ContentLength}, nil
}

func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			c.log.Warn("Retrying request",
				slog.String("url", url),
				slog.Int("attempt", attempt),
				slog.Any("error", lastErr),
			)
			if err := c.waitForRetry(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if c.opts.UserAgent != "" {
			req.Header.Set("User-Agent", c.opts.UserAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if err := checkStatusCode(resp.StatusCode); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("GET %s: %w", url, err)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, c.opts.MaxRetries+1, lastErr)
}

// waitForRetry sleeps RetryCooldown * RetryExponent^tries, or until ctx is done.
func (c *Client) waitForRetry(ctx context.Context, tries int) error {
	cooldown := time.Duration(float64(c.opts.RetryCooldown) * math.Pow(c.opts.RetryExponent, float64(tries)))

	timer := time.NewTimer(cooldown)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden || code == http.StatusUnauthorized:
		return ErrForbidden
	default:
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, code, http.StatusText(code))
	}
}
