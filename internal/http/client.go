package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/handiism/kona-downloader/internal/model"
)

// maxPrealloc caps the buffer reserved up front from Content-Length.
const maxPrealloc = 64 << 20

// Client wraps HTTP operations with kona-specific configuration.
//
// Client provides:
//   - Configured User-Agent header
//   - Optional timeout handling
//   - In-memory binary downloads with progress tracking
//
// Example usage:
//
//	client := NewClient()
//
//	// Fetch HTML content
//	html, err := client.GetString(ctx, "https://example.com/course/files")
//
//	// Fetch a file with progress
//	res, err := client.Fetch(ctx, link, nil, func(loaded, total int64, known bool) {
//	    if known {
//	        fmt.Printf("%.1f%%\n", float64(loaded)/float64(total)*100)
//	    }
//	})
type Client struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout bounds every request. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new HTTP client.
//
// By default the client:
//   - has no timeout, relying on context cancellation
//   - sends a "KonaDownloader/1.0" User-Agent header
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		userAgent:  "KonaDownloader/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProgressWriter wraps a writer to track download progress.
//
// Use this to monitor large downloads by providing an OnUpdate callback
// that receives the current bytes written and total expected bytes.
// Total is -1 when the size is unknown.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: &buf,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	// Parameters are (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns a *TransportError if:
//   - The request fails
//   - The response status is not 2xx
//   - Reading the body fails
//
// Example:
//
//	data, err := client.Get(ctx, "https://example.com/course/files")
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Reason: err.Error(), Err: err}
	}
	return body, nil
}

// GetString performs a GET request and returns the response body as a string.
//
// This is a convenience wrapper around Get for fetching HTML pages.
func (c *Client) GetString(ctx context.Context, url string) (string, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// StateFunc receives lifecycle transitions of a fetch.
type StateFunc func(link model.Link, state State)

// ProgressFunc receives byte-level progress of a fetch. known is false when
// the server did not announce a length.
type ProgressFunc func(loaded, total int64, known bool)

// Fetch downloads the file behind link into memory.
//
// onState and onProgress may be nil. The returned FetchResult carries the
// entry name derived from the link URL.
//
// Example:
//
//	res, err := client.Fetch(ctx, link, func(l model.Link, s State) {
//	    if s == StateOpened {
//	        tracker.GetOrCreate(l)
//	    }
//	}, nil)
func (c *Client) Fetch(ctx context.Context, link model.Link, onState StateFunc, onProgress ProgressFunc) (*model.FetchResult, error) {
	setState := func(s State) {
		if onState != nil {
			onState(link, s)
		}
	}
	rawURL := link.String()

	setState(StateUnsent)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	setState(StateOpened)
	resp, err := c.do(ctx, rawURL)
	if err != nil {
		setState(StateDone)
		return nil, err
	}
	defer resp.Body.Close()

	setState(StateHeadersReceived)

	total := resp.ContentLength
	known := total >= 0

	var buf bytes.Buffer
	if known && total <= maxPrealloc {
		buf.Grow(int(total))
	}

	writer := &ProgressWriter{
		Writer: &buf,
		Total:  total,
		OnUpdate: func(written, total int64) {
			if onProgress != nil {
				onProgress(written, total, known)
			}
		},
	}

	setState(StateLoading)
	_, err = io.Copy(writer, resp.Body)
	setState(StateDone)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Reason: err.Error(), Err: err}
	}
	if known && writer.Written < total {
		return nil, &TransportError{URL: rawURL, Reason: fmt.Sprintf("short body: got %d of %d bytes", writer.Written, total)}
	}

	return model.NewFetchResult(link, buf.Bytes()), nil
}

func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Reason: err.Error(), Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newRequestError(url, err)
	}
	if resp == nil || resp.Body == nil {
		return nil, &TransportError{URL: url}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &TransportError{
			URL:        url,
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
		}
	}

	return resp, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}
