// Package http provides the HTTP client kona uses to load pages and fetch
// attachment bytes.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Optional per-request timeouts on top of context cancellation
//   - Binary downloads into memory with progress and lifecycle callbacks
//   - Human-readable transport errors
//
// # Basic Usage
//
//	client := http.NewClient(http.WithUserAgent("KonaDownloader/1.0"))
//
//	// Fetch HTML page
//	page, err := client.GetString(ctx, "https://example.com/course/files")
//
//	// Fetch one attachment
//	res, err := client.Fetch(ctx, link, nil, func(loaded, total int64, known bool) {
//	    if known {
//	        fmt.Printf("%d / %d\n", loaded, total)
//	    }
//	})
//
// # Lifecycle
//
// Fetch walks through the states Unsent, Opened, HeadersReceived, Loading
// and Done. A request that reaches Done without a payload is reported as a
// transport failure even when the underlying client returned no error.
//
// # Errors
//
// Failures are returned as *TransportError. Its Message method prefers the
// reason given by the transport, then the HTTP status text, and finally the
// generic "connection failed." text.
package http
