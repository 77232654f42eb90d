// Package discovery finds the downloadable file links on a page.
//
// The package handles two use cases:
//
//  1. Scanning a document for file attachment anchors
//  2. Checking whether the page has the file list the download controls
//     attach to
//
// # Scanning
//
//	scanner := discovery.NewScanner(discovery.DefaultLinkSelector, discovery.DefaultEntrySelector)
//	links, err := scanner.Scan(strings.NewReader(html), pageURL)
//	if errors.Is(err, discovery.ErrNoFiles) {
//	    fmt.Println("nothing to download")
//	}
//
// Links are returned in document order and their hrefs are resolved against
// the page URL, so relative attachment paths become absolute URLs.
//
// # Loading documents
//
// LoadDocument reads a page either over HTTP or from a local file:
//
//	doc, base, err := discovery.LoadDocument(ctx, client, "https://example.com/course/files")
package discovery
