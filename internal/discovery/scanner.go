package discovery

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/handiism/kona-downloader/internal/model"
)

// ErrNoFiles is returned when a page has no downloadable file links.
var ErrNoFiles = errors.New("no files to download")

const (
	// DefaultLinkSelector matches file attachment anchors.
	DefaultLinkSelector = "a.file_item.attachment_icon_link"

	// DefaultEntrySelector matches the list the download controls attach to.
	DefaultEntrySelector = ".files ul.quick_view_pill_list"
)

// Scanner extracts file links from an HTML document.
//
// Example usage:
//
//	scanner := NewScanner(DefaultLinkSelector, DefaultEntrySelector)
//
//	links, err := scanner.Scan(strings.NewReader(html), pageURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, link := range links {
//	    fmt.Println(link.ID, link.URL)
//	}
type Scanner struct {
	linkSelector  string
	entrySelector string
}

// NewScanner creates a Scanner. Empty selectors fall back to the defaults.
func NewScanner(linkSelector, entrySelector string) *Scanner {
	if strings.TrimSpace(linkSelector) == "" {
		linkSelector = DefaultLinkSelector
	}
	if strings.TrimSpace(entrySelector) == "" {
		entrySelector = DefaultEntrySelector
	}
	return &Scanner{
		linkSelector:  linkSelector,
		entrySelector: entrySelector,
	}
}

// Scan returns the file links of the document in document order.
//
// Anchors without an href are skipped. Links are numbered from 0 in the
// order they are returned. base may be nil when every href is absolute.
//
// Returns ErrNoFiles if the document has no matching links.
func (s *Scanner) Scan(r io.Reader, base *url.URL) ([]model.Link, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return s.ScanDocument(doc, base)
}

// ScanDocument is Scan for an already parsed document.
func (s *Scanner) ScanDocument(doc *goquery.Document, base *url.URL) ([]model.Link, error) {
	base = documentBase(doc, base)

	var links []model.Link
	var scanErr error
	doc.Find(s.linkSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}

		link, err := model.NewLink(len(links), href, base)
		if err != nil {
			scanErr = err
			return false
		}
		links = append(links, link)
		return true
	})
	if scanErr != nil {
		return nil, scanErr
	}

	if len(links) == 0 {
		return nil, ErrNoFiles
	}
	return links, nil
}

// Attachable reports whether the document has the file list the download
// controls are attached to.
func (s *Scanner) Attachable(doc *goquery.Document) bool {
	return doc.Find(s.entrySelector).Length() > 0
}

// documentBase honours a <base href> element the way a browser would.
func documentBase(doc *goquery.Document, base *url.URL) *url.URL {
	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok {
		return base
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return base
	}
	if base == nil {
		if ref.IsAbs() {
			return ref
		}
		return nil
	}
	return base.ResolveReference(ref)
}
