package model

import (
	"fmt"
	"net/url"
	"strings"
)

// Link represents a downloadable file discovered on a page.
//
// Link is created once by discovery and never modified afterwards:
//   - ID is the zero-based discovery index, used as the progress key
//   - Href is the raw attribute value found in the document
//   - URL is Href resolved against the page URL
//
// Example:
//
//	base, _ := url.Parse("https://example.com/course/")
//	link, err := NewLink(0, "files/notes.pdf", base)
//	// link.URL.String() = "https://example.com/course/files/notes.pdf"
type Link struct {
	// ID is the discovery index of the link (0-based).
	ID int

	// Href is the unresolved href attribute.
	Href string

	// URL is the absolute URL the file is fetched from.
	URL *url.URL
}

// NewLink creates a Link, resolving href against base.
//
// A nil base requires href to be absolute.
func NewLink(id int, href string, base *url.URL) (Link, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return Link{}, fmt.Errorf("invalid link %q: %w", href, err)
	}

	resolved := ref
	if base != nil {
		resolved = base.ResolveReference(ref)
	}
	if !resolved.IsAbs() {
		return Link{}, fmt.Errorf("link %q is not absolute", href)
	}

	return Link{ID: id, Href: href, URL: resolved}, nil
}

// String returns the absolute URL of the link.
func (l Link) String() string {
	if l.URL == nil {
		return l.Href
	}
	return l.URL.String()
}

// FileNameFromURL returns the final path segment of u.
//
// The segment is returned as it appears in the escaped path, so
// "https://host/a/my%20file.pdf" yields "my%20file.pdf". An empty string is
// returned when the path ends with a slash.
func FileNameFromURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	p := u.EscapedPath()
	return p[strings.LastIndex(p, "/")+1:]
}

// FileName returns the archive entry name for the link: the final path
// segment, or "file-<n>" when the URL has none.
func (l Link) FileName() string {
	name := FileNameFromURL(l.URL)
	if name == "" || name == "." || name == ".." {
		return fmt.Sprintf("file-%d", l.ID+1)
	}
	return name
}
