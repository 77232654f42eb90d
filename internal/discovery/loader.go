package discovery

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageGetter loads the body of a page.
type PageGetter interface {
	GetString(ctx context.Context, url string) (string, error)
}

// LoadDocument loads and parses the page at source.
//
// source is either an http(s) URL or a path to a saved HTML file. The
// returned URL is the base relative links are resolved against; for local
// files it is a file:// URL, so the page should carry absolute links or a
// <base href>.
func LoadDocument(ctx context.Context, getter PageGetter, source string) (*goquery.Document, *url.URL, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		base, err := url.Parse(source)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid page URL %q: %w", source, err)
		}

		body, err := getter.GetString(ctx, source)
		if err != nil {
			return nil, nil, err
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse page %s: %w", source, err)
		}
		return doc, base, nil
	}

	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse page %s: %w", abs, err)
	}
	return doc, &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}, nil
}
