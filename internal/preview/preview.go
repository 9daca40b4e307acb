// Package preview extracts Open Graph metadata from a linked page so the
// digest pipeline can store descriptive text instead of a bare URL.
package preview

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	fetchTimeout = 10 * time.Second
	maxBodySize  = 2 * 1024 * 1024
)

// Fetcher retrieves and parses link previews.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with a bounded-timeout HTTP client.
func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: fetchTimeout}}
}

// IsBareURL reports whether content is a single naked link: it starts with
// http and contains no whitespace.
func IsBareURL(content string) bool {
	return strings.HasPrefix(content, "http") && !strings.ContainsAny(content, " \t\n\r")
}

// Describe fetches the URL and renders its meta tags as descriptive text.
// On any failure, or when the page carries no usable metadata, the original
// URL is returned unchanged; ingestion never loses the message over a
// preview problem.
func (f *Fetcher) Describe(ctx context.Context, url string) string {
	pairs, err := f.fetchMeta(ctx, url)
	if err != nil || len(pairs) == 0 {
		return url
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Linked page info for %s:\n", url)
	for _, p := range pairs {
		fmt.Fprintf(&b, "%s: %s\n", p[0], p[1])
	}
	return b.String()
}

func (f *Fetcher) fetchMeta(ctx context.Context, url string) ([][2]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	return collectMeta(doc), nil
}

// collectMeta walks the document and gathers og:* properties and generic
// name/content meta pairs in document order.
func collectMeta(doc *html.Node) [][2]string {
	var pairs [][2]string
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var property, name, content string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "property":
					property = attr.Val
				case "name":
					name = attr.Val
				case "content":
					content = attr.Val
				}
			}

			key := ""
			if strings.HasPrefix(property, "og:") {
				key = strings.TrimPrefix(property, "og:")
			} else if name != "" {
				key = name
			}
			if key != "" && content != "" && !seen[key] {
				seen[key] = true
				pairs = append(pairs, [2]string{key, content})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return pairs
}
