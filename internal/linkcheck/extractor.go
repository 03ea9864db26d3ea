// Package linkcheck verifies that internal links in rendered pages resolve
// to files in the output tree.
package linkcheck

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Link is a reference extracted from a rendered HTML page.
type Link struct {
	URL       string
	Text      string
	Tag       string
	Attribute string
	Internal  bool
}

// ExtractLinks parses an HTML file and returns every link-bearing element.
func ExtractLinks(htmlPath, baseURL string) ([]Link, error) {
	f, err := os.Open(filepath.Clean(htmlPath))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", htmlPath, err)
	}
	defer f.Close()
	return ExtractLinksFromReader(f, baseURL)
}

// ExtractLinksFromReader parses HTML from r and returns its links.
func ExtractLinksFromReader(r io.Reader, baseURL string) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}

	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if l, ok := elementLink(n, base); ok {
				links = append(links, l)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

func elementLink(n *html.Node, base *url.URL) (Link, bool) {
	var attr, text string
	switch n.Data {
	case "a", "link":
		attr, text = "href", nodeText(n)
		if n.Data == "link" {
			text = getAttr(n, "rel")
		}
	case "img":
		attr, text = "src", getAttr(n, "alt")
	case "script", "video", "audio", "source":
		attr = "src"
	default:
		return Link{}, false
	}

	val := getAttr(n, attr)
	if val == "" {
		return Link{}, false
	}
	return Link{
		URL:       val,
		Text:      text,
		Tag:       n.Data,
		Attribute: attr,
		Internal:  isInternal(val, base),
	}, true
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return strings.TrimSpace(b.String())
}

func isInternal(link string, base *url.URL) bool {
	if strings.HasPrefix(link, "#") ||
		strings.HasPrefix(link, "mailto:") ||
		strings.HasPrefix(link, "tel:") ||
		strings.HasPrefix(link, "javascript:") ||
		strings.HasPrefix(link, "data:") {
		return false // nothing to resolve on disk
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if u.Scheme == "" || u.Host == "" {
		return true
	}
	return base != nil && u.Host == base.Host
}
