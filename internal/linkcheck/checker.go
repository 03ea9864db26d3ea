package linkcheck

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/blogsmith/blogsmith/internal/logfields"
)

// Broken records an internal link whose target does not exist in the
// output tree.
type Broken struct {
	Page   string // page containing the link, relative to the output root
	Link   Link
	Target string // resolved path that was checked, relative to the output root
}

func (b Broken) String() string {
	return fmt.Sprintf("%s: <%s %s=%q> -> %s", b.Page, b.Link.Tag, b.Link.Attribute, b.Link.URL, b.Target)
}

// Checker verifies internal links across a rendered output directory.
type Checker struct {
	outputDir string
	base      *url.URL
}

// NewChecker creates a checker for the given output tree. baseURL lets
// absolute links to the site's own host be treated as internal.
func NewChecker(outputDir, baseURL string) (*Checker, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	return &Checker{outputDir: outputDir, base: base}, nil
}

// Check walks every .html file under the output directory and returns the
// internal links that do not resolve to a file.
func (c *Checker) Check() ([]Broken, error) {
	var broken []Broken
	pages := 0

	err := filepath.WalkDir(c.outputDir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			return nil
		}
		pages++
		rel, err := filepath.Rel(c.outputDir, p)
		if err != nil {
			return err
		}
		relSlash := filepath.ToSlash(rel)

		links, err := ExtractLinks(p, c.base.String())
		if err != nil {
			return fmt.Errorf("extract links from %s: %w", relSlash, err)
		}
		for _, l := range links {
			if !l.Internal {
				continue
			}
			target, ok := c.resolve(relSlash, l.URL)
			if !ok {
				continue
			}
			if !c.targetExists(target) {
				broken = append(broken, Broken{Page: relSlash, Link: l, Target: target})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Link check complete",
		logfields.Count(pages),
		slog.Int("broken", len(broken)))
	return broken, nil
}

// resolve maps a link found on page to an output-relative path. The second
// return is false for links that carry no path at all (pure fragments).
func (c *Checker) resolve(page, link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	if u.Path == "" {
		return "", false
	}

	p := u.Path
	if c.base.Path != "" && c.base.Path != "/" {
		p = strings.TrimPrefix(p, strings.TrimSuffix(c.base.Path, "/"))
	}
	if !strings.HasPrefix(p, "/") {
		p = path.Join("/", path.Dir(page), p)
	}
	return path.Clean(strings.TrimPrefix(p, "/")), true
}

// targetExists checks the output tree for the resolved path, accepting
// directory-style permalinks that land on index.html.
func (c *Checker) targetExists(target string) bool {
	full := filepath.Join(c.outputDir, filepath.FromSlash(target))
	info, err := os.Stat(full)
	if err == nil {
		if !info.IsDir() {
			return true
		}
		_, err = os.Stat(filepath.Join(full, "index.html"))
		return err == nil
	}
	return false
}
