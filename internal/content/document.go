// Package content models and discovers the Markdown documents of a site.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/blogsmith/blogsmith/internal/frontmatter"
)

// Kind distinguishes dated posts from standalone pages.
type Kind string

const (
	KindPost Kind = "post"
	KindPage Kind = "page"
)

// Document represents a single content item processed by the render pipeline.
type Document struct {
	SourcePath string // absolute path to the source file
	RelPath    string // path relative to the content dir, forward slashes
	RepoPath   string // path relative to the enclosing git worktree (set by the builder)
	Kind       Kind

	Slug    string
	Title   string
	Date    time.Time  // declared creation date from front matter
	Lastmod *time.Time // derived from git history; nil when unknown
	Draft   bool
	Tags    []string
	Summary string

	FrontMatter map[string]any
	Body        []byte // markdown body, front matter removed
	HTML        string // rendered body, set by the renderer

	ContentHash string // sha256 of the raw source file
}

// date layouts accepted in front matter, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NewDocument parses raw file bytes into a Document.
//
// The title falls back to the file name; the renderer may later replace it
// with the first heading. A missing date stays zero for pages and is an
// error for posts.
func NewDocument(sourcePath, relPath string, kind Kind, raw []byte) (*Document, error) {
	meta, body, had, _, err := frontmatter.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("split front matter of %s: %w", relPath, err)
	}

	fields := map[string]any{}
	if had {
		fields, err = frontmatter.Parse(meta)
		if err != nil {
			return nil, fmt.Errorf("parse front matter of %s: %w", relPath, err)
		}
	}

	sum := sha256.Sum256(raw)

	doc := &Document{
		SourcePath:  sourcePath,
		RelPath:     path.Clean(relPath),
		Kind:        kind,
		FrontMatter: fields,
		Body:        body,
		ContentHash: hex.EncodeToString(sum[:]),
	}

	doc.Title = stringField(fields, "title")
	doc.Summary = stringField(fields, "summary")
	if doc.Summary == "" {
		doc.Summary = stringField(fields, "description")
	}
	doc.Draft = boolField(fields, "draft")
	doc.Tags = stringListField(fields, "tags")

	if slug := stringField(fields, "slug"); slug != "" {
		doc.Slug = Slugify(slug)
	} else {
		doc.Slug = Slugify(baseName(relPath))
	}
	if doc.Title == "" {
		doc.Title = baseName(relPath)
	}

	if date, ok, err := dateField(fields, "date"); err != nil {
		return nil, fmt.Errorf("invalid date in %s: %w", relPath, err)
	} else if ok {
		doc.Date = date
	} else if kind == KindPost {
		return nil, fmt.Errorf("post %s has no date", relPath)
	}

	return doc, nil
}

// EffectiveDate is the timestamp shown as "last updated": the git-derived
// lastmod when present, otherwise the declared creation date.
func (d *Document) EffectiveDate() time.Time {
	if d.Lastmod != nil {
		return *d.Lastmod
	}
	return d.Date
}

// OutputPath is the path of the rendered page relative to the output root.
func (d *Document) OutputPath() string {
	if d.Kind == KindPost {
		return path.Join("posts", d.Slug, "index.html")
	}
	if d.Slug == "index" {
		return "index.html"
	}
	return path.Join(d.Slug, "index.html")
}

// Permalink is the site-absolute URL of the rendered page.
func (d *Document) Permalink() string {
	return "/" + strings.TrimSuffix(d.OutputPath(), "index.html")
}

func baseName(relPath string) string {
	base := path.Base(relPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func boolField(fields map[string]any, key string) bool {
	if v, ok := fields[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func stringListField(fields map[string]any, key string) []string {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, strings.TrimSpace(fmt.Sprint(item)))
		}
		return out
	case string:
		// Comma separated scalar form: tags: go, git
		parts := strings.Split(t, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func dateField(fields map[string]any, key string) (time.Time, bool, error) {
	v, ok := fields[key]
	if !ok {
		return time.Time{}, false, nil
	}
	switch t := v.(type) {
	case time.Time:
		return t, true, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true, nil
			}
		}
		return time.Time{}, false, fmt.Errorf("unrecognized date %q", s)
	default:
		return time.Time{}, false, fmt.Errorf("unsupported date type %T", v)
	}
}
