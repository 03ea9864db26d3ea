package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/blogsmith/blogsmith/internal/content"
)

//go:embed layouts/*.html
var builtinLayouts embed.FS

// layout names resolved against user overrides, then the embedded defaults.
var layoutNames = []string{"post", "page", "list"}

// SiteMeta is the site-level data visible to every template.
type SiteMeta struct {
	Title       string
	Description string
	BaseURL     string
	Author      string
	LiveReload  bool
}

// PageData is the root template context.
type PageData struct {
	Site  SiteMeta
	Title string
	Doc   *content.Document
	Docs  []*content.Document
}

// Engine renders documents through layouts.
//
// Layout resolution: a file named <layout>.html (or base.html) in the user
// layouts directory overrides the embedded default of the same name.
type Engine struct {
	site    SiteMeta
	layouts map[string]*template.Template
}

var funcs = template.FuncMap{
	"safe":    func(s string) template.HTML { return template.HTML(s) },
	"fmtdate": func(t time.Time) string { return t.Format("Jan 2, 2006") },
	"rfc3339": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	"slugify": content.Slugify,
}

// NewEngine parses the embedded layouts plus any overrides in layoutsDir.
func NewEngine(layoutsDir string, site SiteMeta) (*Engine, error) {
	baseSrc, err := layoutSource(layoutsDir, "base")
	if err != nil {
		return nil, err
	}
	base, err := template.New("base").Funcs(funcs).Parse(baseSrc)
	if err != nil {
		return nil, fmt.Errorf("parse base layout: %w", err)
	}

	layouts := make(map[string]*template.Template, len(layoutNames))
	for _, name := range layoutNames {
		src, err := layoutSource(layoutsDir, name)
		if err != nil {
			return nil, err
		}
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone base layout: %w", err)
		}
		tpl, err := clone.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse layout %s: %w", name, err)
		}
		layouts[name] = tpl
	}

	return &Engine{site: site, layouts: layouts}, nil
}

// layoutSource loads a layout override from disk if present, else the
// embedded default.
func layoutSource(layoutsDir, name string) (string, error) {
	if layoutsDir != "" {
		p := filepath.Join(layoutsDir, name+".html")
		if data, err := os.ReadFile(p); err == nil {
			return string(data), nil
		}
	}
	data, err := builtinLayouts.ReadFile("layouts/" + name + ".html")
	if err != nil {
		return "", fmt.Errorf("builtin layout %s: %w", name, err)
	}
	return string(data), nil
}

// RenderMarkdown converts the document body to HTML and fills in the title
// fallback from the first heading.
func (e *Engine) RenderMarkdown(doc *content.Document) error {
	html, err := Convert(doc.Body)
	if err != nil {
		return fmt.Errorf("render %s: %w", doc.RelPath, err)
	}
	doc.HTML = html

	if _, ok := doc.FrontMatter["title"]; !ok {
		if heading := FirstHeading(doc.Body); heading != "" {
			doc.Title = heading
		}
	}
	return nil
}

// RenderDocument writes the full HTML page for a post or standalone page.
func (e *Engine) RenderDocument(w io.Writer, doc *content.Document) error {
	layout := "page"
	if doc.Kind == content.KindPost {
		layout = "post"
	}
	data := PageData{Site: e.site, Title: doc.Title, Doc: doc}
	if err := e.layouts[layout].ExecuteTemplate(w, "base", data); err != nil {
		return fmt.Errorf("execute layout %s for %s: %w", layout, doc.RelPath, err)
	}
	return nil
}

// RenderList writes a listing page (home, archive, tag index) over docs.
func (e *Engine) RenderList(w io.Writer, title string, docs []*content.Document) error {
	data := PageData{Site: e.site, Title: title, Docs: docs}
	if err := e.layouts["list"].ExecuteTemplate(w, "base", data); err != nil {
		return fmt.Errorf("execute list layout %q: %w", title, err)
	}
	return nil
}
