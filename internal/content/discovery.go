package content

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/blogsmith/blogsmith/internal/logfields"
)

// Asset is a non-Markdown file found under the content tree, copied to the
// output verbatim (images referenced from posts, downloads, etc).
type Asset struct {
	SourcePath string // absolute path
	RelPath    string // relative to the content dir, forward slashes
}

// Discovery walks the content directory and classifies what it finds.
type Discovery struct {
	contentDir string
	postsDir   string // subdirectory of contentDir holding dated posts
}

// NewDiscovery creates a discovery instance for a content root.
func NewDiscovery(contentDir, postsDir string) *Discovery {
	return &Discovery{contentDir: contentDir, postsDir: postsDir}
}

// Discover finds all documents and assets under the content directory.
//
// Hidden files and directories (dot-prefixed) are skipped. Markdown files
// under the posts subdirectory become posts; other Markdown files become
// pages. Everything else is an asset.
func (d *Discovery) Discover() ([]*Document, []Asset, error) {
	root, err := filepath.Abs(d.contentDir)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve content dir: %w", err)
	}
	if _, err := os.Stat(root); err != nil {
		return nil, nil, fmt.Errorf("content dir %s: %w", d.contentDir, err)
	}

	var docs []*Document
	var assets []Asset

	walkErr := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") && p != root {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if !isMarkdown(name) {
			assets = append(assets, Asset{SourcePath: p, RelPath: rel})
			return nil
		}

		raw, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}

		kind := KindPage
		if d.postsDir != "" && (rel == d.postsDir || strings.HasPrefix(rel, d.postsDir+"/")) {
			kind = KindPost
		}

		doc, err := NewDocument(p, rel, kind, raw)
		if err != nil {
			return err
		}

		slog.Debug("Discovered document", logfields.Path(rel), logfields.Kind(string(kind)), logfields.Slug(doc.Slug))
		docs = append(docs, doc)
		return nil
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}

	slog.Info("Content discovery completed",
		slog.Int("documents", len(docs)),
		slog.Int("assets", len(assets)))
	return docs, assets, nil
}

func isMarkdown(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".md" || ext == ".markdown"
}
