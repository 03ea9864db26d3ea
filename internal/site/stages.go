package site

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/blogsmith/blogsmith/internal/config"
	"github.com/blogsmith/blogsmith/internal/content"
	"github.com/blogsmith/blogsmith/internal/gitlog"
	"github.com/blogsmith/blogsmith/internal/logfields"
)

func (b *Builder) stagePrepare(ctx context.Context, st *buildState, report *Report) error {
	out := b.cfg.Output.Directory
	if b.cfg.Output.Clean {
		if err := os.RemoveAll(out); err != nil {
			return fmt.Errorf("clean output directory: %w", err)
		}
	}
	return ensureDir(out)
}

func (b *Builder) stageDiscover(ctx context.Context, st *buildState, report *Report) error {
	discovery := content.NewDiscovery(b.cfg.Content.Dir, b.cfg.Content.PostsDir)
	docs, assets, err := discovery.Discover()
	if err != nil {
		return err
	}

	now := time.Now()
	kept := docs[:0]
	for _, doc := range docs {
		if doc.Draft && !b.cfg.Build.Drafts {
			slog.Debug("Skipping draft", logfields.Path(doc.RelPath))
			continue
		}
		if doc.Kind == content.KindPost && doc.Date.After(now) && !b.cfg.Build.Future {
			slog.Debug("Skipping future-dated post", logfields.Path(doc.RelPath))
			continue
		}
		kept = append(kept, doc)
	}

	st.docs = kept
	st.assets = assets
	report.Documents = len(kept)
	return nil
}

// stageEnrich attaches git-derived lastmod timestamps. History being
// unavailable is not a failure; the stage is then a no-op.
func (b *Builder) stageEnrich(ctx context.Context, st *buildState, report *Report) error {
	report.Enriched = gitlog.Enrich(b.repo, st.docs)
	return nil
}

func (b *Builder) stageRender(ctx context.Context, st *buildState, report *Report) error {
	for _, doc := range st.docs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := b.engine.RenderMarkdown(doc); err != nil {
			return err
		}

		outPath := doc.OutputPath()
		if b.cache != nil {
			upToDate, err := b.cache.UpToDate(ctx, doc.RelPath, cacheKey(doc))
			if err != nil {
				slog.Warn("Build cache lookup failed", logfields.Path(doc.RelPath), logfields.Error(err))
			} else if upToDate && fileExists(filepath.Join(b.cfg.Output.Directory, outPath)) {
				report.PagesSkipped++
				continue
			}
		}

		target := filepath.Join(b.cfg.Output.Directory, filepath.FromSlash(outPath))
		if err := writePage(target, func(w io.Writer) error {
			return b.engine.RenderDocument(w, doc)
		}); err != nil {
			return err
		}
		report.PagesWritten++

		if b.cache != nil {
			if err := b.cache.RecordPage(ctx, doc.RelPath, cacheKey(doc), outPath); err != nil {
				slog.Warn("Build cache update failed", logfields.Path(doc.RelPath), logfields.Error(err))
			}
		}
	}

	if b.cache != nil {
		present := make(map[string]bool, len(st.docs))
		for _, doc := range st.docs {
			present[doc.RelPath] = true
		}
		if err := b.cache.ForgetMissing(ctx, present); err != nil {
			slog.Warn("Build cache prune failed", logfields.Error(err))
		}
	}
	return nil
}

func (b *Builder) stageIndexes(ctx context.Context, st *buildState, report *Report) error {
	st.posts = nil
	st.tags = map[string][]*content.Document{}
	hasHomePage := false
	for _, doc := range st.docs {
		if doc.Kind == content.KindPage && doc.Slug == "index" {
			hasHomePage = true
		}
		if doc.Kind != content.KindPost {
			continue
		}
		st.posts = append(st.posts, doc)
		for _, tag := range doc.Tags {
			key := content.Slugify(tag)
			st.tags[key] = append(st.tags[key], doc)
		}
	}
	sortPostsNewestFirst(st.posts)

	out := b.cfg.Output.Directory

	// Home: a content page with slug "index" wins; otherwise list recent posts.
	if !hasHomePage {
		if err := writePage(filepath.Join(out, "index.html"), func(w io.Writer) error {
			return b.engine.RenderList(w, "Posts", st.posts)
		}); err != nil {
			return err
		}
		report.PagesWritten++
	}

	if err := writePage(filepath.Join(out, "archive", "index.html"), func(w io.Writer) error {
		return b.engine.RenderList(w, "Archive", st.posts)
	}); err != nil {
		return err
	}
	report.PagesWritten++

	tagNames := make([]string, 0, len(st.tags))
	for name := range st.tags {
		tagNames = append(tagNames, name)
	}
	sort.Strings(tagNames)
	for _, name := range tagNames {
		posts := st.tags[name]
		sortPostsNewestFirst(posts)
		if err := writePage(filepath.Join(out, "tags", name, "index.html"), func(w io.Writer) error {
			return b.engine.RenderList(w, "Tag: "+name, posts)
		}); err != nil {
			return err
		}
		report.PagesWritten++
	}
	return nil
}

func (b *Builder) stageFeed(ctx context.Context, st *buildState, report *Report) error {
	posts := st.posts
	if max := b.cfg.Site.FeedSize; len(posts) > max {
		posts = posts[:max]
	}
	return writePage(filepath.Join(b.cfg.Output.Directory, "feed.xml"), func(w io.Writer) error {
		return b.engine.RenderFeed(w, posts)
	})
}

func (b *Builder) stageAssets(ctx context.Context, st *buildState, report *Report) error {
	out := b.cfg.Output.Directory

	for _, asset := range st.assets {
		target := filepath.Join(out, filepath.FromSlash(asset.RelPath))
		if err := copyFile(asset.SourcePath, target); err != nil {
			return fmt.Errorf("copy asset %s: %w", asset.RelPath, err)
		}
		report.AssetsCopied++
	}

	staticDir := b.cfg.Content.StaticDir
	if staticDir == "" {
		return nil
	}
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		return nil
	}

	return filepath.WalkDir(staticDir, func(p string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		rel, err := filepath.Rel(staticDir, p)
		if err != nil {
			return err
		}
		if err := copyFile(p, filepath.Join(out, rel)); err != nil {
			return fmt.Errorf("copy static file %s: %w", rel, err)
		}
		report.AssetsCopied++
		return nil
	})
}

// cacheKey covers both content and derived lastmod, so a new commit to an
// otherwise unchanged file still invalidates its rendered page.
func cacheKey(doc *content.Document) string {
	if doc.Lastmod == nil {
		return doc.ContentHash
	}
	return doc.ContentHash + ":" + strconv.FormatInt(doc.Lastmod.Unix(), 10)
}

func cacheDBPath(cfg *config.Config) string {
	return filepath.Join(cfg.Build.CacheDir, "build.db")
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writePage(target string, render func(io.Writer) error) error {
	if err := ensureDir(filepath.Dir(target)); err != nil {
		return err
	}
	var sb strings.Builder
	if err := render(&sb); err != nil {
		return err
	}
	if err := os.WriteFile(target, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write page %s: %w", target, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := ensureDir(filepath.Dir(dst)); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
