package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/blogsmith/blogsmith/internal/config"
)

var (
	commitT1 = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	commitT2 = time.Date(2026, 3, 5, 16, 45, 0, 0, time.UTC)
)

// setupSite creates a git repository holding a content tree:
// posts/edited.md has two revisions, posts/fresh.md one, about.md one.
func setupSite(t *testing.T) (contentDir string, cfg *config.Config) {
	t.Helper()
	repoDir := t.TempDir()

	repository, err := git.PlainInit(repoDir, false)
	require.NoError(t, err)
	wt, err := repository.Worktree()
	require.NoError(t, err)

	write := func(rel, body string) {
		t.Helper()
		p := filepath.Join(repoDir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		_, err := wt.Add(rel)
		require.NoError(t, err)
	}
	commit := func(when time.Time) {
		t.Helper()
		sig := &object.Signature{Name: "author", Email: "a@example.com", When: when}
		_, err := wt.Commit("update", &git.CommitOptions{Author: sig, Committer: sig})
		require.NoError(t, err)
	}

	write("content/posts/edited.md", "---\ntitle: Edited Post\ndate: 2026-01-02\ntags: [go]\n---\nfirst draft\n")
	write("content/posts/fresh.md", "---\ntitle: Fresh Post\ndate: 2026-01-03\n---\nwritten once\n")
	write("content/about.md", "---\ntitle: About\n---\nwho we are\n")
	commit(commitT1)

	write("content/posts/edited.md", "---\ntitle: Edited Post\ndate: 2026-01-02\ntags: [go]\n---\nrevised text\n")
	commit(commitT2)

	contentDir = filepath.Join(repoDir, "content")
	cfg = &config.Config{
		Site:    config.SiteConfig{Title: "Test Blog", BaseURL: "https://example.com", FeedSize: 20},
		Content: config.ContentConfig{Dir: contentDir, PostsDir: "posts"},
		Output:  config.OutputConfig{Directory: filepath.Join(t.TempDir(), "public"), Clean: true},
	}
	return contentDir, cfg
}

func readOutput(t *testing.T, cfg *config.Config, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Output.Directory, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestBuildEndToEnd(t *testing.T) {
	_, cfg := setupSite(t)

	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	defer b.Close()

	report, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.Outcome)
	require.Equal(t, 3, report.Documents)
	require.Equal(t, 1, report.Enriched, "only the twice-committed post gets a lastmod")
	require.NotEmpty(t, report.BuildID)
	require.Len(t, report.Stages, 7)

	// The edited post shows its git-derived update date.
	edited := readOutput(t, cfg, "posts/edited/index.html")
	require.Contains(t, edited, "updated Mar 5, 2026")
	require.Contains(t, edited, "revised text")

	// The single-revision post falls back to its declared date.
	fresh := readOutput(t, cfg, "posts/fresh/index.html")
	require.NotContains(t, fresh, "updated")
	require.Contains(t, fresh, "Jan 3, 2026")

	require.Contains(t, readOutput(t, cfg, "about/index.html"), "who we are")
	require.Contains(t, readOutput(t, cfg, "index.html"), "Fresh Post")
	require.Contains(t, readOutput(t, cfg, "archive/index.html"), "Edited Post")
	require.Contains(t, readOutput(t, cfg, "tags/go/index.html"), "Edited Post")

	feed := readOutput(t, cfg, "feed.xml")
	require.Contains(t, feed, "2026-03-05T16:45:00Z")
	require.Contains(t, feed, "https://example.com/posts/fresh/")
}

func TestBuildWithoutGitHistory(t *testing.T) {
	contentDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(contentDir, "posts"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(contentDir, "posts", "p.md"),
		[]byte("---\ntitle: P\ndate: 2026-01-01\n---\nbody\n"), 0o644))

	cfg := &config.Config{
		Site:    config.SiteConfig{Title: "T", FeedSize: 20},
		Content: config.ContentConfig{Dir: contentDir, PostsDir: "posts"},
		Output:  config.OutputConfig{Directory: filepath.Join(t.TempDir(), "public"), Clean: true},
	}

	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	defer b.Close()

	report, err := b.Build(context.Background())
	require.NoError(t, err, "missing history must not fail the build")
	require.Zero(t, report.Enriched)
	require.NotContains(t, readOutput(t, cfg, "posts/p/index.html"), "updated")
}

func TestBuildFiltersDraftsAndFuture(t *testing.T) {
	contentDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(contentDir, "posts"), 0o750))
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(contentDir, "posts", name), []byte(body), 0o644))
	}
	write("published.md", "---\ntitle: Published\ndate: 2026-01-01\n---\nok\n")
	write("draft.md", "---\ntitle: Draft\ndate: 2026-01-01\ndraft: true\n---\nnot yet\n")
	write("future.md", "---\ntitle: Future\ndate: 2099-01-01\n---\nlater\n")

	cfg := &config.Config{
		Site:    config.SiteConfig{Title: "T", FeedSize: 20},
		Content: config.ContentConfig{Dir: contentDir, PostsDir: "posts"},
		Output:  config.OutputConfig{Directory: filepath.Join(t.TempDir(), "public"), Clean: true},
		Build:   config.BuildConfig{GitLastmod: boolPtr(false)},
	}

	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	defer b.Close()

	report, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Documents)

	home := readOutput(t, cfg, "index.html")
	require.Contains(t, home, "Published")
	require.NotContains(t, home, "Draft")
	require.NotContains(t, home, "Future")

	// Both toggles on: everything renders.
	cfg.Build.Drafts = true
	cfg.Build.Future = true
	b2, err := NewBuilder(cfg)
	require.NoError(t, err)
	defer b2.Close()
	report, err = b2.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, report.Documents)
}

func TestBuildIncrementalSkipsUnchangedPages(t *testing.T) {
	_, cfg := setupSite(t)
	cfg.Build.Incremental = true
	cfg.Build.CacheDir = filepath.Join(t.TempDir(), "cache")
	cfg.Output.Clean = false

	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	defer b.Close()

	first, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Zero(t, first.PagesSkipped)
	docPages := first.PagesWritten

	second, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, second.PagesSkipped, "all documents unchanged")
	require.Equal(t, docPages-3, second.PagesWritten)

	builds, err := b.Cache().RecentBuilds(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, builds, 2)
}

func TestBuildCanceledContext(t *testing.T) {
	_, cfg := setupSite(t)

	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := b.Build(ctx)
	require.Error(t, err)
	require.Equal(t, OutcomeFailed, report.Outcome)
}

func boolPtr(v bool) *bool { return &v }
