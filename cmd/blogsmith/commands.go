package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/blogsmith/blogsmith/internal/buildcache"
	"github.com/blogsmith/blogsmith/internal/config"
	"github.com/blogsmith/blogsmith/internal/content"
	"github.com/blogsmith/blogsmith/internal/frontmatter"
	"github.com/blogsmith/blogsmith/internal/linkcheck"
	"github.com/blogsmith/blogsmith/internal/server"
)

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if CLI.Serve.Addr != "" {
		cfg.Server.Addr = CLI.Serve.Addr
	}
	if CLI.Serve.Drafts {
		cfg.Build.Drafts = true
	}
	if CLI.Serve.Metrics {
		cfg.Server.Metrics = true
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}
	return srv.Run(signalContext())
}

// runInit writes a starter configuration plus an empty content skeleton.
func runInit() error {
	if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
		return err
	}

	for _, dir := range []string{
		filepath.Join("content", "posts"),
		"layouts",
		"static",
	} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	first := filepath.Join("content", "posts", "hello-world.md")
	if _, err := os.Stat(first); os.IsNotExist(err) {
		body := "---\ntitle: Hello World\ndate: " + time.Now().Format("2006-01-02") + "\n---\n\nWelcome to your new blog.\n"
		if err := os.WriteFile(first, []byte(body), 0o644); err != nil {
			return fmt.Errorf("write sample post: %w", err)
		}
	}

	fmt.Printf("Initialized %s with a content skeleton\n", CLI.Config)
	return nil
}

// runNew creates a post skeleton under the posts directory.
func runNew(title string, draft bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slug := content.Slugify(title)
	if slug == "" {
		return fmt.Errorf("title %q produces an empty slug", title)
	}

	dir := filepath.Join(cfg.Content.Dir, cfg.Content.PostsDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create posts directory: %w", err)
	}
	path := filepath.Join(dir, slug+".md")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("post already exists: %s", path)
	}

	fields := map[string]any{
		"title": title,
		"date":  time.Now().Format("2006-01-02"),
	}
	if draft {
		fields["draft"] = true
	}
	style := frontmatter.Style{Newline: "\n", HasTrailingNewline: true}
	meta, err := frontmatter.Serialize(fields, style)
	if err != nil {
		return err
	}
	doc := frontmatter.Join(meta, []byte("\n"), true, style)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return fmt.Errorf("write post: %w", err)
	}

	fmt.Printf("Created %s\n", path)
	return nil
}

func runCheck() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Output.Directory); err != nil {
		return fmt.Errorf("output directory %s not found, run build first", cfg.Output.Directory)
	}

	checker, err := linkcheck.NewChecker(cfg.Output.Directory, cfg.Site.BaseURL)
	if err != nil {
		return err
	}
	broken, err := checker.Check()
	if err != nil {
		return err
	}
	if len(broken) == 0 {
		fmt.Println("All internal links resolve")
		return nil
	}
	for _, b := range broken {
		fmt.Println(b.String())
	}
	return fmt.Errorf("%d broken internal links", len(broken))
}

func runBuilds(limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dbPath := filepath.Join(cfg.Build.CacheDir, "build.db")
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("no build history at %s, run an incremental build first", dbPath)
	}
	cache, err := buildcache.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := cache.Close(); err != nil {
			slog.Debug("close build cache", "error", err)
		}
	}()

	records, err := cache.RecentBuilds(signalContext(), limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No builds recorded yet")
		return nil
	}
	for _, r := range records {
		fmt.Printf("%s  %-7s  %4d pages  %8s  %s\n",
			r.StartedAt.Format(time.RFC3339), r.Outcome, r.Pages,
			r.Duration.Round(time.Millisecond), r.ID)
	}
	return nil
}
