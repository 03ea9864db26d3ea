// Package site orchestrates the build pipeline: discover content, enrich it
// from git history, render pages and indexes, and copy assets.
package site

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/blogsmith/blogsmith/internal/buildcache"
	"github.com/blogsmith/blogsmith/internal/config"
	"github.com/blogsmith/blogsmith/internal/content"
	"github.com/blogsmith/blogsmith/internal/gitlog"
	"github.com/blogsmith/blogsmith/internal/logfields"
	"github.com/blogsmith/blogsmith/internal/metrics"
	"github.com/blogsmith/blogsmith/internal/render"
)

// Builder runs build passes against a fixed configuration.
type Builder struct {
	cfg        *config.Config
	engine     *render.Engine
	repo       *gitlog.Repo
	cache      *buildcache.Cache
	recorder   metrics.Recorder
	liveReload bool
}

// Option tweaks builder construction.
type Option func(*Builder)

// WithRecorder sets the metrics recorder (defaults to a no-op).
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) { b.recorder = r }
}

// WithLiveReload enables the live-reload snippet in rendered pages.
func WithLiveReload() Option {
	return func(b *Builder) { b.liveReload = true }
}

// NewBuilder prepares a builder: template engine, optional git repository
// for lastmod enrichment, optional incremental build cache.
//
// A missing or unreadable git history is not an error; enrichment is simply
// skipped and documents keep their declared dates.
func NewBuilder(cfg *config.Config, opts ...Option) (*Builder, error) {
	b := &Builder{cfg: cfg, recorder: metrics.Noop{}}
	for _, opt := range opts {
		opt(b)
	}

	engine, err := render.NewEngine(cfg.Content.LayoutsDir, render.SiteMeta{
		Title:       cfg.Site.Title,
		Description: cfg.Site.Description,
		BaseURL:     cfg.Site.BaseURL,
		Author:      cfg.Site.Author,
		LiveReload:  b.liveReload,
	})
	if err != nil {
		return nil, err
	}
	b.engine = engine

	if cfg.Build.GitLastmodEnabled() {
		repo, err := gitlog.Open(cfg.Content.Dir)
		if err != nil {
			slog.Warn("Git history unavailable, skipping lastmod enrichment", logfields.Error(err))
		} else {
			b.repo = repo
		}
	}

	if cfg.Build.Incremental {
		cache, err := openCache(cfg)
		if err != nil {
			return nil, err
		}
		b.cache = cache
	}

	return b, nil
}

// Close releases builder resources (the build cache).
func (b *Builder) Close() error {
	if b.cache != nil {
		return b.cache.Close()
	}
	return nil
}

// Cache exposes the build cache for status queries (may be nil).
func (b *Builder) Cache() *buildcache.Cache { return b.cache }

// Build runs all pipeline stages once.
//
// Each document's enrichment and rendering is independent; a failure in any
// stage aborts the pass, but a missing git history never does.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{BuildID: uuid.NewString(), StartedAt: start}
	st := &buildState{}

	slog.Info("Starting site build",
		logfields.BuildID(report.BuildID),
		slog.String("output", b.cfg.Output.Directory))

	stages := []stage{
		{"prepare", b.stagePrepare},
		{"discover", b.stageDiscover},
		{"enrich", b.stageEnrich},
		{"render", b.stageRender},
		{"indexes", b.stageIndexes},
		{"feed", b.stageFeed},
		{"assets", b.stageAssets},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return b.finish(ctx, report, start, fmt.Errorf("build canceled before stage %s: %w", s.name, err))
		}

		stageStart := time.Now()
		err := s.run(ctx, st, report)
		elapsed := time.Since(stageStart)

		b.recorder.ObserveStageDuration(s.name, elapsed)
		report.Stages = append(report.Stages, StageTiming{Name: s.name, Duration: elapsed})
		slog.Debug("Stage completed", logfields.Stage(s.name), logfields.Duration(elapsed), logfields.Error(err))

		if err != nil {
			return b.finish(ctx, report, start, fmt.Errorf("stage %s: %w", s.name, err))
		}
	}

	return b.finish(ctx, report, start, nil)
}

func (b *Builder) finish(ctx context.Context, report *Report, start time.Time, buildErr error) (*Report, error) {
	report.Duration = time.Since(start)
	report.Outcome = OutcomeSuccess
	if buildErr != nil {
		report.Outcome = OutcomeFailed
	}

	b.recorder.ObserveBuildDuration(report.Duration)
	b.recorder.IncBuildOutcome(report.Outcome)
	b.recorder.SetPagesRendered(report.PagesWritten)

	if b.cache != nil {
		rec := buildcache.BuildRecord{
			ID:        report.BuildID,
			StartedAt: report.StartedAt,
			Duration:  report.Duration,
			Pages:     report.PagesWritten,
			Outcome:   report.Outcome,
		}
		if err := b.cache.RecordBuild(ctx, rec); err != nil {
			slog.Warn("Failed to record build history", logfields.Error(err))
		}
	}

	if buildErr != nil {
		slog.Error("Build failed", logfields.BuildID(report.BuildID), logfields.Error(buildErr))
		return report, buildErr
	}

	slog.Info("Build completed",
		logfields.BuildID(report.BuildID),
		slog.Int("pages", report.PagesWritten),
		slog.Int("skipped", report.PagesSkipped),
		slog.Int("enriched", report.Enriched),
		logfields.Duration(report.Duration))
	return report, nil
}

// buildState carries intermediate results between stages.
type buildState struct {
	docs   []*content.Document
	assets []content.Asset
	posts  []*content.Document // published posts, newest first
	tags   map[string][]*content.Document
}

type stage struct {
	name string
	run  func(ctx context.Context, st *buildState, report *Report) error
}

func openCache(cfg *config.Config) (*buildcache.Cache, error) {
	dir := cfg.Build.CacheDir
	if err := ensureDir(dir); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return buildcache.Open(cacheDBPath(cfg))
}

// sortPostsNewestFirst orders posts for listings and the feed.
func sortPostsNewestFirst(posts []*content.Document) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Date.After(posts[j].Date)
	})
}
