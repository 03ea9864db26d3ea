// Package config loads and validates the blogsmith.yaml site configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Content ContentConfig `yaml:"content"`
	Output  OutputConfig  `yaml:"output"`
	Build   BuildConfig   `yaml:"build"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// SiteConfig describes the rendered site.
type SiteConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty"`
	Author      string `yaml:"author,omitempty"`
	FeedSize    int    `yaml:"feed_size,omitempty"`
}

// ContentConfig locates source material on disk.
type ContentConfig struct {
	Dir        string `yaml:"dir"`                   // content root, e.g. "content"
	PostsDir   string `yaml:"posts_dir,omitempty"`   // subdirectory holding posts
	LayoutsDir string `yaml:"layouts_dir,omitempty"` // optional layout overrides
	StaticDir  string `yaml:"static_dir,omitempty"`  // assets copied verbatim
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"` // Clean output directory before build
}

// BuildConfig tunes a build pass.
type BuildConfig struct {
	Drafts      bool   `yaml:"drafts"`       // include draft documents
	Future      bool   `yaml:"future"`       // include future-dated posts
	Incremental bool   `yaml:"incremental"`  // skip unchanged documents via the build cache
	CacheDir    string `yaml:"cache_dir,omitempty"`
	GitLastmod  *bool  `yaml:"git_lastmod,omitempty"` // enrich lastmod from git history (default on)
}

// ServerConfig tunes the local dev server.
type ServerConfig struct {
	Addr            string `yaml:"addr,omitempty"`
	LiveReload      *bool  `yaml:"live_reload,omitempty"`
	Metrics         bool   `yaml:"metrics"`
	RebuildInterval string `yaml:"rebuild_interval,omitempty"` // periodic rebuild ("10m"), empty disables
	DebounceWindow  string `yaml:"debounce_window,omitempty"`  // quiet window for watcher rebuilds
}

// RebuildEvery parses the periodic rebuild interval; zero means disabled.
func (s ServerConfig) RebuildEvery() time.Duration {
	d, err := time.ParseDuration(s.RebuildInterval)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// Debounce parses the watcher quiet window.
func (s ServerConfig) Debounce() time.Duration {
	d, err := time.ParseDuration(s.DebounceWindow)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// LoggingConfig controls slog setup.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// GitLastmodEnabled reports whether git-history lastmod enrichment is on.
// Enabled unless explicitly disabled.
func (b BuildConfig) GitLastmodEnabled() bool {
	return b.GitLastmod == nil || *b.GitLastmod
}

// LiveReloadEnabled reports whether the SSE live-reload endpoint is on.
func (s ServerConfig) LiveReloadEnabled() bool {
	return s.LiveReload == nil || *s.LiveReload
}

// Load loads configuration from the specified file.
//
// A .env file next to the working directory is loaded first (without
// overriding the process environment), then ${VAR} references in the YAML
// are expanded.
func Load(configPath string) (*Config, error) {
	// Best effort: authoring machines keep tokens in .env, CI sets real env.
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Site.Title == "" {
		c.Site.Title = "Blog"
	}
	if c.Site.FeedSize <= 0 {
		c.Site.FeedSize = 20
	}
	if c.Content.Dir == "" {
		c.Content.Dir = "content"
	}
	if c.Content.PostsDir == "" {
		c.Content.PostsDir = "posts"
	}
	if c.Content.LayoutsDir == "" {
		c.Content.LayoutsDir = "layouts"
	}
	if c.Content.StaticDir == "" {
		c.Content.StaticDir = "static"
	}
	if c.Output.Directory == "" {
		c.Output.Directory = "public"
		c.Output.Clean = true
	}
	if c.Build.CacheDir == "" {
		c.Build.CacheDir = ".blogsmith"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "localhost:1313"
	}
	if c.Server.DebounceWindow == "" {
		c.Server.DebounceWindow = "500ms"
	}
	c.Logging.Level = string(NormalizeLogLevel(c.Logging.Level))
	c.Logging.Format = string(NormalizeLogFormat(c.Logging.Format))
}

func (c *Config) validate() error {
	if c.Content.Dir == c.Output.Directory {
		return fmt.Errorf("content dir and output directory must differ: %s", c.Content.Dir)
	}
	return nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Site: SiteConfig{
			Title:       "My Blog",
			Description: "Notes and posts",
			BaseURL:     "https://example.com",
		},
		Content: ContentConfig{Dir: "content", PostsDir: "posts"},
		Output:  OutputConfig{Directory: "public", Clean: true},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
