package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/blogsmith/blogsmith/internal/config"
	"github.com/blogsmith/blogsmith/internal/logfields"
	"github.com/blogsmith/blogsmith/internal/site"
	"github.com/blogsmith/blogsmith/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"blogsmith.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Drafts      bool `short:"D" help:"Include draft posts"`
		Future      bool `short:"F" help:"Include future-dated posts"`
		Incremental bool `short:"i" help:"Skip unchanged pages using the build cache"`
	} `cmd:"" help:"Build the site into the output directory"`

	Serve struct {
		Addr    string `short:"a" help:"Listen address (overrides config)"`
		Drafts  bool   `short:"D" help:"Include draft posts"`
		Metrics bool   `help:"Expose Prometheus metrics at /metrics"`
	} `cmd:"" help:"Serve the site locally with rebuild-on-change and live reload"`

	Init struct {
		Force bool `help:"Overwrite an existing configuration file"`
	} `cmd:"" help:"Create a starter configuration file"`

	New struct {
		Title string `arg:"" help:"Post title"`
		Draft bool   `help:"Mark the new post as a draft"`
	} `cmd:"" help:"Create a new post with front matter"`

	Check struct{} `cmd:"" help:"Verify internal links in the rendered output"`

	Builds struct {
		Limit int `short:"n" default:"10" help:"Number of builds to show"`
	} `cmd:"" help:"Show recent build history from the build cache"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	var err error
	switch ctx.Command() {
	case "build":
		err = runBuild()
	case "serve":
		err = runServe()
	case "init":
		err = runInit()
	case "new <title>":
		err = runNew(CLI.New.Title, CLI.New.Draft)
	case "check":
		err = runCheck()
	case "builds":
		err = runBuilds(CLI.Builds.Limit)
	case "version":
		fmt.Println(version.String())
	}
	if err != nil {
		slog.Error("Command failed", slog.String("command", ctx.Command()), logfields.Error(err))
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, err
	}
	cfg.Logging.SetupLogging(CLI.Verbose)
	return cfg, nil
}

func runBuild() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if CLI.Build.Drafts {
		cfg.Build.Drafts = true
	}
	if CLI.Build.Future {
		cfg.Build.Future = true
	}
	if CLI.Build.Incremental {
		cfg.Build.Incremental = true
	}

	builder, err := site.NewBuilder(cfg)
	if err != nil {
		return err
	}
	defer builder.Close()

	report, err := builder.Build(signalContext())
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func printReport(report *site.Report) {
	fmt.Printf("Built %d pages (%d skipped, %d assets) in %s\n",
		report.PagesWritten, report.PagesSkipped, report.AssetsCopied,
		report.Duration.Round(time.Millisecond))
	if report.Enriched > 0 {
		fmt.Printf("Updated timestamps from git history for %d posts\n", report.Enriched)
	}
}

func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
