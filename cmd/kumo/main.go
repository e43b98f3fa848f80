package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"kumo/internal/build"
	"kumo/internal/domain/config"
	domainerr "kumo/internal/domain/errors"
	"kumo/internal/serve"
	"kumo/internal/theme"
)

const usage = `usage: kumo <command> [flags]

commands:
  serve          serve the site with live reload
  build          export the static site
  render <file>  print the rendered HTML of one Markdown file
  themes         list installed themes
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	cfgPath := fs.StringP("config", "c", "site.yaml", "site config file")
	verbose := fs.BoolP("verbose", "v", false, "log GOMAXPROCS adjustments")
	addr := fs.String("addr", "", "serve: listen address (overrides serve.addr)")
	artifactURL := fs.String("artifact-url", "", "serve: read articles from a published site")
	noWatch := fs.Bool("no-watch", false, "serve: disable file watching and live reload")
	drafts := fs.Bool("drafts", false, "include drafts")
	out := fs.StringP("out", "o", "", "build: output directory (overrides build.public_dir)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logf := func(string, ...interface{}) {}
	if *verbose {
		logf = log.Printf
	}
	// maxprocs.Set only fails on an invalid GOMAXPROCS env, runtime defaults apply then
	_, _ = maxprocs.Set(maxprocs.Logger(logf))

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		exitConfig(err)
	}
	if *addr != "" {
		cfg.Serve.Addr = *addr
	}
	if *artifactURL != "" {
		cfg.Serve.ArtifactURL = *artifactURL
	}
	if *noWatch {
		cfg.Serve.Watch = false
	}
	if *drafts {
		cfg.Build.IncludeDraft = true
	}
	if *out != "" {
		cfg.Build.PublicDir = *out
	}
	if err := cfg.Validate(); err != nil {
		exitConfig(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		err = runServe(ctx, cfg)
	case "build":
		err = runBuild(ctx, cfg)
	case "render":
		if fs.NArg() != 1 {
			err = errors.New("expected one Markdown file")
			break
		}
		err = runRender(ctx, cfg, fs.Arg(0))
	case "themes":
		err = runThemes(cfg)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, cmd+" error:", err.Error())
		os.Exit(1)
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	s, err := serve.New(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.ListenAndServe(ctx)
}

func runBuild(ctx context.Context, cfg config.Config) error {
	b := &build.Builder{Cfg: cfg, IndexPath: cfg.Serve.IndexPath}
	res, err := b.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("[build] %d articles, %d routes -> %s", res.Articles, len(res.Routes), cfg.Build.PublicDir)
	return nil
}

func runRender(ctx context.Context, cfg config.Config, path string) error {
	html, err := build.RenderPreview(ctx, cfg, path)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, html)
	return err
}

func runThemes(cfg config.Config) error {
	themes, err := theme.List(cfg.Build.ThemeDir)
	if err != nil {
		return err
	}
	for _, t := range themes {
		mark := " "
		if t.ID == cfg.Site.Theme {
			mark = "*"
		}
		fmt.Printf("%s %-12s %-8s %s\n", mark, t.ID, t.Version, t.Description)
	}
	return nil
}

func exitConfig(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	if hints := domainerr.Hints(err); hints != "" {
		fmt.Fprintln(os.Stderr, "hint:", hints)
	}
	os.Exit(2)
}
