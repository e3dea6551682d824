// Command collect-stories builds a topic-clustered briefing for one show
// from its tagged bookmarks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thomaskoefod/podcast-briefing/internal/ai"
	"github.com/thomaskoefod/podcast-briefing/internal/clustering"
	"github.com/thomaskoefod/podcast-briefing/internal/config"
	"github.com/thomaskoefod/podcast-briefing/internal/console"
	"github.com/thomaskoefod/podcast-briefing/internal/cookies"
	"github.com/thomaskoefod/podcast-briefing/internal/database"
	"github.com/thomaskoefod/podcast-briefing/internal/extractor"
	"github.com/thomaskoefod/podcast-briefing/internal/feed"
	"github.com/thomaskoefod/podcast-briefing/internal/logging"
	"github.com/thomaskoefod/podcast-briefing/internal/pipeline"
	"github.com/thomaskoefod/podcast-briefing/internal/raindrop"
	"github.com/thomaskoefod/podcast-briefing/internal/stories"
	"github.com/thomaskoefod/podcast-briefing/internal/summarizer"
)

type options struct {
	show       string
	days       int
	configPath string
	tag        string
	out        string
	noCache    bool
	preview    bool
	check      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.show, "show", "twit", "show slug or tag to collect for")
	flag.IntVar(&opts.days, "days", 7, "collect bookmarks from the last N days")
	flag.StringVar(&opts.configPath, "config", config.DefaultConfigPath(), "path to config file")
	flag.StringVar(&opts.tag, "tag", "", "override the show's bookmark tag")
	flag.StringVar(&opts.out, "out", "", "output file (default: <stories dir>/<slug>-<date>.json)")
	flag.BoolVar(&opts.noCache, "no-cache", false, "do not read or write the enrichment cache")
	flag.BoolVar(&opts.preview, "preview", false, "print a rendered outline of the briefing")
	flag.BoolVar(&opts.check, "check", false, "verify the Raindrop token and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := console.New(os.Stdout)
	if err := run(ctx, opts, out); err != nil {
		out.Error(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out *console.Console) error {
	if opts.days < 1 {
		return fmt.Errorf("-days must be at least 1, got %d", opts.days)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	creds, err := config.LoadCredentials(config.DefaultCredentialsPath())
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Logging.Level, os.Stderr)

	show, err := cfg.Show(opts.show)
	if err != nil {
		return err
	}
	if opts.tag != "" {
		show.Tag = opts.tag
	}

	token, err := creds.Require(config.RaindropToken)
	if err != nil {
		return err
	}
	rd := raindrop.NewClient(token, cfg.Raindrop, logger)

	if opts.check {
		if err := rd.TestConnection(ctx); err != nil {
			return err
		}
		out.Infof("Raindrop token OK")
		return nil
	}

	completer, err := newCompleter(cfg.AI, creds)
	if err != nil {
		return err
	}

	deps := pipeline.Deps{
		Sources: []pipeline.BookmarkSource{
			rd,
			feed.NewSource(feed.NewFetcher(cfg.Extractor.Timeout, logger), cfg.Feeds),
		},
		Extractor: extractor.New(cfg.Extractor, cookieJar(ctx, cfg.Extractor, logger), logger),
		Summarizer: summarizer.New(completer, summarizer.Options{
			Model:       cfg.AI.SummaryModel,
			MaxTokens:   cfg.AI.SummaryMaxTokens,
			Concurrency: cfg.Summarizer.Concurrency,
			Pause:       cfg.Summarizer.Pause,
			MaxChars:    cfg.Summarizer.MaxChars,
		}, logger),
		Clusterer: clustering.New(completer, clustering.Options{
			Model:     cfg.AI.ClusterModel,
			MaxTokens: cfg.AI.ClusterMaxTokens,
		}, logger),
		Reporter: out,
	}

	if !cfg.Database.Disable && !opts.noCache {
		db, err := openCache(ctx, cfg.Database, logger)
		if err != nil {
			logger.Warn("enrichment cache unavailable", "path", cfg.Database.Path, "error", err)
		} else {
			defer db.Close()
			deps.Cache = db
		}
	}

	data, err := pipeline.New(deps, logger).Run(ctx, show, opts.days)
	if err != nil {
		return err
	}

	filename := opts.out
	if filename == "" {
		filename = stories.Filename(show, time.Now())
	}
	path, err := stories.NewStore(cfg.Stories.Dir, logger).Save(data, filename)
	if err != nil {
		return err
	}

	out.Saved(path, data)
	if opts.preview {
		return out.Preview(data, 100)
	}
	return nil
}

func newCompleter(cfg config.AIConfig, creds *config.Credentials) (ai.Completer, error) {
	if cfg.Provider == "ollama" {
		client, err := ai.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	key, err := creds.Require(config.AnthropicAPIKey)
	if err != nil {
		return nil, err
	}
	return ai.NewClient(cfg.Endpoint, key, cfg.Version), nil
}

func cookieJar(ctx context.Context, cfg config.ExtractorConfig, logger *slog.Logger) http.CookieJar {
	if !cfg.FirefoxCookies {
		return nil
	}
	return cookies.LoadFirefox(ctx, logger)
}

func openCache(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*database.DB, error) {
	db, err := database.New(cfg.Path)
	if err != nil {
		return nil, err
	}
	if cfg.Retention > 0 {
		n, err := db.Prune(ctx, time.Now().Add(-cfg.Retention))
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("pruning enrichment cache", "error", err)
		} else if n > 0 {
			logger.Debug("pruned enrichment cache", "rows", n)
		}
	}
	return db, nil
}
