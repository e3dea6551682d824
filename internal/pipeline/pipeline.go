// Package pipeline runs one collection: bookmarks in, a clustered briefing
// out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/thomaskoefod/podcast-briefing/internal/extractor"
	"github.com/thomaskoefod/podcast-briefing/internal/logging"
	"github.com/thomaskoefod/podcast-briefing/internal/stories"
	"github.com/thomaskoefod/podcast-briefing/internal/summarizer"
	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

var ErrNoBookmarks = errors.New("no bookmarks found")

// BookmarkSource is anything that can list tagged bookmarks since a cutoff.
type BookmarkSource interface {
	FetchBookmarks(ctx context.Context, tag string, since time.Time) ([]models.Bookmark, error)
}

type ContentFetcher interface {
	FetchAll(ctx context.Context, urls []string) []extractor.Result
}

type Summarizer interface {
	SummarizeAll(ctx context.Context, inputs []summarizer.Input, progress func(summarizer.Result)) []summarizer.Result
}

type Clusterer interface {
	Cluster(ctx context.Context, stories []models.Story) []models.Topic
}

// Cache stores finished work between runs.
type Cache interface {
	GetArticle(ctx context.Context, url string) (*models.ArticleContent, error)
	SaveArticle(ctx context.Context, url string, content *models.ArticleContent) error
	GetSummary(ctx context.Context, url string) (*models.Summary, error)
	SaveSummary(ctx context.Context, url string, summary models.Summary) error
}

// Reporter receives coarse progress for console output.
type Reporter interface {
	StageStarted(name string, total int)
	ItemDone(ok bool)
	StageFinished(name string, ok, total int)
}

type Deps struct {
	Sources    []BookmarkSource
	Extractor  ContentFetcher
	Summarizer Summarizer
	Clusterer  Clusterer
	// Cache is optional.
	Cache Cache
	// Reporter is optional.
	Reporter Reporter
}

type Pipeline struct {
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
}

func New(deps Deps, logger *slog.Logger) *Pipeline {
	if deps.Reporter == nil {
		deps.Reporter = nopReporter{}
	}
	return &Pipeline{
		deps:   deps,
		logger: logging.Component(logger, "pipeline"),
		now:    time.Now,
	}
}

// Run collects the show's bookmarks from the last days and returns the
// enriched, clustered briefing.
func (p *Pipeline) Run(ctx context.Context, show models.ShowInfo, days int) (*models.BriefingData, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID, "show", show.Slug)

	since := Cutoff(p.now(), days)
	logger.Info("collecting bookmarks", "tag", show.Tag, "since", since.Format(time.RFC3339))

	bookmarks, err := p.collect(ctx, show.Tag, since)
	if err != nil {
		return nil, err
	}
	if len(bookmarks) == 0 {
		return nil, fmt.Errorf("%w for tag %s since %s", ErrNoBookmarks, show.Tag, since.Format("2006-01-02"))
	}

	contents := p.extract(ctx, logger, bookmarks)
	summaries := p.summarize(ctx, logger, bookmarks, contents)
	storyList := Assemble(bookmarks, contents, summaries)

	p.deps.Reporter.StageStarted("Clustering stories", len(storyList))
	topics := p.deps.Clusterer.Cluster(ctx, storyList)
	p.deps.Reporter.StageFinished("Clustering stories", len(topics), len(storyList))

	logger.Info("run complete", "stories", len(storyList), "topics", len(topics))
	return stories.NewBriefing(runID, show, topics), nil
}

func (p *Pipeline) collect(ctx context.Context, tag string, since time.Time) ([]models.Bookmark, error) {
	p.deps.Reporter.StageStarted("Fetching bookmarks", 0)

	var all []models.Bookmark
	for _, src := range p.deps.Sources {
		found, err := src.FetchBookmarks(ctx, tag, since)
		if err != nil {
			return nil, fmt.Errorf("fetching bookmarks: %w", err)
		}
		all = append(all, found...)
	}

	bookmarks := Dedupe(FilterSince(all, since), p.logger)
	p.deps.Reporter.StageFinished("Fetching bookmarks", len(bookmarks), len(all))
	return bookmarks, nil
}

func (p *Pipeline) extract(ctx context.Context, logger *slog.Logger, bookmarks []models.Bookmark) map[string]*models.ArticleContent {
	contents := make(map[string]*models.ArticleContent, len(bookmarks))
	var misses []string

	for _, b := range bookmarks {
		if c := p.cachedArticle(ctx, logger, b.Link); c != nil {
			contents[b.Link] = c
			continue
		}
		misses = append(misses, b.Link)
	}

	p.deps.Reporter.StageStarted("Fetching article content", len(misses))
	for _, r := range p.deps.Extractor.FetchAll(ctx, misses) {
		if r.Content == nil {
			continue
		}
		contents[r.URL] = r.Content
		if p.deps.Cache != nil {
			if err := p.deps.Cache.SaveArticle(ctx, r.URL, r.Content); err != nil {
				logger.Warn("caching article failed", "url", r.URL, "error", err)
			}
		}
	}
	p.deps.Reporter.StageFinished("Fetching article content", len(contents), len(bookmarks))
	return contents
}

func (p *Pipeline) summarize(ctx context.Context, logger *slog.Logger, bookmarks []models.Bookmark, contents map[string]*models.ArticleContent) map[string]models.Summary {
	summaries := make(map[string]models.Summary, len(bookmarks))
	var inputs []summarizer.Input

	for _, b := range bookmarks {
		content, ok := contents[b.Link]
		if !ok {
			summaries[b.Link] = models.InsufficientSummary()
			continue
		}
		if s := p.cachedSummary(ctx, logger, b.Link); s != nil {
			summaries[b.Link] = *s
			continue
		}
		inputs = append(inputs, summarizer.Input{URL: b.Link, Text: content.Text})
	}

	p.deps.Reporter.StageStarted("Summarizing articles", len(inputs))
	for _, r := range p.deps.Summarizer.SummarizeAll(ctx, inputs, func(r summarizer.Result) {
		p.deps.Reporter.ItemDone(r.Summary.Usable())
	}) {
		summaries[r.URL] = r.Summary
		if r.Summary.Kind() == models.KindFailed {
			reason, _ := r.Summary.FailureReason()
			logger.Warn("summary failed", "url", r.URL, "reason", reason)
			continue
		}
		if p.deps.Cache != nil {
			if err := p.deps.Cache.SaveSummary(ctx, r.URL, r.Summary); err != nil {
				logger.Warn("caching summary failed", "url", r.URL, "error", err)
			}
		}
	}

	usable := 0
	for _, s := range summaries {
		if s.Usable() {
			usable++
		}
	}
	p.deps.Reporter.StageFinished("Summarizing articles", usable, len(bookmarks))
	return summaries
}

func (p *Pipeline) cachedArticle(ctx context.Context, logger *slog.Logger, url string) *models.ArticleContent {
	if p.deps.Cache == nil {
		return nil
	}
	c, err := p.deps.Cache.GetArticle(ctx, url)
	if err != nil {
		logger.Warn("reading article cache failed", "url", url, "error", err)
		return nil
	}
	return c
}

func (p *Pipeline) cachedSummary(ctx context.Context, logger *slog.Logger, url string) *models.Summary {
	if p.deps.Cache == nil {
		return nil
	}
	s, err := p.deps.Cache.GetSummary(ctx, url)
	if err != nil {
		logger.Warn("reading summary cache failed", "url", url, "error", err)
		return nil
	}
	return s
}

// Assemble builds one story per bookmark, in bookmark order. The extracted
// publish date wins over the bookmark's own timestamp.
func Assemble(bookmarks []models.Bookmark, contents map[string]*models.ArticleContent, summaries map[string]models.Summary) []models.Story {
	out := make([]models.Story, 0, len(bookmarks))
	for _, b := range bookmarks {
		created := b.Created
		if c := contents[b.Link]; c != nil && c.PublishedDate != "" {
			created = c.PublishedDate
		}
		summary, ok := summaries[b.Link]
		if !ok {
			summary = models.InsufficientSummary()
		}
		out = append(out, models.Story{
			Title:   b.Title,
			URL:     b.Link,
			Created: created,
			Summary: summary,
		})
	}
	return out
}

type nopReporter struct{}

func (nopReporter) StageStarted(string, int)       {}
func (nopReporter) ItemDone(bool)                  {}
func (nopReporter) StageFinished(string, int, int) {}
