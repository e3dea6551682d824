package feed

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/thomaskoefod/podcast-briefing/internal/config"
	"github.com/thomaskoefod/podcast-briefing/internal/logging"
	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

const DefaultTimeout = 30 * time.Second

type Fetcher struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}

	return &Fetcher{
		parser: parser,
		logger: logging.Component(logger, "feed"),
	}
}

// FetchFeed fetches and parses an RSS or Atom feed
func (f *Fetcher) FetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}
	return feed, nil
}

// Bookmarks returns the items of one feed published after since.
func (f *Fetcher) Bookmarks(ctx context.Context, src config.FeedConfig, since time.Time) ([]models.Bookmark, error) {
	feed, err := f.FetchFeed(ctx, src.URL)
	if err != nil {
		return nil, err
	}

	var out []models.Bookmark
	for _, item := range feed.Items {
		b := convertToBookmark(item, src.Tag)
		if b == nil {
			continue
		}
		published, _ := time.Parse(time.RFC3339, b.Created)
		if !published.After(since) {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

// FetchAll collects bookmarks from every feed whose tag matches tag (feeds
// without a tag match any show). A feed that fails is logged and skipped.
func (f *Fetcher) FetchAll(ctx context.Context, feeds []config.FeedConfig, tag string, since time.Time) []models.Bookmark {
	var all []models.Bookmark
	for _, src := range feeds {
		if src.Tag != "" && !strings.EqualFold(src.Tag, tag) {
			continue
		}

		items, err := f.Bookmarks(ctx, src, since)
		if err != nil {
			f.logger.Warn("skipping feed", "feed", src.Name, "url", src.URL, "error", err)
			continue
		}
		f.logger.Debug("fetched feed", "feed", src.Name, "items", len(items))
		all = append(all, items...)
	}
	return all
}

// convertToBookmark converts a gofeed.Item to a Bookmark. Items without a
// link or a date are skipped.
func convertToBookmark(item *gofeed.Item, tag string) *models.Bookmark {
	var publishedAt time.Time
	if item.PublishedParsed != nil {
		publishedAt = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		publishedAt = *item.UpdatedParsed
	} else {
		return nil
	}

	link := strings.TrimSpace(item.Link)
	if link == "" {
		return nil
	}

	excerpt := item.Description
	if len(excerpt) > 500 {
		excerpt = strings.ToValidUTF8(excerpt[:500], "") + "..."
	}

	tags := append([]string(nil), item.Categories...)
	if tag != "" {
		tags = append(tags, tag)
	}

	return &models.Bookmark{
		ID:      linkID(link),
		Title:   strings.TrimSpace(item.Title),
		Link:    link,
		Excerpt: excerpt,
		Tags:    tags,
		Created: publishedAt.UTC().Format(time.RFC3339),
	}
}

// linkID derives a stable negative ID from the link so feed items never
// collide with Raindrop's positive IDs.
func linkID(link string) int64 {
	h := fnv.New64a()
	h.Write([]byte(link))
	return -int64(h.Sum64()>>1) - 1
}

// Source adapts the configured feeds to a bookmark source. Feed failures
// are logged, never returned.
type Source struct {
	fetcher *Fetcher
	feeds   []config.FeedConfig
}

func NewSource(fetcher *Fetcher, feeds []config.FeedConfig) *Source {
	return &Source{fetcher: fetcher, feeds: feeds}
}

func (s *Source) FetchBookmarks(ctx context.Context, tag string, since time.Time) ([]models.Bookmark, error) {
	return s.fetcher.FetchAll(ctx, s.feeds, tag, since), nil
}
